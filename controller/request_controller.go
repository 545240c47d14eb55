package controller

import (
	"errors"
	"net/http"
	"strings"

	"roadrescue-backend/middelware"
	"roadrescue-backend/models"
	"roadrescue-backend/services"
	"roadrescue-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type RequestController struct {
	lifecycle services.LifecycleServiceInterface
	logger    logger.Logger
	validator *validator.Validate
}

func NewRequestController(lifecycle services.LifecycleServiceInterface, log logger.Logger) *RequestController {
	return &RequestController{
		lifecycle: lifecycle,
		logger:    log,
		validator: validator.New(),
	}
}

// formatValidationErrors formats validation errors into readable messages
func formatValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	var messages []string
	for _, fieldError := range validationErrors {
		switch fieldError.Tag() {
		case "required":
			messages = append(messages, fieldError.Field()+" is required")
		case "min":
			messages = append(messages, fieldError.Field()+" must be at least "+fieldError.Param())
		case "max":
			messages = append(messages, fieldError.Field()+" must be at most "+fieldError.Param())
		default:
			messages = append(messages, fieldError.Field()+" is invalid")
		}
	}
	return strings.Join(messages, "; ")
}

func (h *RequestController) bindAndValidate(c *gin.Context, in interface{}) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		respondBadRequest(c, "Invalid request", err)
		return false
	}
	if err := h.validator.Struct(in); err != nil {
		respondBadRequest(c, formatValidationErrors(err), err)
		return false
	}
	return true
}

// Create handles POST /api/v1/requests
// @Summary Create a service request
// @Description Create a pending request with computed pricing
// @Tags Service Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.CreateRequestInput true "Request details"
// @Success 201 {object} models.APIResponse "Request created"
// @Failure 400 {object} models.APIResponse "Bad Request - Invalid service type or location"
// @Router /requests [post]
func (h *RequestController) Create(c *gin.Context) {
	var in models.CreateRequestInput
	if !h.bindAndValidate(c, &in) {
		return
	}

	claims := middelware.ClaimsFromContext(c)
	req, err := h.lifecycle.CreateRequest(c.Request.Context(), claims.UserID, &in)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{
		Status:  "success",
		Code:    http.StatusCreated,
		Message: "Request created",
		Data:    req,
	})
}

// ListPending handles GET /api/v1/requests/pending
// @Summary List claimable requests
// @Description Pending requests filtered by the technician's equipment
// @Tags Service Requests
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse "Pending requests"
// @Router /requests/pending [get]
func (h *RequestController) ListPending(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	requests, err := h.lifecycle.ListVisiblePending(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, requests)
}

// ListMyRequests handles GET /api/v1/requests/my-requests
// @Summary List own requests
// @Tags Service Requests
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse "Requests created by the caller"
// @Router /requests/my-requests [get]
func (h *RequestController) ListMyRequests(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	requests, err := h.lifecycle.ListByCustomer(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, requests)
}

// ListMyJobs handles GET /api/v1/requests/my-jobs
// @Summary List claimed jobs
// @Tags Service Requests
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse "Requests assigned to the caller"
// @Router /requests/my-jobs [get]
func (h *RequestController) ListMyJobs(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	requests, err := h.lifecycle.ListByTechnician(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, requests)
}

// UnreadCount handles GET /api/v1/requests/unread-count
// @Summary Unread chat message count
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse "Unread count"
// @Router /requests/unread-count [get]
func (h *RequestController) UnreadCount(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	count, err := h.lifecycle.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, gin.H{"unreadCount": count})
}

// Get handles GET /api/v1/requests/:id
// @Summary Get a request
// @Description Only the owner, the assigned technician, or an admin may read
// @Tags Service Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.APIResponse "Request"
// @Failure 403 {object} models.APIResponse "Forbidden"
// @Failure 404 {object} models.APIResponse "Not Found"
// @Router /requests/{id} [get]
func (h *RequestController) Get(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	req, err := h.lifecycle.GetRequest(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role == models.UserRoleAdmin)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, req)
}

// Claim handles POST /api/v1/requests/:id/claim
// @Summary Claim a pending request
// @Description Atomically assigns the request; losers of the race get 409
// @Tags Service Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.APIResponse "Request assigned"
// @Failure 409 {object} models.APIResponse "Conflict - Already claimed"
// @Router /requests/{id}/claim [post]
func (h *RequestController) Claim(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	req, err := h.lifecycle.Claim(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, req)
}

// UpdateStatus handles PATCH /api/v1/requests/:id/status
// @Summary Advance or cancel a request
// @Description Applies one canonical transition, or cancellation from any active state
// @Tags Service Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.UpdateStatusInput true "Target status"
// @Success 200 {object} models.APIResponse "Status updated"
// @Failure 400 {object} models.APIResponse "Bad Request - Invalid transition"
// @Router /requests/{id}/status [patch]
func (h *RequestController) UpdateStatus(c *gin.Context) {
	var in models.UpdateStatusInput
	if !h.bindAndValidate(c, &in) {
		return
	}

	claims := middelware.ClaimsFromContext(c)
	req, err := h.lifecycle.UpdateStatus(c.Request.Context(), c.Param("id"), claims.UserID, claims.ActorRole(), &in)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, req)
}

// ConfirmArrival handles POST /api/v1/requests/:id/confirm-arrival
// @Summary Confirm technician arrival
// @Tags Service Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.APIResponse "Arrival confirmed"
// @Router /requests/{id}/confirm-arrival [post]
func (h *RequestController) ConfirmArrival(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	req, err := h.lifecycle.ConfirmArrival(c.Request.Context(), c.Param("id"), claims.UserID, claims.ActorRole())
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, req)
}

// ConfirmCompletion handles POST /api/v1/requests/:id/confirm-completion
// @Summary Confirm job completion
// @Description When both parties have confirmed, the request completes
// @Tags Service Requests
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.APIResponse "Completion confirmed"
// @Router /requests/{id}/confirm-completion [post]
func (h *RequestController) ConfirmCompletion(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	req, err := h.lifecycle.ConfirmCompletion(c.Request.Context(), c.Param("id"), claims.UserID, claims.ActorRole())
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, req)
}

// RecordLocation handles POST /api/v1/requests/:id/location
// @Summary Record a tracking ping
// @Tags Tracking
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.LocationSampleInput true "Coordinate sample"
// @Success 200 {object} models.APIResponse "Sample recorded"
// @Router /requests/{id}/location [post]
func (h *RequestController) RecordLocation(c *gin.Context) {
	var in models.LocationSampleInput
	if !h.bindAndValidate(c, &in) {
		return
	}

	claims := middelware.ClaimsFromContext(c)
	if err := h.lifecycle.RecordLocationSample(c.Request.Context(), c.Param("id"), claims.UserID, &in); err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, nil)
}

// SendMessage handles POST /api/v1/requests/:id/messages
// @Summary Send a chat message
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.SendMessageInput true "Message"
// @Success 201 {object} models.APIResponse "Message stored"
// @Router /requests/{id}/messages [post]
func (h *RequestController) SendMessage(c *gin.Context) {
	var in models.SendMessageInput
	if !h.bindAndValidate(c, &in) {
		return
	}

	claims := middelware.ClaimsFromContext(c)
	msg, err := h.lifecycle.SendMessage(c.Request.Context(), c.Param("id"), claims.UserID, claims.ActorRole(), &in)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{
		Status:  "success",
		Code:    http.StatusCreated,
		Message: "Message sent",
		Data:    msg,
	})
}

// SelectShop handles POST /api/v1/requests/:id/shop
// @Summary Select a tire shop
// @Description Attach a shop to a pending shop-pickup request and refine pricing
// @Tags Service Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.SelectShopInput true "Shop details"
// @Success 200 {object} models.APIResponse "Shop selected"
// @Router /requests/{id}/shop [post]
func (h *RequestController) SelectShop(c *gin.Context) {
	var in models.SelectShopInput
	if !h.bindAndValidate(c, &in) {
		return
	}

	claims := middelware.ClaimsFromContext(c)
	req, err := h.lifecycle.SelectShop(c.Request.Context(), c.Param("id"), claims.UserID, &in.Shop, in.EstimatedMiles)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}
	respondOK(c, req)
}

// SubmitReview handles POST /api/v1/requests/:id/review
// @Summary Review a completed request
// @Tags Service Requests
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body models.SubmitReviewInput true "Review"
// @Success 201 {object} models.APIResponse "Review stored"
// @Failure 409 {object} models.APIResponse "Conflict - Already reviewed"
// @Router /requests/{id}/review [post]
func (h *RequestController) SubmitReview(c *gin.Context) {
	var in models.SubmitReviewInput
	if !h.bindAndValidate(c, &in) {
		return
	}

	claims := middelware.ClaimsFromContext(c)
	req, err := h.lifecycle.SubmitReview(c.Request.Context(), c.Param("id"), claims.UserID, claims.ActorRole(), &in)
	if err != nil {
		h.respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{
		Status:  "success",
		Code:    http.StatusCreated,
		Message: "Review submitted",
		Data:    req,
	})
}

// respondLifecycleError maps engine errors onto HTTP statuses.
func (h *RequestController) respondLifecycleError(c *gin.Context, err error) {
	var status int
	var errType string
	switch {
	case errors.Is(err, models.ErrInvalidServiceType),
		errors.Is(err, models.ErrInvalidLocation),
		errors.Is(err, models.ErrInvalidTransition):
		status, errType = http.StatusBadRequest, "ValidationError"
	case errors.Is(err, models.ErrUnauthorized):
		status, errType = http.StatusForbidden, "AuthorizationError"
	case errors.Is(err, models.ErrRequestNotFound):
		status, errType = http.StatusNotFound, "NotFoundError"
	case errors.Is(err, models.ErrAlreadyClaimed), errors.Is(err, models.ErrConflict):
		status, errType = http.StatusConflict, "ConflictError"
	case errors.Is(err, models.ErrStoreUnavailable):
		status, errType = http.StatusServiceUnavailable, "StoreError"
	default:
		h.logger.Errorf("Unhandled lifecycle error: %v", err)
		status, errType = http.StatusInternalServerError, "InternalError"
	}

	c.JSON(status, models.APIResponse{
		Status:  "error",
		Code:    status,
		Message: err.Error(),
		Error:   &models.APIError{Type: errType, Details: err.Error()},
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Status: "success",
		Code:   http.StatusOK,
		Data:   data,
	})
}

func respondBadRequest(c *gin.Context, message string, err error) {
	details := message
	if err != nil {
		details = err.Error()
	}
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Status:  "error",
		Code:    http.StatusBadRequest,
		Message: message,
		Error:   &models.APIError{Type: "ValidationError", Details: details},
	})
}

func respondInternal(c *gin.Context, message string, err error) {
	c.JSON(http.StatusInternalServerError, models.APIResponse{
		Status:  "error",
		Code:    http.StatusInternalServerError,
		Message: message,
		Error:   &models.APIError{Type: "InternalError", Details: err.Error()},
	})
}
