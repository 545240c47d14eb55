package controller

import (
	"net/http"
	"time"

	"roadrescue-backend/middelware"
	"roadrescue-backend/models"
	"roadrescue-backend/repository"
	"roadrescue-backend/services"
	"roadrescue-backend/utils"
	"roadrescue-backend/utils/logger"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	userRepo   repository.UserRepositoryInterface
	lifecycle  services.LifecycleServiceInterface
	jwtManager *middelware.JWTManager
	logger     logger.Logger
}

func NewUserController(userRepo repository.UserRepositoryInterface, lifecycle services.LifecycleServiceInterface, log logger.Logger, jwtManager *middelware.JWTManager) *UserController {
	return &UserController{
		userRepo:   userRepo,
		lifecycle:  lifecycle,
		logger:     log,
		jwtManager: jwtManager,
	}
}

// Register handles POST /api/v1/user/register
// @Summary Register a new user
// @Description Create a new customer or technician account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.RegisterUser true "Registration request"
// @Success 201 {object} models.APIResponse "User registered successfully"
// @Failure 400 {object} models.APIResponse "Bad Request - Invalid registration data"
// @Failure 500 {object} models.APIResponse "Internal Server Error - Registration failed"
// @Router /user/register [post]
func (h *UserController) Register(c *gin.Context) {
	var req models.RegisterUser
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON:", err)
		respondBadRequest(c, "Invalid request", err)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Errorf("Failed to hash password: %v", err)
		respondInternal(c, "Failed to create user", err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		// Technicians start available and opt out via PATCH /user/equipment.
		Available: req.Role == models.UserRoleTechnician,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	created, err := h.userRepo.CreateUser(c.Request.Context(), user)
	if err != nil {
		h.logger.Errorf("Failed to create user: %v", err)
		respondInternal(c, "Failed to create user", err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{
		Status:  "success",
		Code:    http.StatusCreated,
		Message: "User registered successfully",
		Data:    created,
	})
}

// Login handles POST /api/v1/user/login
// @Summary Log in
// @Description Exchange username and password for a JWT
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} models.APIResponse "Login successful"
// @Failure 401 {object} models.APIResponse "Unauthorized - Invalid credentials"
// @Router /user/login [post]
func (h *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request", err)
		return
	}

	user, err := h.userRepo.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		h.logger.Warnf("Failed login attempt for username %s", req.Username)
		c.JSON(http.StatusUnauthorized, models.APIResponse{
			Status:  "error",
			Code:    http.StatusUnauthorized,
			Message: "Invalid username or password",
			Error:   &models.APIError{Type: "AuthenticationError", Details: "Invalid username or password"},
		})
		return
	}

	if user.Status != models.UserStatusActive {
		c.JSON(http.StatusForbidden, models.APIResponse{
			Status:  "error",
			Code:    http.StatusForbidden,
			Message: "Account is not active",
			Error:   &models.APIError{Type: "AuthorizationError", Details: "Account is " + string(user.Status)},
		})
		return
	}

	token, err := h.jwtManager.GenerateToken(user)
	if err != nil {
		respondInternal(c, "Failed to generate token", err)
		return
	}

	if err := h.userRepo.RecordLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warnf("Failed to record login for %s: %v", user.ID, err)
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: "Login successful",
		Data:    models.LoginResponse{Token: token, User: user},
	})
}

// Logout handles POST /api/v1/user/logout
// @Summary Log out
// @Description Revoke the presented token
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse "Logged out"
// @Router /user/logout [post]
func (h *UserController) Logout(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	if claims != nil && claims.ExpiresAt != nil {
		h.jwtManager.RevokeToken(claims.ID, claims.ExpiresAt.Time)
	} else if claims != nil {
		h.jwtManager.RevokeToken(claims.ID, time.Now().Add(24*time.Hour))
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: "Logged out successfully",
	})
}

// Me handles GET /api/v1/user/me
// @Summary Current user
// @Description Return the authenticated user's profile
// @Tags User Management
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse "User profile"
// @Failure 404 {object} models.APIResponse "Not Found"
// @Router /user/me [get]
func (h *UserController) Me(c *gin.Context) {
	claims := middelware.ClaimsFromContext(c)
	user, err := h.userRepo.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.APIResponse{
			Status:  "error",
			Code:    http.StatusNotFound,
			Message: "User not found",
			Error:   &models.APIError{Type: "NotFoundError", Details: err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Status: "success",
		Code:   http.StatusOK,
		Data:   user,
	})
}

// UpdateEquipment handles PATCH /api/v1/user/equipment
// @Summary Update technician equipment
// @Description Toggle declared equipment flags and availability
// @Tags User Management
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.UpdateEquipmentRequest true "Equipment flags"
// @Success 200 {object} models.APIResponse "Equipment updated"
// @Failure 400 {object} models.APIResponse "Bad Request"
// @Router /user/equipment [patch]
func (h *UserController) UpdateEquipment(c *gin.Context) {
	var req models.UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request", err)
		return
	}

	updates := map[string]interface{}{}
	if req.LockoutKit != nil {
		updates["equipment.lockoutKit"] = *req.LockoutKit
	}
	if req.JumpStarter != nil {
		updates["equipment.jumpStarter"] = *req.JumpStarter
	}
	if req.FuelCan != nil {
		updates["equipment.fuelCan"] = *req.FuelCan
	}
	if req.Available != nil {
		updates["available"] = *req.Available
	}
	if len(updates) == 0 {
		respondBadRequest(c, "No equipment flags provided", nil)
		return
	}

	claims := middelware.ClaimsFromContext(c)
	user, err := h.userRepo.UpdateUser(c.Request.Context(), claims.UserID, updates)
	if err != nil {
		respondInternal(c, "Failed to update equipment", err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: "Equipment updated",
		Data:    user,
	})
}
