package services

import (
	"context"
	"errors"
	"math"
	"time"

	"roadrescue-backend/models"
	"roadrescue-backend/repository"
	"roadrescue-backend/utils"
	"roadrescue-backend/utils/logger"
)

// confirmationRetries bounds the re-fetch loop when a confirmation write
// loses a race against the other party confirming at the same moment.
const confirmationRetries = 3

// LifecycleService owns the service-request state machine. It holds no
// in-memory locks: every state-field mutation is a single conditional write
// and the store arbitrates races.
type LifecycleService struct {
	requests repository.RequestRepositoryInterface
	users    repository.UserRepositoryInterface
	notifier Notifier
	logger   logger.Logger
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(requests repository.RequestRepositoryInterface, users repository.UserRepositoryInterface, notifier Notifier, log logger.Logger) *LifecycleService {
	return &LifecycleService{
		requests: requests,
		users:    users,
		notifier: notifier,
		logger:   log,
	}
}

func (s *LifecycleService) CreateRequest(ctx context.Context, customerID string, in *models.CreateRequestInput) (*models.ServiceRequest, error) {
	if !in.ServiceType.IsValid() {
		return nil, models.ErrInvalidServiceType
	}
	if err := validateLocation(in.Location); err != nil {
		return nil, err
	}

	var shop *models.Shop
	if in.ServiceType == models.ServiceShopPickup {
		shop = in.Shop
	}

	pricing, err := ComputePricing(in.ServiceType, in.Options, in.Location, shop)
	if err != nil {
		return nil, err
	}

	req := &models.ServiceRequest{
		RequestID:    utils.GenerateUUID(),
		CustomerID:   customerID,
		TechnicianID: "",
		ServiceType:  in.ServiceType,
		Status:       models.StatusPending,
		Description:  in.Description,
		Pricing:      pricing,
		Location:     in.Location,
		SelectedShop: shop,
		Tracking:     models.Tracking{LocationHistory: []models.LocationSample{}},
		Chat:         []models.ChatMessage{},
	}

	created, err := s.requests.CreateRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Request %s created by customer %s (%s, estimate %.2f)",
		created.RequestID, customerID, created.ServiceType, created.Pricing.Estimate)
	return created, nil
}

func (s *LifecycleService) GetRequest(ctx context.Context, id, requesterID string, admin bool) (*models.ServiceRequest, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && req.CustomerID != requesterID && req.TechnicianID != requesterID {
		return nil, models.ErrUnauthorized
	}
	return req, nil
}

// ListVisiblePending returns the pending queue filtered down to the service
// types the technician is equipped for. A technician who has toggled
// themselves unavailable sees an empty queue.
func (s *LifecycleService) ListVisiblePending(ctx context.Context, technicianID string) ([]*models.ServiceRequest, error) {
	tech, err := s.users.GetUser(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if !tech.Available {
		return []*models.ServiceRequest{}, nil
	}
	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return FilterRequests(pending, tech.Equipment), nil
}

func (s *LifecycleService) ListByCustomer(ctx context.Context, customerID string) ([]*models.ServiceRequest, error) {
	return s.requests.ListByCustomer(ctx, customerID)
}

func (s *LifecycleService) ListByTechnician(ctx context.Context, technicianID string) ([]*models.ServiceRequest, error) {
	return s.requests.ListByTechnician(ctx, technicianID)
}

// Claim attempts to assign the request to the technician. The write succeeds
// only while the record is still pending and unassigned, so N concurrent
// claims yield exactly one winner; everyone else sees ErrAlreadyClaimed.
func (s *LifecycleService) Claim(ctx context.Context, requestID, technicianID string) (*models.ServiceRequest, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	tech, err := s.users.GetUser(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if !VisibleServiceTypes(tech.Equipment)[req.ServiceType] {
		return nil, models.ErrUnauthorized
	}

	err = s.requests.ConditionalUpdate(ctx, requestID,
		map[string]interface{}{
			"status":       models.StatusPending,
			"technicianID": nil,
		},
		map[string]interface{}{
			"status":       models.StatusAssigned,
			"technicianID": technicianID,
		})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrAlreadyClaimed
		}
		return nil, err
	}

	req.Status = models.StatusAssigned
	req.TechnicianID = technicianID

	s.publish([]string{req.CustomerID, technicianID}, models.Event{
		Type: models.EventRequestAssigned,
		Data: models.RequestAssignedEvent{
			RequestID:    requestID,
			TechnicianID: technicianID,
			CustomerID:   req.CustomerID,
		},
	})
	s.logger.Infof("Request %s claimed by technician %s", requestID, technicianID)
	return req, nil
}

// UpdateStatus applies one step of the canonical path, or a cancellation.
// The transition is re-validated against the stored status at write time, so
// a stale client replaying an old transition fails instead of rewinding.
func (s *LifecycleService) UpdateStatus(ctx context.Context, requestID, actorID string, role models.ActorRole, in *models.UpdateStatusInput) (*models.ServiceRequest, error) {
	if !in.Status.IsValid() {
		return nil, models.ErrInvalidTransition
	}

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// A technician "accepting" via a status update is just a claim. This
	// runs before authorization: a pending request has no assigned
	// technician yet, and claim does its own gating.
	if req.Status == models.StatusPending && in.Status == models.StatusAssigned && role == models.ActorTechnician {
		return s.Claim(ctx, requestID, actorID)
	}

	if err := authorizeActor(req, actorID, role); err != nil {
		return nil, err
	}

	if in.Status == models.StatusCancelled {
		return s.cancel(ctx, req, actorID, role, in.Reason)
	}

	if req.Status.NextStatus() != in.Status {
		return nil, models.ErrInvalidTransition
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": in.Status}
	switch in.Status {
	case models.StatusEnRoute:
		updates["tracking.startedAt"] = now
		updates["tracking.isTracking"] = true
	case models.StatusOnLocation:
		updates["tracking.arrivedAt"] = now
		updates["tracking.isTracking"] = false
	case models.StatusInProgress:
		if req.Tracking.JobStartTime == nil {
			updates["tracking.jobStartTime"] = now
		}
	case models.StatusCompleted:
		// Completion is driven by dual confirmation, not a bare status
		// update. Only the final stamp is allowed through here, and only
		// once both parties have confirmed.
		if !req.Confirmations.TechnicianConfirmedCompletion || !req.Confirmations.CustomerConfirmedCompletion {
			return nil, models.ErrInvalidTransition
		}
		for k, v := range completionStamps(req, now) {
			updates[k] = v
		}
	}

	err = s.requests.ConditionalUpdate(ctx, requestID,
		map[string]interface{}{
			"status":       req.Status,
			"technicianID": technicianExpectation(req.TechnicianID),
		},
		updates)
	if err != nil {
		return nil, err
	}

	req.Status = in.Status
	s.publishStatusChanged(req)
	s.logger.Infof("Request %s moved to %s by %s", requestID, in.Status, role)
	return req, nil
}

// ConfirmArrival sets the caller's arrival confirmation. Setting it twice is
// a no-op success; no status change is forced by this call alone.
func (s *LifecycleService) ConfirmArrival(ctx context.Context, requestID, actorID string, role models.ActorRole) (*models.ServiceRequest, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorizeActor(req, actorID, role); err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() || req.TechnicianID == "" {
		return nil, models.ErrInvalidTransition
	}

	field := "confirmations.customerConfirmedArrival"
	already := req.Confirmations.CustomerConfirmedArrival
	if role == models.ActorTechnician {
		field = "confirmations.technicianConfirmedArrival"
		already = req.Confirmations.TechnicianConfirmedArrival
	}
	if already {
		return req, nil
	}

	err = s.requests.ConditionalUpdate(ctx, requestID,
		map[string]interface{}{"status": req.Status},
		map[string]interface{}{field: true})
	if err != nil {
		return nil, err
	}

	if role == models.ActorTechnician {
		req.Confirmations.TechnicianConfirmedArrival = true
	} else {
		req.Confirmations.CustomerConfirmedArrival = true
	}
	return req, nil
}

// ConfirmCompletion sets the caller's completion confirmation. When the other
// party has already confirmed, the same write transitions the request to
// completed and stamps the job duration. The predicate covers the whole
// confirmations block, so two parties confirming at the same instant cannot
// both observe "other side not yet confirmed"; the loser re-fetches and
// retries against the fresh record.
func (s *LifecycleService) ConfirmCompletion(ctx context.Context, requestID, actorID string, role models.ActorRole) (*models.ServiceRequest, error) {
	var lastErr error
	for attempt := 0; attempt < confirmationRetries; attempt++ {
		req, err := s.requests.GetRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if err := authorizeActor(req, actorID, role); err != nil {
			return nil, err
		}

		mine, other := req.Confirmations.CustomerConfirmedCompletion, req.Confirmations.TechnicianConfirmedCompletion
		field := "confirmations.customerConfirmedCompletion"
		if role == models.ActorTechnician {
			mine, other = other, mine
			field = "confirmations.technicianConfirmedCompletion"
		}

		if mine {
			// Duplicate confirmation is a no-op success.
			return req, nil
		}
		if req.Status != models.StatusInProgress {
			return nil, models.ErrInvalidTransition
		}

		updates := map[string]interface{}{field: true}
		completing := other
		if completing {
			updates["status"] = models.StatusCompleted
			for k, v := range completionStamps(req, time.Now().UTC()) {
				updates[k] = v
			}
		}

		err = s.requests.ConditionalUpdate(ctx, requestID,
			map[string]interface{}{
				"status":        req.Status,
				"technicianID":  technicianExpectation(req.TechnicianID),
				"confirmations": req.Confirmations,
			},
			updates)
		if err == nil {
			if role == models.ActorTechnician {
				req.Confirmations.TechnicianConfirmedCompletion = true
			} else {
				req.Confirmations.CustomerConfirmedCompletion = true
			}
			if completing {
				req.Status = models.StatusCompleted
				s.publishStatusChanged(req)
				s.logger.Infof("Request %s completed", requestID)
			}
			return req, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// RecordLocationSample appends a tracking ping and folds the distance from
// the previous sample into the cumulative total.
func (s *LifecycleService) RecordLocationSample(ctx context.Context, requestID, technicianID string, in *models.LocationSampleInput) error {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.TechnicianID == "" || req.TechnicianID != technicianID {
		return models.ErrUnauthorized
	}
	if req.Status.IsTerminal() {
		return models.ErrInvalidTransition
	}

	ts := time.Now().UTC()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}
	sample := models.LocationSample{Latitude: in.Latitude, Longitude: in.Longitude, Timestamp: ts}

	var delta float64
	if n := len(req.Tracking.LocationHistory); n > 0 {
		prev := req.Tracking.LocationHistory[n-1]
		delta = Haversine(prev.Latitude, prev.Longitude, sample.Latitude, sample.Longitude)
	}

	return s.requests.AppendLocationSample(ctx, requestID, sample, delta)
}

// SendMessage appends a chat entry and returns the stored message so the
// caller can reflect it optimistically.
func (s *LifecycleService) SendMessage(ctx context.Context, requestID, actorID string, role models.ActorRole, in *models.SendMessageInput) (*models.ChatMessage, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorizeActor(req, actorID, role); err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, models.ErrInvalidTransition
	}

	msg := models.ChatMessage{
		MessageID:  utils.GenerateUUID(),
		SenderID:   actorID,
		SenderType: role,
		Message:    in.Message,
		Timestamp:  time.Now().UTC(),
		Read:       false,
	}
	if err := s.requests.AppendChatMessage(ctx, requestID, msg); err != nil {
		return nil, err
	}

	recipients := []string{req.CustomerID}
	if role == models.ActorCustomer && req.TechnicianID != "" {
		recipients = []string{req.TechnicianID}
	}
	s.publish(recipients, models.Event{
		Type: models.EventChatMessage,
		Data: models.ChatMessagePostedEvent{RequestID: requestID, Message: msg},
	})
	return &msg, nil
}

// SelectShop attaches the chosen tire shop to a shop-pickup request and
// refines the mileage component of the stored pricing. Pricing is never
// recomputed after assignment, so this is only legal while pending.
func (s *LifecycleService) SelectShop(ctx context.Context, requestID, customerID string, shop *models.Shop, estimatedMiles *float64) (*models.ServiceRequest, error) {
	if shop == nil || shop.Name == "" {
		return nil, models.ErrInvalidLocation
	}

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != customerID {
		return nil, models.ErrUnauthorized
	}
	if req.ServiceType != models.ServiceShopPickup {
		return nil, models.ErrInvalidServiceType
	}
	if req.Status != models.StatusPending {
		return nil, models.ErrInvalidTransition
	}

	pricing := RefineShopPricing(req.Pricing, models.PricingOptions{EstimatedMiles: estimatedMiles}, req.Location, shop)

	err = s.requests.ConditionalUpdate(ctx, requestID,
		map[string]interface{}{"status": models.StatusPending},
		map[string]interface{}{
			"selectedShop": shop,
			"pricing":      pricing,
		})
	if err != nil {
		return nil, err
	}

	req.SelectedShop = shop
	req.Pricing = pricing
	return req, nil
}

// SubmitReview records a post-completion rating by one party about the other.
// Each party gets exactly one review per request.
func (s *LifecycleService) SubmitReview(ctx context.Context, requestID, actorID string, role models.ActorRole, in *models.SubmitReviewInput) (*models.ServiceRequest, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := authorizeActor(req, actorID, role); err != nil {
		return nil, err
	}
	if req.Status != models.StatusCompleted {
		return nil, models.ErrInvalidTransition
	}

	field := "reviews.customerReview"
	already := req.Reviews.CustomerReview != nil
	if role == models.ActorTechnician {
		field = "reviews.technicianReview"
		already = req.Reviews.TechnicianReview != nil
	}
	if already {
		return nil, models.ErrConflict
	}

	review := &models.Review{Rating: in.Rating, Comment: in.Comment}
	err = s.requests.ConditionalUpdate(ctx, requestID,
		map[string]interface{}{
			"status":  models.StatusCompleted,
			"reviews": req.Reviews,
		},
		map[string]interface{}{field: review})
	if err != nil {
		return nil, err
	}

	if role == models.ActorTechnician {
		req.Reviews.TechnicianReview = review
	} else {
		req.Reviews.CustomerReview = review
	}
	return req, nil
}

// UnreadCount tallies chat messages addressed to the user that are still
// marked unread across all their requests.
func (s *LifecycleService) UnreadCount(ctx context.Context, userID string) (int, error) {
	asCustomer, err := s.requests.ListByCustomer(ctx, userID)
	if err != nil {
		return 0, err
	}
	asTechnician, err := s.requests.ListByTechnician(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, req := range append(asCustomer, asTechnician...) {
		for _, msg := range req.Chat {
			if !msg.Read && msg.SenderID != userID {
				count++
			}
		}
	}
	return count, nil
}

// CancelAllForUser closes out every active request the user participates in.
// Requests they own are cancelled by the system; jobs they hold as a
// technician reopen for other technicians. Called when an account is deleted.
func (s *LifecycleService) CancelAllForUser(ctx context.Context, userID string) error {
	owned, err := s.requests.ListByCustomer(ctx, userID)
	if err != nil {
		return err
	}
	for _, req := range owned {
		if req.Status.IsTerminal() {
			continue
		}
		if _, err := s.cancel(ctx, req, userID, models.ActorSystem, "account deleted"); err != nil && !errors.Is(err, models.ErrConflict) {
			s.logger.Errorf("Failed to cancel request %s for deleted user %s: %v", req.RequestID, userID, err)
		}
	}

	assigned, err := s.requests.ListByTechnician(ctx, userID)
	if err != nil {
		return err
	}
	for _, req := range assigned {
		if req.Status.IsTerminal() {
			continue
		}
		if _, err := s.cancel(ctx, req, userID, models.ActorTechnician, "technician account deleted"); err != nil && !errors.Is(err, models.ErrConflict) {
			s.logger.Errorf("Failed to reopen request %s for deleted technician %s: %v", req.RequestID, userID, err)
		}
	}
	return nil
}

// cancel closes or reopens a request. A technician backing out clears the
// assignment and returns the job to the pending queue; a customer or system
// cancellation is terminal and records who closed it and why.
func (s *LifecycleService) cancel(ctx context.Context, req *models.ServiceRequest, actorID string, role models.ActorRole, reason string) (*models.ServiceRequest, error) {
	if req.Status.IsTerminal() {
		return nil, models.ErrInvalidTransition
	}

	expected := map[string]interface{}{
		"status":       req.Status,
		"technicianID": technicianExpectation(req.TechnicianID),
	}

	if role == models.ActorTechnician {
		err := s.requests.ConditionalUpdate(ctx, req.RequestID, expected, map[string]interface{}{
			"status":        models.StatusPending,
			"technicianID":  nil,
			"confirmations": models.Confirmations{},
			"tracking":      models.Tracking{LocationHistory: []models.LocationSample{}},
		})
		if err != nil {
			return nil, err
		}

		req.Status = models.StatusPending
		req.TechnicianID = ""
		req.Confirmations = models.Confirmations{}
		req.Tracking = models.Tracking{LocationHistory: []models.LocationSample{}}

		s.publish([]string{req.CustomerID}, models.Event{
			Type: models.EventRequestReopened,
			Data: models.RequestCancelledEvent{RequestID: req.RequestID, CancelledBy: role, Reason: reason},
		})
		s.logger.Infof("Request %s reopened after technician %s backed out", req.RequestID, actorID)
		return req, nil
	}

	cancellation := &models.Cancellation{
		CancelledBy: role,
		Reason:      reason,
		Timestamp:   time.Now().UTC(),
	}
	err := s.requests.ConditionalUpdate(ctx, req.RequestID, expected, map[string]interface{}{
		"status":       models.StatusCancelled,
		"cancellation": cancellation,
	})
	if err != nil {
		return nil, err
	}

	req.Status = models.StatusCancelled
	req.Cancellation = cancellation

	recipients := []string{req.CustomerID}
	if req.TechnicianID != "" {
		recipients = append(recipients, req.TechnicianID)
	}
	s.publish(recipients, models.Event{
		Type: models.EventRequestCancelled,
		Data: models.RequestCancelledEvent{RequestID: req.RequestID, CancelledBy: role, Reason: reason},
	})
	s.logger.Infof("Request %s cancelled by %s", req.RequestID, role)
	return req, nil
}

func (s *LifecycleService) publishStatusChanged(req *models.ServiceRequest) {
	recipients := []string{req.CustomerID}
	if req.TechnicianID != "" {
		recipients = append(recipients, req.TechnicianID)
	}
	s.publish(recipients, models.Event{
		Type: models.EventStatusChanged,
		Data: models.StatusChangedEvent{RequestID: req.RequestID, NewStatus: req.Status},
	})
}

func (s *LifecycleService) publish(userIDs []string, event models.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(userIDs, event)
}

// completionStamps returns the tracking updates written on the transition
// into completed. Duration is measured from jobStartTime in whole minutes.
func completionStamps(req *models.ServiceRequest, now time.Time) map[string]interface{} {
	stamps := map[string]interface{}{
		"tracking.completedAt": now,
		"tracking.jobEndTime":  now,
		"tracking.isTracking":  false,
	}
	if req.Tracking.JobStartTime != nil {
		minutes := int(math.Round(float64(now.Sub(*req.Tracking.JobStartTime).Milliseconds()) / 60000))
		stamps["tracking.jobDurationMinutes"] = minutes
	}
	return stamps
}

// technicianExpectation maps "no technician" onto an absent attribute, which
// is how the store models unassigned (the field is a sparse index key).
func technicianExpectation(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

func authorizeActor(req *models.ServiceRequest, actorID string, role models.ActorRole) error {
	switch role {
	case models.ActorCustomer:
		if req.CustomerID != actorID {
			return models.ErrUnauthorized
		}
	case models.ActorTechnician:
		if req.TechnicianID == "" || req.TechnicianID != actorID {
			return models.ErrUnauthorized
		}
	case models.ActorSystem:
	default:
		return models.ErrUnauthorized
	}
	return nil
}

func validateLocation(loc models.Location) error {
	if loc.Address == "" {
		return models.ErrInvalidLocation
	}
	if loc.Latitude != nil && (*loc.Latitude < -90 || *loc.Latitude > 90) {
		return models.ErrInvalidLocation
	}
	if loc.Longitude != nil && (*loc.Longitude < -180 || *loc.Longitude > 180) {
		return models.ErrInvalidLocation
	}
	return nil
}
