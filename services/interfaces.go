package services

import (
	"context"

	"roadrescue-backend/models"
)

// LifecycleServiceInterface defines the contract for the request lifecycle
// engine. Every mutation funnels through the store's conditional update, so
// concurrent callers never silently clobber each other's state fields.
type LifecycleServiceInterface interface {
	CreateRequest(ctx context.Context, customerID string, in *models.CreateRequestInput) (*models.ServiceRequest, error)
	GetRequest(ctx context.Context, id, requesterID string, admin bool) (*models.ServiceRequest, error)
	ListVisiblePending(ctx context.Context, technicianID string) ([]*models.ServiceRequest, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*models.ServiceRequest, error)
	ListByTechnician(ctx context.Context, technicianID string) ([]*models.ServiceRequest, error)
	Claim(ctx context.Context, requestID, technicianID string) (*models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, requestID, actorID string, role models.ActorRole, in *models.UpdateStatusInput) (*models.ServiceRequest, error)
	ConfirmArrival(ctx context.Context, requestID, actorID string, role models.ActorRole) (*models.ServiceRequest, error)
	ConfirmCompletion(ctx context.Context, requestID, actorID string, role models.ActorRole) (*models.ServiceRequest, error)
	RecordLocationSample(ctx context.Context, requestID, technicianID string, in *models.LocationSampleInput) error
	SendMessage(ctx context.Context, requestID, actorID string, role models.ActorRole, in *models.SendMessageInput) (*models.ChatMessage, error)
	SelectShop(ctx context.Context, requestID, customerID string, shop *models.Shop, estimatedMiles *float64) (*models.ServiceRequest, error)
	SubmitReview(ctx context.Context, requestID, actorID string, role models.ActorRole, in *models.SubmitReviewInput) (*models.ServiceRequest, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	CancelAllForUser(ctx context.Context, userID string) error
}

// Notifier delivers lifecycle events to interested users. Implementations
// must be fire-and-forget: a failed or slow delivery never blocks or fails
// the state transition that produced the event.
type Notifier interface {
	Publish(userIDs []string, event models.Event)
}
