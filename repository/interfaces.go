package repository

import (
	"context"

	"roadrescue-backend/models"
)

// RequestRepositoryInterface defines the contract for service-request
// persistence. ConditionalUpdate is the only mutation path for lifecycle
// fields: it compares whole top-level attributes, so callers state every
// value the transition depends on and the store arbitrates races.
type RequestRepositoryInterface interface {
	CreateRequest(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error)
	GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	ListPending(ctx context.Context) ([]*models.ServiceRequest, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*models.ServiceRequest, error)
	ListByTechnician(ctx context.Context, technicianID string) ([]*models.ServiceRequest, error)
	ConditionalUpdate(ctx context.Context, id string, expected, updates map[string]interface{}) error
	AppendChatMessage(ctx context.Context, id string, msg models.ChatMessage) error
	AppendLocationSample(ctx context.Context, id string, sample models.LocationSample, distanceDelta float64) error
}

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error)
	RecordLogin(ctx context.Context, id string) error
}
