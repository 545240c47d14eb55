package repository

import (
	"context"
	"errors"
	"time"

	"roadrescue-backend/dal"
	"roadrescue-backend/models"
	"roadrescue-backend/utils/logger"
)

const requestKey = "requestID"

type RequestRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

// NewRequestRepository creates a new service-request repository
func NewRequestRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

func (r *RequestRepository) CreateRequest(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error) {
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := r.db.PutItem(ctx, r.config.RequestsTable(), req); err != nil {
		r.logger.Errorf("Failed to create request %s: %v", req.RequestID, err)
		return nil, err
	}

	r.logger.Infof("Request created: %s (%s)", req.RequestID, req.ServiceType)
	return req, nil
}

func (r *RequestRepository) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	req := &models.ServiceRequest{}
	err := r.db.GetItem(ctx, r.config.RequestsTable(), requestKey, id, req)
	if err != nil {
		if errors.Is(err, dal.ErrItemNotFound) {
			return nil, models.ErrRequestNotFound
		}
		r.logger.Errorf("Failed to get request %s: %v", id, err)
		return nil, err
	}
	return req, nil
}

func (r *RequestRepository) ListPending(ctx context.Context) ([]*models.ServiceRequest, error) {
	var requests []*models.ServiceRequest
	err := r.db.QueryByIndex(ctx, r.config.RequestsTable(), "status-index", "status", string(models.StatusPending), &requests)
	if err != nil {
		r.logger.Errorf("Failed to list pending requests: %v", err)
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.ServiceRequest, error) {
	var requests []*models.ServiceRequest
	err := r.db.QueryByIndex(ctx, r.config.RequestsTable(), "customerID-index", "customerID", customerID, &requests)
	if err != nil {
		r.logger.Errorf("Failed to list requests for customer %s: %v", customerID, err)
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepository) ListByTechnician(ctx context.Context, technicianID string) ([]*models.ServiceRequest, error) {
	var requests []*models.ServiceRequest
	err := r.db.QueryByIndex(ctx, r.config.RequestsTable(), "technicianID-index", "technicianID", technicianID, &requests)
	if err != nil {
		r.logger.Errorf("Failed to list requests for technician %s: %v", technicianID, err)
		return nil, err
	}
	return requests, nil
}

// ConditionalUpdate applies updates only while every expected attribute still
// holds its expected value. A failed predicate comes back as ErrConflict, or
// ErrRequestNotFound when the record itself is gone. updatedAt is stamped on
// every successful write.
func (r *RequestRepository) ConditionalUpdate(ctx context.Context, id string, expected, updates map[string]interface{}) error {
	stamped := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		stamped[k] = v
	}
	stamped["updatedAt"] = time.Now().UTC()

	err := r.db.ConditionalUpdateItem(ctx, r.config.RequestsTable(), requestKey, id, stamped, expected)
	if err == nil {
		return nil
	}
	if errors.Is(err, dal.ErrConditionFailed) {
		// Either a racing writer changed the record or it never existed.
		if _, getErr := r.GetRequest(ctx, id); errors.Is(getErr, models.ErrRequestNotFound) {
			return models.ErrRequestNotFound
		}
		return models.ErrConflict
	}
	r.logger.Errorf("Conditional update failed for request %s: %v", id, err)
	return err
}

func (r *RequestRepository) AppendChatMessage(ctx context.Context, id string, msg models.ChatMessage) error {
	err := r.db.AppendToList(ctx, r.config.RequestsTable(), requestKey, id, "chat", msg, nil)
	if err != nil {
		if errors.Is(err, dal.ErrItemNotFound) {
			return models.ErrRequestNotFound
		}
		r.logger.Errorf("Failed to append chat message to request %s: %v", id, err)
		return err
	}
	return nil
}

// AppendLocationSample appends one tracking ping and folds its haversine
// distance from the prior sample into the running total in the same write.
func (r *RequestRepository) AppendLocationSample(ctx context.Context, id string, sample models.LocationSample, distanceDelta float64) error {
	var increments map[string]float64
	if distanceDelta > 0 {
		increments = map[string]float64{"tracking.totalDistanceMiles": distanceDelta}
	}
	err := r.db.AppendToList(ctx, r.config.RequestsTable(), requestKey, id, "tracking.locationHistory", sample, increments)
	if err != nil {
		if errors.Is(err, dal.ErrItemNotFound) {
			return models.ErrRequestNotFound
		}
		r.logger.Errorf("Failed to append location sample to request %s: %v", id, err)
		return err
	}
	return nil
}
