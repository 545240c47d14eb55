package worker

import (
	"context"
	"fmt"
	"time"

	"roadrescue-backend/dal"
	"roadrescue-backend/models"
	"roadrescue-backend/utils/logger"
)

// Service wraps the infrastructure worker for easy integration
type Service struct {
	worker *Worker
	logger logger.Logger
}

// NewService creates a new worker service
func NewService(ctx context.Context, cfg *models.Config, db dal.DatabaseClientInterface, log logger.Logger) (*Service, error) {
	w, err := NewWorker(ctx, cfg, db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create infrastructure worker: %w", err)
	}

	return &Service{
		worker: w,
		logger: log,
	}, nil
}

// StartInBackground starts the infrastructure worker in the background
func (s *Service) StartInBackground() error {
	s.logger.Info("Starting infrastructure worker service in background")

	go func() {
		if err := s.worker.Start(); err != nil {
			s.logger.Errorf("Infrastructure worker failed to start: %v", err)
		}
	}()

	return nil
}

// Stop stops the infrastructure worker service
func (s *Service) Stop() error {
	s.logger.Info("Stopping infrastructure worker service")
	return s.worker.Stop()
}

// GetStatus returns the current infrastructure setup status
func (s *Service) GetStatus() (*models.ExecutionResult, error) {
	return s.worker.GetStatus()
}

// IsSetupCompleted checks if infrastructure setup is completed
func (s *Service) IsSetupCompleted() (bool, error) {
	status, err := s.GetStatus()
	if err != nil {
		return false, err
	}
	return status.Status == models.StatusSetupCompleted && status.Success, nil
}

// GetHealthStatus returns a health status for monitoring
func (s *Service) GetHealthStatus() map[string]interface{} {
	status, err := s.GetStatus()
	if err != nil {
		return map[string]interface{}{
			"status":         "unknown",
			"healthy":        false,
			"message":        fmt.Sprintf("Failed to get status: %v", err),
			"worker_running": s.worker.IsRunning(),
		}
	}

	return map[string]interface{}{
		"status":          string(status.Status),
		"healthy":         status.Status == models.StatusSetupCompleted && status.Success,
		"worker_running":  s.worker.IsRunning(),
		"tables_created":  status.TablesCreated,
		"tables_verified": status.TablesVerified,
		"environment":     status.Environment,
		"started_at":      status.StartedAt,
		"error_message":   status.Error,
	}
}

// ForceSetup forces infrastructure setup (admin function)
func (s *Service) ForceSetup() error {
	s.logger.Info("Forcing infrastructure setup")
	return s.worker.ForceSetup()
}

// WaitForCompletion polls until setup completes or the timeout elapses.
func (s *Service) WaitForCompletion(timeoutSeconds int) error {
	s.logger.Infof("Waiting for infrastructure setup completion (timeout: %ds)", timeoutSeconds)

	for i := 0; i < timeoutSeconds; i++ {
		if completed, err := s.IsSetupCompleted(); err == nil && completed {
			s.logger.Info("Infrastructure setup completed")
			return nil
		}

		select {
		case <-s.worker.stopChan:
			if completed, err := s.IsSetupCompleted(); err == nil && completed {
				return nil
			}
			return fmt.Errorf("worker stopped before completion")
		case <-time.After(1 * time.Second):
		}
	}

	return fmt.Errorf("timeout waiting for infrastructure setup completion")
}
