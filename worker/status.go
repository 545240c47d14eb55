package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"roadrescue-backend/models"
)

// StatusManager persists the outcome of the last bootstrap run so restarts
// and the health endpoint can tell whether setup already happened.
type StatusManager struct {
	StatusFilePath string
}

// NewStatusManager creates a new status manager
func NewStatusManager(statusPath string) *StatusManager {
	return &StatusManager{StatusFilePath: statusPath}
}

func (sm *StatusManager) SaveStatus(result *models.ExecutionResult) error {
	if err := os.MkdirAll(filepath.Dir(sm.StatusFilePath), 0755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	if result.FinishedAt == nil && (result.Status == models.StatusSetupCompleted || result.Status == models.StatusSetupFailed) {
		now := time.Now()
		result.FinishedAt = &now
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	// Write atomically via rename
	tempFile := sm.StatusFilePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp status file: %w", err)
	}
	if err := os.Rename(tempFile, sm.StatusFilePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename status file: %w", err)
	}
	return nil
}

func (sm *StatusManager) LoadStatus() (*models.ExecutionResult, error) {
	data, err := os.ReadFile(sm.StatusFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var result models.ExecutionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &result, nil
}

// IsSetupCompleted checks if infrastructure setup is completed
func (sm *StatusManager) IsSetupCompleted() (bool, error) {
	status, err := sm.LoadStatus()
	if err != nil {
		return false, err
	}
	return status.Status == models.StatusSetupCompleted && status.Success, nil
}

// MarkCompleted marks the setup as completed
func (sm *StatusManager) MarkCompleted(result *models.ExecutionResult) error {
	result.Success = true
	result.Status = models.StatusSetupCompleted
	now := time.Now()
	result.FinishedAt = &now
	return sm.SaveStatus(result)
}

// MarkFailed marks the setup as failed
func (sm *StatusManager) MarkFailed(result *models.ExecutionResult, errorMsg string) error {
	result.Success = false
	result.Status = models.StatusSetupFailed
	result.Error = errorMsg
	now := time.Now()
	result.FinishedAt = &now
	return sm.SaveStatus(result)
}

// ResetStatus resets the status (useful for forced re-runs)
func (sm *StatusManager) ResetStatus() error {
	err := os.Remove(sm.StatusFilePath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
