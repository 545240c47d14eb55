package models

import "time"

// SetupStatus is the state of the infrastructure bootstrap run.
type SetupStatus string

const (
	StatusSetupPending   SetupStatus = "pending"
	StatusSetupRunning   SetupStatus = "running"
	StatusSetupCompleted SetupStatus = "completed"
	StatusSetupFailed    SetupStatus = "failed"
)

// WorkerConfig configures the infrastructure bootstrap worker.
type WorkerConfig struct {
	CronSchedule      string
	LockTimeout       time.Duration
	LockRetryInterval time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	Environment       string
	RequiredTables    []string
	LockFilePath      string
	StatusFilePath    string
	RunOnce           bool
}

// LockInfo describes a held infrastructure lock. The file-based lock keeps
// multiple instances from racing table creation against the same account.
type LockInfo struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Environment string    `json:"environment"`
}

// ExecutionResult is the persisted outcome of the last bootstrap run.
type ExecutionResult struct {
	Status         SetupStatus `json:"status"`
	Success        bool        `json:"success"`
	Owner          string      `json:"owner"`
	Environment    string      `json:"environment"`
	StartedAt      time.Time   `json:"started_at"`
	FinishedAt     *time.Time  `json:"finished_at,omitempty"`
	TablesCreated  []string    `json:"tables_created,omitempty"`
	TablesVerified []string    `json:"tables_verified,omitempty"`
	Error          string      `json:"error,omitempty"`
}
