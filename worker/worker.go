package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"roadrescue-backend/dal"
	"roadrescue-backend/models"
	"roadrescue-backend/utils/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron"
)

// Worker runs the infrastructure bootstrap: it makes sure the DynamoDB
// tables exist before the API starts taking traffic. A file lock keeps
// concurrent app instances from racing table creation, and the persisted
// status lets restarts skip work that already succeeded.
type Worker struct {
	config       *models.Config
	workerConfig *models.WorkerConfig
	logger       logger.Logger

	setup   *InfrastructureSetup
	locks   *LockManager
	status  *StatusManager
	cronJob *cron.Cron

	ownerID string

	mu        sync.Mutex
	isRunning bool
	stopOnce  sync.Once
	stopChan  chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewWorker(ctx context.Context, cfg *models.Config, db dal.DatabaseClientInterface, log logger.Logger) (*Worker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		hostname = "localhost"
	}
	ownerID := fmt.Sprintf("worker-%s-%s", hostname, uuid.New().String()[:8])

	workerConfig := &models.WorkerConfig{
		CronSchedule:      cronScheduleForEnvironment(cfg.AppEnv),
		LockTimeout:       30 * time.Minute,
		LockRetryInterval: 5 * time.Second,
		MaxRetries:        5,
		RetryDelay:        2 * time.Second,
		Environment:       cfg.AppEnv,
		RequiredTables:    cfg.Tables,
		LockFilePath:      fmt.Sprintf("/tmp/roadrescue-infrastructure-%s.lock", cfg.AppEnv),
		StatusFilePath:    fmt.Sprintf("/tmp/roadrescue-status-%s.json", cfg.AppEnv),
		RunOnce:           true,
	}

	if err := validateWorkerConfig(workerConfig); err != nil {
		return nil, fmt.Errorf("invalid worker configuration: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	return &Worker{
		config:       cfg,
		workerConfig: workerConfig,
		logger:       log,
		setup:        NewInfrastructureSetup(db, cfg, log),
		locks:        NewLockManager(workerConfig.LockFilePath, workerConfig.LockTimeout, workerConfig.Environment),
		status:       NewStatusManager(workerConfig.StatusFilePath),
		cronJob:      cron.New(),
		ownerID:      ownerID,
		stopChan:     make(chan struct{}),
		ctx:          runCtx,
		cancel:       cancel,
	}, nil
}

// Start begins the bootstrap. In RunOnce mode (the default) the setup job
// executes once in the background and the worker stops itself; otherwise
// the job is scheduled on the configured cron expression.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("worker is already running")
	}

	select {
	case <-w.ctx.Done():
		return fmt.Errorf("worker context is cancelled, cannot start")
	default:
	}

	w.logger.Infof("Starting infrastructure worker %s (run_once=%v)", w.ownerID, w.workerConfig.RunOnce)

	if completed, err := w.status.IsSetupCompleted(); err == nil && completed {
		w.logger.Info("Infrastructure setup already completed, starting in monitoring mode")
		return w.startMonitoringModeLocked()
	}

	if w.workerConfig.RunOnce {
		w.isRunning = true
		go w.runOnceSetup()
		return nil
	}

	if err := w.cronJob.AddFunc(w.workerConfig.CronSchedule, w.executeSetupJob); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	w.cronJob.Start()
	w.isRunning = true

	return nil
}

// startMonitoringModeLocked schedules periodic table checks instead of
// re-running setup. Caller holds w.mu.
func (w *Worker) startMonitoringModeLocked() error {
	if err := w.cronJob.AddFunc("0 */10 * * * *", w.healthCheckJob); err != nil {
		return fmt.Errorf("failed to add health check job: %w", err)
	}
	w.cronJob.Start()
	w.isRunning = true
	return nil
}

func (w *Worker) healthCheckJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, base := range w.config.Tables {
		tableName := w.config.DynamoDBTablePrefix + "_" + base
		exists, err := w.setup.tableExists(ctx, tableName)
		if err != nil {
			w.logger.Errorf("Health check failed for table %s: %v", tableName, err)
			return
		}
		if !exists {
			w.logger.Errorf("Health check: table %s is missing", tableName)
			return
		}
	}
	w.logger.Debug("Infrastructure health check passed")
}

func (w *Worker) runOnceSetup() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf("One-time setup panicked: %v", r)
		}
		w.Stop()
	}()

	ctx, cancel := context.WithTimeout(w.ctx, 15*time.Minute)
	defer cancel()

	w.executeSetup(ctx)
}

func (w *Worker) executeSetupJob() {
	ctx, cancel := context.WithTimeout(w.ctx, 15*time.Minute)
	defer cancel()

	w.executeSetup(ctx)
}

func (w *Worker) executeSetup(ctx context.Context) {
	select {
	case <-ctx.Done():
		w.logger.Info("Context cancelled, skipping setup execution")
		return
	default:
	}

	if completed, err := w.status.IsSetupCompleted(); err == nil && completed {
		w.logger.Info("Infrastructure setup already completed, skipping execution")
		return
	}

	lockInfo, err := w.locks.AcquireLock(w.ownerID)
	if err != nil {
		w.logger.Warnf("Failed to acquire infrastructure lock: %v", err)
		return
	}
	defer func() {
		if err := w.locks.ReleaseLock(lockInfo); err != nil {
			w.logger.Errorf("Failed to release infrastructure lock: %v", err)
		}
	}()

	result := &models.ExecutionResult{
		Status:      models.StatusSetupRunning,
		Owner:       w.ownerID,
		Environment: w.workerConfig.Environment,
		StartedAt:   time.Now().UTC(),
	}
	if err := w.status.SaveStatus(result); err != nil {
		w.logger.Errorf("Failed to save initial status: %v", err)
	}

	if err := w.executeWithRetries(ctx, result); err != nil {
		w.logger.Errorf("Infrastructure setup failed: %v", err)
		if err := w.status.MarkFailed(result, err.Error()); err != nil {
			w.logger.Errorf("Failed to persist failure status: %v", err)
		}
		return
	}

	if err := w.status.MarkCompleted(result); err != nil {
		w.logger.Errorf("Failed to persist completion status: %v", err)
		return
	}
	w.logger.Infof("Infrastructure setup completed: %d created, %d verified",
		len(result.TablesCreated), len(result.TablesVerified))
}

func (w *Worker) executeWithRetries(ctx context.Context, result *models.ExecutionResult) error {
	var lastErr error
	for attempt := 0; attempt <= w.workerConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := w.workerConfig.RetryDelay * time.Duration(attempt)
			w.logger.Warnf("Retrying infrastructure setup (attempt %d/%d) after %v",
				attempt+1, w.workerConfig.MaxRetries+1, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = w.setup.Execute(ctx, result); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// GetStatus returns the persisted outcome of the last bootstrap run.
func (w *Worker) GetStatus() (*models.ExecutionResult, error) {
	return w.status.LoadStatus()
}

// IsRunning reports whether the worker loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// ForceSetup resets the persisted status and triggers an immediate run.
func (w *Worker) ForceSetup() error {
	if err := w.status.ResetStatus(); err != nil {
		w.logger.Errorf("Failed to reset status: %v", err)
	}
	go w.executeSetupJob()
	return nil
}

// Stop shuts the worker down. Safe to call more than once.
func (w *Worker) Stop() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		w.cancel()
		if w.cronJob != nil {
			w.cronJob.Stop()
		}
		w.isRunning = false
		close(w.stopChan)

		w.logger.Info("Infrastructure worker stopped")
	})
	return nil
}

func validateWorkerConfig(config *models.WorkerConfig) error {
	if config.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if config.LockTimeout <= 0 {
		return fmt.Errorf("lock timeout must be positive")
	}
	if config.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}
	if len(config.RequiredTables) == 0 {
		return fmt.Errorf("at least one required table must be specified")
	}
	if config.LockFilePath == "" {
		return fmt.Errorf("lock file path is required")
	}
	if config.StatusFilePath == "" {
		return fmt.Errorf("status file path is required")
	}
	if config.CronSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(config.CronSchedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q: %w", config.CronSchedule, err)
		}
	}
	return nil
}

func cronScheduleForEnvironment(env string) string {
	switch env {
	case "development":
		return "*/30 * * * * *"
	case "production":
		return "0 */15 * * * *"
	default:
		return "0 */10 * * * *"
	}
}
