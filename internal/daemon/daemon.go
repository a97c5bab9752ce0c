package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vaultcast/internal/backend"
	"vaultcast/internal/config"
	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
	"vaultcast/internal/notebook"
	"vaultcast/internal/notifications"
	"vaultcast/internal/preflight"
	"vaultcast/internal/sqlitedb"
	"vaultcast/internal/workflow"
)

// Daemon coordinates the background generation services and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sqlitedb.DB
	notebooks *notebook.Store
	provider  backend.Provider
	notifier  notifications.Service
	workflow  *workflow.Manager
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	DatabasePath    string
	LockFilePath    string
	ActiveJobs      int
	LastEventSeq    int64
	ProviderEnabled bool
	Checks          []preflight.Result
}

// New constructs a daemon with initialized dependencies. Jobs are
// checkpointed in db unless generation.persist_jobs is off.
func New(cfg *config.Config, db *sqlitedb.DB, provider backend.Provider, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || db == nil || provider == nil || logger == nil {
		return nil, errors.New("daemon requires config, database, provider, and logger")
	}

	notebooks := notebook.NewStore(db)
	var store jobs.Store = jobs.NewMemoryStore()
	if cfg.Generation.PersistJobs {
		store = jobs.NewSQLStore(db)
	}
	notifier := notifications.NewService(cfg)
	manager, err := workflow.NewManager(cfg, workflow.Dependencies{
		Notebooks: notebooks,
		Jobs:      store,
		Provider:  provider,
		Notifier:  notifier,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("workflow manager: %w", err)
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		db:        db,
		notebooks: notebooks,
		provider:  provider,
		notifier:  notifier,
		workflow:  manager,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, resumes interrupted jobs and starts the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vaultcast daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	for _, failed := range preflight.Failed(preflight.RunAll(d.ctx, d.cfg, d.provider)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "run `vaultcast status` and fix the reported check"),
			logging.String(logging.FieldImpact, "episodes may degrade to local generation"),
		)
	}

	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}

	if d.cfg.Generation.ResumeOnStart {
		if _, err := d.workflow.ResumePending(d.ctx); err != nil {
			logging.ErrorWithContext(d.logger, "interrupted jobs could not be resumed", "resume_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the job store database"),
			)
		}
	}

	d.running.Store(true)
	d.logger.Info("vaultcast daemon started",
		logging.String("lock", d.lockPath),
		logging.Bool("provider_configured", d.provider.Configured()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops background generation and releases the daemon lock. Running
// jobs keep their checkpoints.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
			logging.String(logging.FieldImpact, "the next start may report a running instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("vaultcast daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.workflow.Stop()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// APIAddress returns the bound API address once started.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status. Checks include a live provider
// health check and can take up to its timeout.
func (d *Daemon) Status(ctx context.Context) Status {
	checks := []preflight.Result{
		preflight.CheckProviderFromConfig(ctx, d.cfg, d.provider),
		preflight.DiskStatus(d.cfg),
	}
	return Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		DatabasePath:    d.cfg.DatabasePath(),
		LockFilePath:    d.lockPath,
		ActiveJobs:      d.workflow.ActiveCount(),
		LastEventSeq:    d.workflow.LastEventSeq(),
		ProviderEnabled: d.provider.Configured(),
		Checks:          checks,
	}
}
