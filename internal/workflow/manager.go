package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vaultcast/internal/audio"
	"vaultcast/internal/backend"
	"vaultcast/internal/config"
	"vaultcast/internal/fallback"
	"vaultcast/internal/grounding"
	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
	"vaultcast/internal/notebook"
	"vaultcast/internal/notifications"
	"vaultcast/internal/services"
)

// ErrStopped is returned by StartJob after Stop.
var ErrStopped = errors.New("workflow manager stopped")

// Notebooks is the notebook access the orchestrator needs.
type Notebooks interface {
	Get(ctx context.Context, id string) (notebook.Notebook, error)
	AppendMedia(ctx context.Context, notebookID string, entry notebook.MediaEntry) error
}

// Dependencies bundles the collaborators of a Manager. Jobs defaults to an
// in-memory store, Notifier to a noop and Fallback to the generator built from
// cfg.
type Dependencies struct {
	Notebooks Notebooks
	Jobs      jobs.Store
	Provider  backend.Provider
	Fallback  *fallback.Generator
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Manager coordinates one generation runner per notebook.
type Manager struct {
	cfg       *config.Config
	notebooks Notebooks
	store     jobs.Store
	provider  backend.Provider
	local     *fallback.Generator
	notifier  notifications.Service
	logger    *slog.Logger
	events    *EventBus
	sources   grounding.Selector
	format    audio.Format
	now       func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	runners map[string]*runner
	stopped bool
}

// NewManager constructs a manager. Runner goroutines live until Stop.
func NewManager(cfg *config.Config, deps Dependencies) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: workflow: config required", services.ErrConfiguration)
	}
	if deps.Notebooks == nil || deps.Provider == nil {
		return nil, fmt.Errorf("%w: workflow: notebooks and provider are required", services.ErrConfiguration)
	}
	if deps.Jobs == nil {
		deps.Jobs = jobs.NewMemoryStore()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewNoop()
	}
	if deps.Fallback == nil {
		gen, err := fallback.NewFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		deps.Fallback = gen
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:       cfg,
		notebooks: deps.Notebooks,
		store:     deps.Jobs,
		provider:  deps.Provider,
		local:     deps.Fallback,
		notifier:  deps.Notifier,
		logger:    logging.NewComponentLogger(deps.Logger, "workflow"),
		events:    NewEventBus(cfg.Generation.EventBufferSize),
		sources:   grounding.New(cfg.Grounding.TopK, cfg.Grounding.MaxSourceChars),
		format:    audio.PCM16Mono(cfg.Provider.SampleRate),
		now:       time.Now,
		baseCtx:   ctx,
		cancel:    cancel,
		runners:   make(map[string]*runner),
	}, nil
}

// StartJob starts or resumes episode generation for a notebook and returns the
// job id. A notebook whose runner is active gets the running job's id back. A
// persisted job that has not reached ready is resumed from its checkpoint and
// keeps its personality. Otherwise a fresh job replaces the previous one.
//
// Only local errors are returned: unknown notebook, invalid personality, a
// store failure, or a notebook deleted while the start was pending.
func (m *Manager) StartJob(ctx context.Context, notebookID, personality string) (string, error) {
	notebookID = strings.TrimSpace(notebookID)
	if notebookID == "" {
		return "", fmt.Errorf("start job: %w: notebook id required", services.ErrValidation)
	}
	nb, err := m.notebooks.Get(ctx, notebookID)
	if err != nil {
		if errors.Is(err, notebook.ErrNotFound) {
			return "", fmt.Errorf("start job: %w: %w", services.ErrNotFound, err)
		}
		return "", fmt.Errorf("start job: load notebook: %w", err)
	}
	requested := firstNonEmpty(personality, nb.Personality, m.cfg.Generation.DefaultPersonality)
	resolved, ok := backend.ParsePersonality(requested)
	if !ok {
		return "", fmt.Errorf("start job: %w: unknown personality %q (want one of %s)",
			services.ErrValidation, requested, strings.Join(backend.Personalities(), ", "))
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return "", ErrStopped
	}
	if r, ok := m.runners[notebookID]; ok {
		m.mu.Unlock()
		return r.await(ctx)
	}
	r := newRunner()
	m.runners[notebookID] = r
	m.mu.Unlock()

	job, resumed, err := m.prepare(ctx, notebookID, resolved)
	if err != nil {
		m.abandon(notebookID, r, err)
		return "", err
	}
	if err := m.launch(notebookID, r, job, resumed); err != nil {
		return "", err
	}
	return job.ID, nil
}

// prepare loads the checkpoint to resume or persists a fresh job. It runs
// outside m.mu while the notebook's runner slot is reserved.
func (m *Manager) prepare(ctx context.Context, notebookID, personality string) (jobs.Job, bool, error) {
	latest, found, err := m.store.Latest(ctx, notebookID)
	if err != nil {
		return jobs.Job{}, false, fmt.Errorf("start job: load checkpoint: %w", err)
	}
	if found && !latest.Ready() {
		return latest, true, nil
	}

	job := jobs.New(uuid.NewString(), notebookID, personality, m.now())
	if err := m.store.Save(ctx, job); err != nil {
		return jobs.Job{}, false, fmt.Errorf("start job: save: %w", err)
	}
	if err := m.store.Supersede(ctx, notebookID, job.ID); err != nil {
		return jobs.Job{}, false, fmt.Errorf("start job: supersede: %w", err)
	}
	m.publish(EventState, job)
	return job, false, nil
}

// Job returns the observer snapshot of the notebook's latest job.
func (m *Manager) Job(notebookID string) (jobs.Job, bool) {
	m.mu.Lock()
	r, active := m.runners[notebookID]
	m.mu.Unlock()
	if active && r.running() {
		return r.snapshot().Public(), true
	}

	job, found, err := m.store.Latest(m.baseCtx, notebookID)
	if err != nil {
		logging.WarnWithContext(m.logger, "job lookup failed", "job_lookup_failed",
			logging.String(logging.FieldNotebookID, notebookID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the job store database"),
			logging.String(logging.FieldImpact, "job status reported as unknown"),
		)
		return jobs.Job{}, false
	}
	if !found {
		return jobs.Job{}, false
	}
	return job.Public(), true
}

// Events returns retained events newer than since.
func (m *Manager) Events(since int64) []Event {
	return m.events.Since(since)
}

// LastEventSeq returns the sequence number of the newest published event.
func (m *Manager) LastEventSeq() int64 {
	return m.events.LastSeq()
}

// IsActive reports whether a runner is generating for the notebook or its
// slot is reserved by a start or delete in progress.
func (m *Manager) IsActive(notebookID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runners[notebookID]
	return ok
}

// ActiveCount returns the number of running jobs.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runners)
}

// ResumePending restarts every persisted job that has not reached ready. It
// returns the number of runners started.
func (m *Manager) ResumePending(ctx context.Context) (int, error) {
	pending, err := m.store.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("resume pending jobs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return 0, ErrStopped
	}
	started := 0
	for _, job := range pending {
		if _, ok := m.runners[job.NotebookID]; ok {
			continue
		}
		r := newRunner()
		m.runners[job.NotebookID] = r
		m.launchLocked(job.NotebookID, r, job, true)
		started++
	}
	if started > 0 {
		m.logger.Info("resuming interrupted episode jobs",
			logging.Int("count", started),
			logging.String(logging.FieldEventType, "jobs_resumed"),
		)
	}
	return started, nil
}

// Stop cancels every runner and waits for them to checkpoint and exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// ForgetAndDelete runs remove and then drops the notebook's checkpoints. The
// notebook's runner slot is reserved throughout so no job starts against a
// notebook that is going away. It fails with notebook.ErrJobActive while a
// runner is generating for the notebook.
func (m *Manager) ForgetAndDelete(ctx context.Context, notebookID string, remove func(context.Context) error) error {
	m.mu.Lock()
	if _, ok := m.runners[notebookID]; ok {
		m.mu.Unlock()
		return notebook.ErrJobActive
	}
	r := newRunner()
	m.runners[notebookID] = r
	m.mu.Unlock()

	if err := remove(ctx); err != nil {
		m.abandon(notebookID, r, fmt.Errorf("start job: notebook %s is being deleted: %w", notebookID, err))
		return err
	}
	if err := m.store.Forget(ctx, notebookID); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "checkpoints of deleted notebook kept", "job_forget_failed",
			logging.String(logging.FieldNotebookID, notebookID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the job store database"),
			logging.String(logging.FieldImpact, "the orphaned job is dropped on the next resume"),
		)
	}
	m.abandon(notebookID, r, fmt.Errorf("start job: %w: notebook %s was deleted", services.ErrNotFound, notebookID))
	return nil
}

// launch starts the runner for a reserved slot. A manager stopped while the
// slot was being prepared abandons it instead.
func (m *Manager) launch(notebookID string, r *runner, job jobs.Job, resumed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		if m.runners[notebookID] == r {
			delete(m.runners, notebookID)
		}
		r.abandon(ErrStopped)
		return ErrStopped
	}
	m.launchLocked(notebookID, r, job, resumed)
	return nil
}

// launchLocked installs job in the reserved runner and starts its goroutine.
// Callers hold m.mu.
func (m *Manager) launchLocked(notebookID string, r *runner, job jobs.Job, resumed bool) {
	r.begin(job)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(notebookID, r)
		m.run(m.baseCtx, r, resumed)
	}()
}

// abandon frees a reserved slot that never started and wakes its waiters
// with err.
func (m *Manager) abandon(notebookID string, r *runner, err error) {
	m.release(notebookID, r)
	r.abandon(err)
}

func (m *Manager) release(notebookID string, r *runner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runners[notebookID] == r {
		delete(m.runners, notebookID)
	}
}

func (m *Manager) publish(kind EventType, job jobs.Job) {
	m.events.Publish(Event{
		Type:            kind,
		NotebookID:      job.NotebookID,
		JobID:           job.ID,
		State:           job.State,
		Progress:        job.Progress,
		CompletedChunks: job.CompletedChunks,
		TotalChunks:     job.TotalChunks,
	})
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return ""
}
