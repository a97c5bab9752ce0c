package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
)

const persistTimeout = 5 * time.Second

// errUnchanged aborts a mutation that would not change the job.
var errUnchanged = errors.New("job unchanged")

// runner holds the in-flight copy of one job. Only the runner goroutine
// mutates it; observers read clones. A runner is created as a reservation of
// its notebook's slot; started closes once it holds a job or was abandoned.
type runner struct {
	mu       sync.Mutex
	job      jobs.Job
	started  chan struct{}
	startErr error
}

func newRunner() *runner {
	return &runner{started: make(chan struct{})}
}

func (r *runner) begin(job jobs.Job) {
	r.mu.Lock()
	r.job = job.Clone()
	r.mu.Unlock()
	close(r.started)
}

func (r *runner) abandon(err error) {
	r.mu.Lock()
	r.startErr = err
	r.mu.Unlock()
	close(r.started)
}

// running reports whether the reservation turned into a generating job.
func (r *runner) running() bool {
	select {
	case <-r.started:
	default:
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startErr == nil
}

// await waits for the reservation to resolve and returns the job id.
func (r *runner) await(ctx context.Context) (string, error) {
	select {
	case <-r.started:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return "", r.startErr
	}
	return r.job.ID, nil
}

func (r *runner) snapshot() jobs.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.Clone()
}

// mutate applies fn to the job, checkpoints the result and publishes what
// changed. A rejected mutation leaves the job untouched.
func (m *Manager) mutate(ctx context.Context, r *runner, fn func(*jobs.Job) error) error {
	r.mu.Lock()
	before := r.job
	next := r.job.Clone()
	if err := fn(&next); err != nil {
		r.mu.Unlock()
		return err
	}
	next.UpdatedAt = m.now().UTC()
	r.job = next
	snapshot := next.Clone()
	r.mu.Unlock()

	m.persist(ctx, snapshot)
	switch {
	case snapshot.Ready() && !before.Ready():
		m.publish(EventReady, snapshot)
	case snapshot.State.Visible() != before.State.Visible():
		m.publish(EventState, snapshot)
	case snapshot.Progress != before.Progress || snapshot.CompletedChunks != before.CompletedChunks:
		m.publish(EventProgress, snapshot)
	}
	return nil
}

// persist writes a checkpoint even while the runner is being cancelled so a
// stopped job resumes from its last committed segment.
func (m *Manager) persist(ctx context.Context, job jobs.Job) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := m.store.Save(saveCtx, job); err != nil {
		m.alert(ctx, "job checkpoint could not be saved", "checkpoint_failed", err,
			logging.String(logging.FieldErrorHint, "check the job store database and free disk space"),
		)
	}
}

func (m *Manager) setState(ctx context.Context, r *runner, state jobs.State) {
	if err := m.mutate(ctx, r, func(j *jobs.Job) error {
		if j.State == state {
			return errUnchanged
		}
		return j.SetState(state)
	}); err != nil && !errors.Is(err, errUnchanged) {
		m.alert(ctx, "job state change rejected", "state_rejected", err,
			logging.String("target_state", string(state)),
		)
	}
}

func (m *Manager) advance(ctx context.Context, r *runner, progress float64) {
	if err := m.mutate(ctx, r, func(j *jobs.Job) error {
		if progress <= j.Progress {
			return errUnchanged
		}
		return j.AdvanceProgress(progress)
	}); err != nil && !errors.Is(err, errUnchanged) {
		m.alert(ctx, "job progress update rejected", "progress_rejected", err)
	}
}

// degrade moves the job's mode forward. cause is recorded as the internal
// diagnostic and logged; it never reaches observers.
func (m *Manager) degrade(ctx context.Context, r *runner, mode jobs.Mode, reason string, cause error) {
	var changed bool
	err := m.mutate(ctx, r, func(j *jobs.Job) error {
		var err error
		changed, err = j.Degrade(mode)
		if err != nil {
			return err
		}
		if !changed {
			return errUnchanged
		}
		j.LastIssue = issueText(reason, cause)
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		m.alert(ctx, "job mode change rejected", "mode_rejected", err)
		return
	}
	if !changed {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldMode, string(mode)),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "episode continues with reduced fidelity"),
	}
	if cause != nil {
		attrs = append(attrs, logging.Error(cause))
	}
	logging.WarnWithContext(m.runLogger(ctx), "episode generation degraded", "mode_degraded", attrs...)
}

func (m *Manager) noteIssue(ctx context.Context, r *runner, reason string, cause error) {
	_ = m.mutate(ctx, r, func(j *jobs.Job) error {
		j.LastIssue = issueText(reason, cause)
		return nil
	})
}

func issueText(reason string, cause error) string {
	if cause == nil {
		return reason
	}
	return reason + ": " + cause.Error()
}

func (m *Manager) runLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, m.logger)
}
