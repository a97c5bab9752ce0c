package workflow

import (
	"context"
	"errors"
	"time"

	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
	"vaultcast/internal/notebook"
	"vaultcast/internal/notifications"
)

const sideEffectTimeout = 10 * time.Second

// alert reports a local defect to operators: an error log carrying the alert
// field plus an ntfy error notification. The job keeps converging.
func (m *Manager) alert(ctx context.Context, message, eventType string, err error, attrs ...logging.Attr) {
	attrs = append(attrs, logging.Alert(eventType), logging.Error(err))
	logging.ErrorWithContext(m.runLogger(ctx), message, eventType, attrs...)

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if nerr := m.notifier.NotifyError(notifyCtx, err, message); nerr != nil {
		m.runLogger(ctx).Debug("error notification failed", logging.Error(nerr))
	}
}

// announce records the finished episode on the notebook and sends the one-shot
// ready notification.
func (m *Manager) announce(ctx context.Context, job jobs.Job, nb notebook.Notebook) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	var duration time.Duration
	entry := notebook.MediaEntry{
		ID:        job.ID,
		Kind:      "audio",
		Title:     nb.Title,
		CreatedAt: m.now().UTC(),
	}
	if job.Audio != nil {
		duration = time.Duration(job.Audio.DurationMs) * time.Millisecond
		entry.DurationMs = job.Audio.DurationMs
		entry.ChapterCount = len(job.Audio.Chapters)
		entry.ArtworkURL = job.Audio.ArtworkURL
	}
	if err := m.notebooks.AppendMedia(ctx, job.NotebookID, entry); err != nil && !errors.Is(err, notebook.ErrNotFound) {
		m.alert(ctx, "episode could not be added to the notebook media list", "media_append_failed", err)
	}

	m.runLogger(ctx).Info("episode ready",
		logging.Duration("duration", duration),
		logging.String(logging.FieldMode, string(job.Mode)),
		logging.Int("segments", job.TotalChunks),
		logging.Int("silent_segments", len(job.SilentSegments)),
		logging.String(logging.FieldEventType, "episode_ready"),
	)

	note := notifications.ReadyNotification(job.NotebookID, nb.Title, duration)
	if err := m.notifier.NotifyEpisodeReady(ctx, note); err != nil {
		m.runLogger(ctx).Debug("ready notification failed", logging.Error(err))
	}
}
