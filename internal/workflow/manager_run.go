package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vaultcast/internal/audio"
	"vaultcast/internal/backend"
	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
	"vaultcast/internal/notebook"
	"vaultcast/internal/services"
)

// Progress bands.
const (
	progressPreflight     = 0.02
	progressOutlineStart  = 0.05
	progressSegmentsStart = 0.10
	progressSegmentsEnd   = 0.90
	progressFinalizing    = 0.95
)

func (m *Manager) run(ctx context.Context, r *runner, resumed bool) {
	job := r.snapshot()
	ctx = services.WithJobID(services.WithNotebookID(ctx, job.NotebookID), job.ID)
	m.runLogger(ctx).Info("episode generation started",
		logging.Bool("resumed", resumed),
		logging.Int("completed_chunks", job.CompletedChunks),
		logging.String(logging.FieldMode, string(job.Mode)),
		logging.String("personality", job.Personality),
		logging.String(logging.FieldEventType, "job_started"),
	)

	nb, ok := m.preflight(ctx, r)
	if !ok {
		return
	}
	if !m.outline(ctx, r, nb) || !m.segments(ctx, r, nb) {
		m.paused(ctx, r)
		return
	}
	m.finalize(ctx, r, nb)
}

func (m *Manager) preflight(ctx context.Context, r *runner) (notebook.Notebook, bool) {
	ctx = services.WithStage(ctx, "preflight")
	m.setState(ctx, r, jobs.StatePreflight)
	m.advance(ctx, r, progressPreflight)

	notebookID := r.snapshot().NotebookID
	nb, err := m.notebooks.Get(ctx, notebookID)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		m.paused(ctx, r)
		return notebook.Notebook{}, false
	case errors.Is(err, notebook.ErrNotFound):
		logging.WarnWithContext(m.runLogger(ctx), "notebook no longer exists; dropping its job", "job_orphaned",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the notebook was deleted while its job was checkpointed"),
			logging.String(logging.FieldImpact, "no episode will be produced"),
		)
		if err := m.store.Forget(context.WithoutCancel(ctx), notebookID); err != nil {
			m.alert(ctx, "orphaned job could not be removed", "job_forget_failed", err)
		}
		return notebook.Notebook{}, false
	default:
		m.alert(ctx, "notebook could not be loaded; generating from an empty notebook", "notebook_load_failed", err)
		nb = notebook.Notebook{ID: notebookID}
	}

	switch {
	case !m.provider.Configured():
		m.degrade(ctx, r, jobs.ModeOptimized, "provider not configured", nil)
	case len(nb.Sources) == 0:
		m.degrade(ctx, r, jobs.ModeOptimized, "notebook has no sources", nil)
	}
	return nb, true
}

// outline reports false only when the runner was cancelled.
func (m *Manager) outline(ctx context.Context, r *runner, nb notebook.Notebook) bool {
	job := r.snapshot()
	if len(job.Outline) > 0 {
		return true
	}
	ctx = services.WithStage(ctx, "outlining")
	m.setState(ctx, r, jobs.StateOutlining)
	m.advance(ctx, r, progressOutlineStart)

	var outline jobs.Outline
	if job.Mode == jobs.ModePrimary {
		remote, err := m.provider.GenerateOutline(ctx, nb)
		if err == nil && len(remote) == 0 {
			err = fmt.Errorf("%w: empty outline", services.ErrMalformed)
		}
		switch {
		case err == nil:
			outline = remote
		case ctx.Err() != nil:
			return false
		default:
			m.providerFailure(ctx, r, "remote outline failed", err)
		}
	}
	if outline == nil {
		outline = m.local.Outline(nb)
	}

	if err := m.mutate(ctx, r, func(j *jobs.Job) error {
		return j.SetOutline(outline, m.chapters(outline))
	}); err != nil {
		m.alert(ctx, "outline could not be recorded", "outline_rejected", err)
	}
	m.advance(ctx, r, progressSegmentsStart)
	return true
}

// chapters derives one chapter per segment on the nominal timeline. Final
// offsets come from the committed audio at assembly.
func (m *Manager) chapters(outline jobs.Outline) []jobs.Chapter {
	window := m.cfg.SegmentWindow().Milliseconds()
	chapters := make([]jobs.Chapter, 0, len(outline))
	for i, segment := range outline {
		title := segment.Title
		if title == "" && len(segment.Topics) > 0 {
			title = segment.Topics[0]
		}
		chapters = append(chapters, jobs.Chapter{
			Title:   title,
			StartMs: int64(i) * window,
			EndMs:   int64(i+1) * window,
			Summary: strings.Join(segment.Topics, "; "),
		})
	}
	return chapters
}

// segments runs the scripting/synthesizing loop from the first uncommitted
// segment. It reports false only when the runner was cancelled.
func (m *Manager) segments(ctx context.Context, r *runner, nb notebook.Notebook) bool {
	job := r.snapshot()
	offset := m.committedDuration(ctx, job.PartialAudio)

	for index := job.CompletedChunks; index < job.TotalChunks; index++ {
		if ctx.Err() != nil {
			return false
		}
		script, ok := m.script(ctx, r, nb, index)
		if !ok {
			return false
		}
		chunk, silent, ok := m.synthesize(ctx, r, script, index)
		if !ok {
			return false
		}

		length, err := audio.ChunkDuration(chunk, m.format)
		if err != nil {
			m.alert(ctx, "committed chunk is not valid audio", "chunk_invalid", err,
				logging.Int(logging.FieldSegment, index),
			)
		}
		// A silent stand-in spans one segment window, so its script lines
		// keep their nominal spacing on the committed timeline.
		lines := rebase(script.Transcript, index, m.cfg.SegmentWindow(), offset, length)
		total := job.TotalChunks
		if err := m.mutate(ctx, r, func(j *jobs.Job) error {
			if err := j.CommitChunk(index, chunk, lines, silent); err != nil {
				return err
			}
			return j.AdvanceProgress(segmentProgress(index+1, total))
		}); err != nil {
			m.alert(ctx, "segment could not be committed", "commit_rejected", err,
				logging.Int(logging.FieldSegment, index),
			)
			return false
		}
		offset += length
	}
	return true
}

func segmentProgress(done, total int) float64 {
	if total <= 0 {
		return progressSegmentsEnd
	}
	return progressSegmentsStart + (progressSegmentsEnd-progressSegmentsStart)*float64(done)/float64(total)
}

func (m *Manager) script(ctx context.Context, r *runner, nb notebook.Notebook, index int) (backend.Script, bool) {
	ctx = services.WithStage(ctx, "scripting")
	m.setState(ctx, r, jobs.StateScripting)

	job := r.snapshot()
	if job.Mode == jobs.ModePrimary {
		req := backend.ScriptRequest{
			Notebook:     nb,
			Outline:      job.Outline,
			SegmentIndex: index,
			Personality:  job.Personality,
			Grounding:    m.sources.Select(nb.Sources, strings.Join(job.Outline[index].Topics, " ")),
		}
		script, err := m.provider.GenerateScriptSegment(ctx, req)
		if err == nil && strings.TrimSpace(script.Speakable()) == "" {
			err = fmt.Errorf("%w: empty script", services.ErrMalformed)
		}
		switch {
		case err == nil:
			return script, true
		case ctx.Err() != nil:
			return backend.Script{}, false
		default:
			m.providerFailure(ctx, r, fmt.Sprintf("remote script for segment %d failed", index), err)
		}
	}
	return m.local.ScriptChunk(nb, job.Outline, index), true
}

func (m *Manager) finalize(ctx context.Context, r *runner, nb notebook.Notebook) {
	ctx = services.WithStage(ctx, "finalizing")
	m.setState(ctx, r, jobs.StateFinalizing)
	m.advance(ctx, r, progressFinalizing)

	job := r.snapshot()
	episode, err := audio.Assemble(m.playable(ctx, job.PartialAudio), job.PartialTranscript, job.Chapters, m.format)
	if err != nil {
		m.alert(ctx, "episode audio could not be assembled", "assemble_failed", err)
		episode = jobs.EpisodeAudio{
			Chapters:   job.Chapters,
			Transcript: job.PartialTranscript,
			SampleRate: m.format.SampleRate,
		}
	}
	episode.ArtworkURL = m.artwork(ctx, job, nb)

	if err := m.mutate(ctx, r, func(j *jobs.Job) error {
		return j.Complete(episode)
	}); err != nil {
		m.alert(ctx, "episode could not be completed", "complete_rejected", err)
		return
	}
	m.announce(ctx, r.snapshot(), nb)
}

func (m *Manager) artwork(ctx context.Context, job jobs.Job, nb notebook.Notebook) string {
	if !m.cfg.Generation.Artwork || job.Mode == jobs.ModeFailsafe || !m.provider.Configured() {
		return ""
	}
	return m.provider.GenerateArtwork(ctx, nb)
}

// playable replaces any chunk that does not decode with silence so assembly
// cannot fail on a corrupt checkpoint.
func (m *Manager) playable(ctx context.Context, chunks []string) []string {
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		if _, err := audio.Decode(chunk); err != nil {
			m.alert(ctx, "checkpointed chunk replaced with silence", "chunk_invalid", err,
				logging.Int(logging.FieldSegment, i),
			)
			chunk = audio.Silence(m.cfg.SegmentWindow(), m.format)
		}
		out[i] = chunk
	}
	return out
}

func (m *Manager) committedDuration(ctx context.Context, chunks []string) (total time.Duration) {
	for _, chunk := range m.playable(ctx, chunks) {
		d, _ := audio.ChunkDuration(chunk, m.format)
		total += d
	}
	return total
}

// providerFailure records a remote outline or script failure and downgrades
// the job. A quota condition that outlasted the retry budget is shown as
// quota_blocked before the job continues on the local generator.
func (m *Manager) providerFailure(ctx context.Context, r *runner, reason string, err error) {
	if services.IsLocal(err) {
		m.alert(ctx, reason, "provider_call_invalid", err)
	}
	if backend.Exhausted(err) && services.IsQuota(err) {
		m.setState(ctx, r, jobs.StateQuotaBlocked)
	} else {
		m.setState(ctx, r, jobs.StateFailed)
	}
	m.degrade(ctx, r, jobs.ModeOptimized, reason, err)
}

func (m *Manager) paused(ctx context.Context, r *runner) {
	job := r.snapshot()
	m.runLogger(ctx).Info("episode generation paused; checkpoint kept",
		logging.Int("completed_chunks", job.CompletedChunks),
		logging.Int("total_chunks", job.TotalChunks),
		logging.String(logging.FieldEventType, "job_paused"),
	)
}
