package workflow

import (
	"context"
	"fmt"
	"time"

	"vaultcast/internal/audio"
	"vaultcast/internal/backend"
	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
	"vaultcast/internal/services"
)

// synthesize returns the audio chunk for segment index and whether it is a
// silent stand-in. Remote synthesis is retried with a fixed backoff up to
// generation.synthesis_attempts; after that the segment is committed as
// silence of one segment window. ok is false only when the runner was
// cancelled.
func (m *Manager) synthesize(ctx context.Context, r *runner, script backend.Script, index int) (chunk string, silent bool, ok bool) {
	ctx = services.WithStage(ctx, "synthesizing")
	silence := audio.Silence(m.cfg.SegmentWindow(), m.format)

	if r.snapshot().Mode == jobs.ModeFailsafe {
		return silence, true, true
	}
	if !m.provider.Configured() {
		m.degrade(ctx, r, jobs.ModeFailsafe, "provider not configured", nil)
		return silence, true, true
	}

	text := script.Speakable()
	attempts := max(1, m.cfg.Generation.SynthesisAttempts)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		m.setState(ctx, r, jobs.StateSynthesizing)
		chunk, err := m.provider.SynthesizeSpeech(ctx, text)
		if err == nil {
			if err = validateChunk(chunk); err == nil {
				return chunk, false, true
			}
		}
		if ctx.Err() != nil {
			return "", false, false
		}
		lastErr = err
		verdict := services.Classify(err)
		m.noteIssue(ctx, r, fmt.Sprintf("synthesis attempt %d/%d for segment %d failed", attempt, attempts, index), err)
		m.runLogger(ctx).Debug("segment synthesis failed",
			logging.Int(logging.FieldSegment, index),
			logging.Int("attempt", attempt),
			logging.Int("attempts", attempts),
			logging.String(logging.FieldErrorKind, string(verdict.Kind)),
			logging.Error(err),
		)
		if attempt == attempts {
			break
		}
		if verdict.Kind == services.KindQuota {
			m.setState(ctx, r, jobs.StateQuotaPaused)
		} else {
			m.setState(ctx, r, jobs.StateOptimizing)
		}
		if !sleep(ctx, m.cfg.SynthesisBackoff()) {
			return "", false, false
		}
	}

	logging.WarnWithContext(m.runLogger(ctx), "segment synthesis exhausted; committing silence", "segment_silenced",
		logging.Int(logging.FieldSegment, index),
		logging.Int("attempts", attempts),
		logging.String(logging.FieldErrorKind, string(services.Classify(lastErr).Kind)),
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "check provider speech quota and availability"),
		logging.String(logging.FieldImpact, "segment plays as silence"),
	)
	if services.IsQuota(lastErr) {
		m.degrade(ctx, r, jobs.ModeFailsafe, "speech quota exhausted", lastErr)
	}
	return silence, true, true
}

func validateChunk(chunk string) error {
	raw, err := audio.Decode(chunk)
	if err != nil {
		return fmt.Errorf("%w: synthesized audio: %w", services.ErrMalformed, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: synthesized audio is empty", services.ErrMalformed)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
