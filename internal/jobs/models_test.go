package jobs_test

import (
	"errors"
	"testing"
	"time"

	"vaultcast/internal/jobs"
)

func outlineOf(n int) jobs.Outline {
	outline := make(jobs.Outline, n)
	for i := range outline {
		outline[i] = jobs.OutlineSegment{Index: i, Topics: []string{"topic"}}
	}
	return outline
}

func TestVisibleNeverExposesFailed(t *testing.T) {
	if got := jobs.StateFailed.Visible(); got != jobs.StateOptimizing {
		t.Fatalf("expected failed to map to optimizing, got %s", got)
	}
	if got := jobs.StateScripting.Visible(); got != jobs.StateScripting {
		t.Fatalf("expected scripting unchanged, got %s", got)
	}
	job := jobs.New("j", "nb", "balanced", time.Now())
	if err := job.SetState(jobs.StateFailed); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	job.LastIssue = "provider exploded"
	public := job.Public()
	if public.State != jobs.StateOptimizing || public.LastIssue != "" {
		t.Fatalf("unexpected public view: %+v", public)
	}
}

func TestDegradeIsForwardOnly(t *testing.T) {
	job := jobs.New("j", "nb", "balanced", time.Now())
	changed, err := job.Degrade(jobs.ModeOptimized)
	if err != nil || !changed || job.Mode != jobs.ModeOptimized {
		t.Fatalf("expected downgrade to optimized, got changed=%v err=%v mode=%s", changed, err, job.Mode)
	}
	changed, _ = job.Degrade(jobs.ModePrimary)
	if changed || job.Mode != jobs.ModeOptimized {
		t.Fatalf("expected upgrade to be ignored, mode=%s", job.Mode)
	}
	changed, _ = job.Degrade(jobs.ModeFailsafe)
	if !changed || job.Mode != jobs.ModeFailsafe {
		t.Fatalf("expected failsafe, got %s", job.Mode)
	}
	changed, _ = job.Degrade(jobs.ModeOptimized)
	if changed || job.Mode != jobs.ModeFailsafe {
		t.Fatalf("expected failsafe to stick, got %s", job.Mode)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	job := jobs.New("j", "nb", "balanced", time.Now())
	for _, p := range []float64{0.1, 0.5, 0.3, 2} {
		prev := job.Progress
		if err := job.AdvanceProgress(p); err != nil {
			t.Fatalf("AdvanceProgress: %v", err)
		}
		if job.Progress < prev {
			t.Fatalf("progress decreased from %v to %v", prev, job.Progress)
		}
	}
	if job.Progress != 1 {
		t.Fatalf("expected progress clamped to 1, got %v", job.Progress)
	}
}

func TestCommitChunkEnforcesOrder(t *testing.T) {
	job := jobs.New("j", "nb", "balanced", time.Now())
	if err := job.CommitChunk(0, "AA==", nil, false); !errors.Is(err, jobs.ErrNoOutline) {
		t.Fatalf("expected ErrNoOutline, got %v", err)
	}
	if err := job.SetOutline(outlineOf(3), nil); err != nil {
		t.Fatalf("SetOutline: %v", err)
	}
	if err := job.CommitChunk(1, "AA==", nil, false); !errors.Is(err, jobs.ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	lines := []jobs.TranscriptLine{{Speaker: jobs.HostA, Text: "hi"}}
	for i := range 3 {
		if err := job.CommitChunk(i, "AA==", lines, i == 1); err != nil {
			t.Fatalf("CommitChunk(%d): %v", i, err)
		}
		if job.CompletedChunks != len(job.PartialAudio) {
			t.Fatalf("completed chunks %d != buffers %d", job.CompletedChunks, len(job.PartialAudio))
		}
	}
	if err := job.CommitChunk(3, "AA==", nil, false); !errors.Is(err, jobs.ErrOutOfOrder) {
		t.Fatalf("expected commit past total to fail, got %v", err)
	}
	if len(job.SilentSegments) != 1 || job.SilentSegments[0] != 1 {
		t.Fatalf("unexpected silent segments %v", job.SilentSegments)
	}
	if len(job.PartialTranscript) != 3 {
		t.Fatalf("expected 3 transcript lines, got %d", len(job.PartialTranscript))
	}
}

func TestSetOutlineKeepsExistingPlan(t *testing.T) {
	job := jobs.New("j", "nb", "balanced", time.Now())
	_ = job.SetOutline(outlineOf(4), nil)
	_ = job.SetOutline(outlineOf(6), nil)
	if job.TotalChunks != 4 {
		t.Fatalf("expected original outline to be kept, got %d", job.TotalChunks)
	}
}

func TestReadyJobIsFrozen(t *testing.T) {
	job := jobs.New("j", "nb", "balanced", time.Now())
	_ = job.SetOutline(outlineOf(1), nil)
	if err := job.Complete(jobs.EpisodeAudio{}); !errors.Is(err, jobs.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	_ = job.CommitChunk(0, "AA==", nil, false)
	if err := job.Complete(jobs.EpisodeAudio{Audio: "AA=="}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !job.Ready() || job.Progress != 1 {
		t.Fatalf("expected ready job with full progress, got %+v", job)
	}

	before := job.Clone()
	checks := []error{
		job.SetState(jobs.StateScripting),
		job.AdvanceProgress(0.5),
		job.CommitChunk(1, "AA==", nil, false),
		job.Complete(jobs.EpisodeAudio{Audio: "BB=="}),
		job.SetOutline(outlineOf(2), nil),
	}
	if _, err := job.Degrade(jobs.ModeFailsafe); err != nil {
		checks = append(checks, err)
	}
	for i, err := range checks {
		if !errors.Is(err, jobs.ErrFrozen) {
			t.Fatalf("mutation %d: expected ErrFrozen, got %v", i, err)
		}
	}
	if job.Mode != before.Mode || job.Audio.Audio != before.Audio.Audio ||
		job.CompletedChunks != before.CompletedChunks || job.TotalChunks != before.TotalChunks {
		t.Fatalf("ready job changed: before=%+v after=%+v", before, job)
	}
}

func TestCloneIsDeep(t *testing.T) {
	job := jobs.New("j", "nb", "balanced", time.Now())
	_ = job.SetOutline(outlineOf(2), []jobs.Chapter{{Title: "one"}, {Title: "two"}})
	_ = job.CommitChunk(0, "AA==", []jobs.TranscriptLine{{Speaker: jobs.HostB, Text: "x"}}, false)

	clone := job.Clone()
	clone.Outline[0].Topics[0] = "changed"
	clone.PartialAudio[0] = "changed"
	clone.Chapters[0].Title = "changed"
	if job.Outline[0].Topics[0] == "changed" || job.PartialAudio[0] == "changed" || job.Chapters[0].Title == "changed" {
		t.Fatal("clone shares memory with original")
	}
}

func TestParseState(t *testing.T) {
	if state, ok := jobs.ParseState(" QUOTA_PAUSED "); !ok || state != jobs.StateQuotaPaused {
		t.Fatalf("unexpected parse: %s %v", state, ok)
	}
	if _, ok := jobs.ParseState("bogus"); ok {
		t.Fatal("expected unknown state to fail")
	}
}
