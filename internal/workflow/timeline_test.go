package workflow

import (
	"testing"
	"time"

	"vaultcast/internal/jobs"
)

func TestRebaseScalesLinesOntoCommittedAudio(t *testing.T) {
	lines := []jobs.TranscriptLine{
		{Speaker: jobs.HostA, StartMs: 20_000, EndMs: 25_000},
		{Speaker: jobs.HostB, StartMs: 25_000, EndMs: 30_000},
	}
	got := rebase(lines, 2, 10*time.Second, 7*time.Second, 4*time.Second)

	want := [][2]int64{{7_000, 9_000}, {9_000, 11_000}}
	for i, line := range got {
		if line.StartMs != want[i][0] || line.EndMs != want[i][1] {
			t.Fatalf("line %d = %d-%d, want %d-%d", i, line.StartMs, line.EndMs, want[i][0], want[i][1])
		}
	}
	if lines[0].StartMs != 20_000 {
		t.Fatal("rebase must not modify its input")
	}
}

func TestRebaseClampsOutsideWindow(t *testing.T) {
	lines := []jobs.TranscriptLine{{StartMs: -50, EndMs: 99_000}}
	got := rebase(lines, 0, time.Second, 0, 500*time.Millisecond)
	if got[0].StartMs != 0 || got[0].EndMs != 500 {
		t.Fatalf("got %d-%d, want 0-500", got[0].StartMs, got[0].EndMs)
	}
}

func TestSegmentProgressBand(t *testing.T) {
	if got := segmentProgress(0, 4); got != progressSegmentsStart {
		t.Fatalf("segmentProgress(0,4) = %v", got)
	}
	if got := segmentProgress(4, 4); got != progressSegmentsEnd {
		t.Fatalf("segmentProgress(4,4) = %v", got)
	}
	if got := segmentProgress(2, 4); got <= progressSegmentsStart || got >= progressSegmentsEnd {
		t.Fatalf("segmentProgress(2,4) = %v outside band", got)
	}
}
