package workflow

import (
	"time"

	"vaultcast/internal/jobs"
)

// rebase moves transcript lines of segment index from the nominal timeline,
// where the segment spans [index*window, (index+1)*window), onto the
// committed audio, where it spans [offset, offset+length). Positions inside
// the window are scaled proportionally.
func rebase(lines []jobs.TranscriptLine, index int, window, offset, length time.Duration) []jobs.TranscriptLine {
	windowMs := window.Milliseconds()
	baseMs := int64(index) * windowMs
	offsetMs := offset.Milliseconds()
	lengthMs := length.Milliseconds()

	place := func(ms int64) int64 {
		if windowMs <= 0 {
			return offsetMs
		}
		rel := min(max(ms-baseMs, 0), windowMs)
		return offsetMs + rel*lengthMs/windowMs
	}

	out := make([]jobs.TranscriptLine, len(lines))
	for i, line := range lines {
		line.StartMs = place(line.StartMs)
		line.EndMs = place(line.EndMs)
		out[i] = line
	}
	return out
}
