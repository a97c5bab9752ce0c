package api

import (
	"fmt"
	"time"

	"vaultcast/internal/textutil"
)

const previewChars = 160

// formatTime renders t for payloads; the zero time renders empty.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FormatClock renders a millisecond offset as m:ss or h:mm:ss.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	hours, minutes, seconds := total/3600, (total%3600)/60, total%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// EpisodeFileName returns a filesystem-safe WAV name for a notebook episode.
func EpisodeFileName(notebookTitle string) string {
	return textutil.SanitizeFileName(notebookTitle, "episode") + ".wav"
}

func preview(content string) string {
	return textutil.Snippet(content, previewChars)
}
