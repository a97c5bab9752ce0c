package backend

import (
	"context"
	"strings"

	"vaultcast/internal/jobs"
	"vaultcast/internal/notebook"
)

const (
	// PlaceholderAnswer is returned to chat callers when the provider fails.
	PlaceholderAnswer = "I couldn't put together an answer right now. Please try again in a moment."
	// PlaceholderSummary is returned to summary callers when the provider fails.
	PlaceholderSummary = "A summary isn't available yet. It will appear once the notebook has been processed."
)

// Script is one segment of two-host dialogue.
type Script struct {
	Script     string                `json:"script"`
	Transcript []jobs.TranscriptLine `json:"transcript"`
}

// Speakable returns the text sent to speech synthesis: the script body, or
// "Speaker: text" lines rebuilt from the transcript when the body is empty.
func (s Script) Speakable() string {
	if text := strings.TrimSpace(s.Script); text != "" {
		return text
	}
	lines := make([]string, 0, len(s.Transcript))
	for _, line := range s.Transcript {
		lines = append(lines, line.Speaker+": "+strings.TrimSpace(line.Text))
	}
	return strings.Join(lines, "\n")
}

// ScriptRequest carries everything a script segment is generated from.
type ScriptRequest struct {
	Notebook     notebook.Notebook
	Outline      jobs.Outline
	SegmentIndex int
	Personality  string
	Grounding    string
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider is the remote generation surface the orchestrator depends on.
type Provider interface {
	Configured() bool
	HealthCheck(ctx context.Context) error
	GenerateOutline(ctx context.Context, nb notebook.Notebook) (jobs.Outline, error)
	GenerateScriptSegment(ctx context.Context, req ScriptRequest) (Script, error)
	SynthesizeSpeech(ctx context.Context, script string) (string, error)
	GenerateArtwork(ctx context.Context, nb notebook.Notebook) string
	GenerateSummary(ctx context.Context, nb notebook.Notebook) (string, error)
	PerformWebSearch(ctx context.Context, query string) ([]SearchResult, error)
	GenerateChatAnswer(ctx context.Context, nb notebook.Notebook, question string) (string, error)
}
