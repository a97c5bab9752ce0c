package backend

import (
	"fmt"
	"strings"
	"time"

	"vaultcast/internal/jobs"
	"vaultcast/internal/services"
	"vaultcast/internal/services/llm"
)

const (
	minSegments = 3
	maxSegments = 6
	minTopics   = 1
	maxTopics   = 3
	maxResults  = 8
)

type outlinePayload struct {
	Segments []struct {
		Title  string   `json:"title"`
		Topics []string `json:"topics"`
	} `json:"segments"`
}

func parseOutline(content string) (jobs.Outline, error) {
	var payload outlinePayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("%w: outline: %w", services.ErrMalformed, err)
	}
	if n := len(payload.Segments); n < minSegments || n > maxSegments {
		return nil, fmt.Errorf("%w: outline has %d segments, want %d-%d", services.ErrMalformed, n, minSegments, maxSegments)
	}
	outline := make(jobs.Outline, 0, len(payload.Segments))
	for i, segment := range payload.Segments {
		topics := make([]string, 0, len(segment.Topics))
		for _, topic := range segment.Topics {
			if topic = strings.TrimSpace(topic); topic != "" {
				topics = append(topics, topic)
			}
		}
		if n := len(topics); n < minTopics || n > maxTopics {
			return nil, fmt.Errorf("%w: outline segment %d has %d topics, want %d-%d", services.ErrMalformed, i, n, minTopics, maxTopics)
		}
		outline = append(outline, jobs.OutlineSegment{
			Index:  i,
			Title:  strings.TrimSpace(segment.Title),
			Topics: topics,
		})
	}
	return outline, nil
}

func parseScript(content string, index int, window time.Duration) (Script, error) {
	var payload Script
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return Script{}, fmt.Errorf("%w: script: %w", services.ErrMalformed, err)
	}
	if len(payload.Transcript) == 0 {
		return Script{}, fmt.Errorf("%w: script has no transcript", services.ErrMalformed)
	}
	lines := make([]jobs.TranscriptLine, 0, len(payload.Transcript))
	for i, line := range payload.Transcript {
		speaker, ok := normalizeSpeaker(line.Speaker)
		if !ok {
			return Script{}, fmt.Errorf("%w: transcript line %d has unknown speaker %q", services.ErrMalformed, i, line.Speaker)
		}
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		line.Speaker = speaker
		line.Text = text
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return Script{}, fmt.Errorf("%w: script transcript is blank", services.ErrMalformed)
	}
	if !wellTimed(lines, window) {
		lines = SpaceEvenly(lines, 0, window)
	}
	return Script{
		Script:     strings.TrimSpace(payload.Script),
		Transcript: Offset(lines, time.Duration(index)*window),
	}, nil
}

func normalizeSpeaker(speaker string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(speaker)) {
	case strings.ToLower(jobs.HostA):
		return jobs.HostA, true
	case strings.ToLower(jobs.HostB):
		return jobs.HostB, true
	default:
		return "", false
	}
}

// wellTimed reports whether lines are ordered, non-overlapping and inside the window.
func wellTimed(lines []jobs.TranscriptLine, window time.Duration) bool {
	limit := window.Milliseconds()
	var prevEnd int64
	for _, line := range lines {
		if line.StartMs < prevEnd || line.EndMs <= line.StartMs || line.EndMs > limit {
			return false
		}
		prevEnd = line.EndMs
	}
	return true
}

// SpaceEvenly assigns equal consecutive slots inside the window of segment
// index, starting at index*window.
func SpaceEvenly(lines []jobs.TranscriptLine, index int, window time.Duration) []jobs.TranscriptLine {
	out := make([]jobs.TranscriptLine, len(lines))
	if len(lines) == 0 {
		return out
	}
	base := int64(index) * window.Milliseconds()
	slot := window.Milliseconds() / int64(len(lines))
	for i, line := range lines {
		line.StartMs = base + int64(i)*slot
		line.EndMs = base + int64(i+1)*slot
		out[i] = line
	}
	return out
}

// Offset shifts every line by d.
func Offset(lines []jobs.TranscriptLine, d time.Duration) []jobs.TranscriptLine {
	out := make([]jobs.TranscriptLine, len(lines))
	shift := d.Milliseconds()
	for i, line := range lines {
		line.StartMs += shift
		line.EndMs += shift
		out[i] = line
	}
	return out
}

type searchPayload struct {
	Results []SearchResult `json:"results"`
}

func parseSearch(content string) ([]SearchResult, error) {
	var payload searchPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("%w: search: %w", services.ErrMalformed, err)
	}
	results := make([]SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		r.Title = strings.TrimSpace(r.Title)
		r.URL = strings.TrimSpace(r.URL)
		r.Snippet = strings.TrimSpace(r.Snippet)
		if r.URL == "" || !(strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://")) {
			continue
		}
		if r.Title == "" {
			r.Title = r.URL
		}
		results = append(results, r)
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}

func parseField(content, field string) (string, error) {
	var payload map[string]any
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return "", fmt.Errorf("%w: %s: %w", services.ErrMalformed, field, err)
	}
	value, _ := payload[field].(string)
	if value = strings.TrimSpace(value); value == "" {
		return "", fmt.Errorf("%w: %s missing", services.ErrMalformed, field)
	}
	return value, nil
}
