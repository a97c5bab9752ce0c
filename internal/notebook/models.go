// Package notebook stores notebooks, their ingested sources, and the media
// list of generated episodes.
package notebook

import (
	"errors"
	"strings"
	"time"
)

// SourceKind identifies how a source was ingested.
type SourceKind string

const (
	KindText     SourceKind = "text"
	KindURL      SourceKind = "url"
	KindDocument SourceKind = "document"
)

// ParseSourceKind converts a string into a known SourceKind.
func ParseSourceKind(value string) (SourceKind, bool) {
	switch kind := SourceKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case KindText, KindURL, KindDocument:
		return kind, true
	default:
		return "", false
	}
}

var (
	// ErrNotFound is returned when a notebook does not exist.
	ErrNotFound = errors.New("notebook not found")
	// ErrJobActive is returned when deleting a notebook whose episode is generating.
	ErrJobActive = errors.New("notebook has an active generation job")
)

// Source is one immutable ingested unit of knowledge.
type Source struct {
	ID         string     `json:"id"`
	NotebookID string     `json:"notebookId"`
	Kind       SourceKind `json:"kind"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Origin     string     `json:"origin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// MediaEntry records a generated episode.
type MediaEntry struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	DurationMs   int64     `json:"durationMs"`
	ChapterCount int       `json:"chapterCount"`
	ArtworkURL   string    `json:"artworkUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Notebook is a named collection of sources plus derived artifacts.
type Notebook struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Summary     string       `json:"summary,omitempty"`
	Personality string       `json:"personality"`
	Sources     []Source     `json:"sources"`
	Media       []MediaEntry `json:"media"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// SourceTitles returns the titles of every source in ingestion order.
func (n Notebook) SourceTitles() []string {
	titles := make([]string, 0, len(n.Sources))
	for _, source := range n.Sources {
		titles = append(titles, source.Title)
	}
	return titles
}
