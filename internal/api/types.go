package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// NotebookSummary is the list view of a notebook.
type NotebookSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Personality string `json:"personality"`
	SourceCount int    `json:"sourceCount"`
	HasSummary  bool   `json:"hasSummary"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// NotebookListResponse wraps the notebook list.
type NotebookListResponse struct {
	Notebooks []NotebookSummary `json:"notebooks"`
}

// Notebook is the detail view of a notebook.
type Notebook struct {
	NotebookSummary
	Summary string      `json:"summary,omitempty"`
	Sources []Source    `json:"sources"`
	Media   []MediaItem `json:"media"`
}

// Source previews an ingested source without its full content.
type Source struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	Origin       string `json:"origin,omitempty"`
	Preview      string `json:"preview"`
	ContentChars int    `json:"contentChars"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// MediaItem is a generated episode on the notebook's media list.
type MediaItem struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	DurationMs   int64  `json:"durationMs"`
	Duration     string `json:"duration"`
	ChapterCount int    `json:"chapterCount"`
	ArtworkURL   string `json:"artworkUrl,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// CreateNotebookRequest is the body of POST /api/notebooks.
type CreateNotebookRequest struct {
	Title       string `json:"title"`
	Personality string `json:"personality,omitempty"`
}

// AddSourceRequest is the body of POST /api/notebooks/{id}/sources. Text
// sources carry Content, URL sources carry URL, and documents carry the file
// name plus its base64 Data.
type AddSourceRequest struct {
	Kind     string `json:"kind"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content,omitempty"`
	URL      string `json:"url,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Data     string `json:"data,omitempty"`
}

// StartEpisodeRequest is the optional body of POST /api/notebooks/{id}/episodes.
type StartEpisodeRequest struct {
	Personality string `json:"personality,omitempty"`
}

// StartEpisodeResponse carries the id of the started or running job.
type StartEpisodeResponse struct {
	JobID string `json:"jobId"`
}

// Episode is the observer view of a generation job.
type Episode struct {
	JobID           string       `json:"jobId"`
	NotebookID      string       `json:"notebookId"`
	State           string       `json:"state"`
	Mode            string       `json:"mode"`
	Personality     string       `json:"personality"`
	Progress        float64      `json:"progress"`
	CompletedChunks int          `json:"completedChunks"`
	TotalChunks     int          `json:"totalChunks"`
	Ready           bool         `json:"ready"`
	Chapters        []Chapter    `json:"chapters"`
	Transcript      []Line       `json:"transcript"`
	DurationMs      int64        `json:"durationMs,omitempty"`
	ArtworkURL      string       `json:"artworkUrl,omitempty"`
	AudioURL        string       `json:"audioUrl,omitempty"`
	Outline         []OutlineRow `json:"outline,omitempty"`
	CreatedAt       string       `json:"createdAt,omitempty"`
	UpdatedAt       string       `json:"updatedAt,omitempty"`
}

// OutlineRow is one planned segment.
type OutlineRow struct {
	Index  int      `json:"index"`
	Title  string   `json:"title,omitempty"`
	Topics []string `json:"topics"`
}

// Chapter marks a segment on the episode timeline.
type Chapter struct {
	Title   string `json:"title"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Summary string `json:"summary,omitempty"`
}

// Line is one transcript turn.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// Event is one workflow event.
type Event struct {
	Seq             int64   `json:"seq"`
	Timestamp       string  `json:"timestamp"`
	Type            string  `json:"type"`
	NotebookID      string  `json:"notebookId"`
	JobID           string  `json:"jobId"`
	State           string  `json:"state"`
	Progress        float64 `json:"progress"`
	CompletedChunks int     `json:"completedChunks"`
	TotalChunks     int     `json:"totalChunks"`
}

// EventsResponse wraps events newer than the requested sequence. Next is the
// cursor for the following poll.
type EventsResponse struct {
	Events []Event `json:"events"`
	Next   int64   `json:"next"`
}

// SummaryResponse carries a notebook summary or its placeholder.
type SummaryResponse struct {
	Summary     string `json:"summary"`
	Placeholder bool   `json:"placeholder"`
}

// ChatRequest is the body of POST /api/notebooks/{id}/chat.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse carries an answer or its placeholder.
type ChatResponse struct {
	Answer      string `json:"answer"`
	Placeholder bool   `json:"placeholder"`
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResponse wraps web search hits; an empty list on provider failure.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// NotificationResponse reports the outcome of a test notification.
type NotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// CheckStatus mirrors a preflight result.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool          `json:"running"`
	PID             int           `json:"pid"`
	DatabasePath    string        `json:"databasePath"`
	LockFilePath    string        `json:"lockFilePath"`
	ActiveJobs      int           `json:"activeJobs"`
	LastEventSeq    int64         `json:"lastEventSeq"`
	ProviderEnabled bool          `json:"providerEnabled"`
	Checks          []CheckStatus `json:"checks"`
}
