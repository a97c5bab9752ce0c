package api

import (
	"vaultcast/internal/backend"
	"vaultcast/internal/jobs"
	"vaultcast/internal/notebook"
	"vaultcast/internal/workflow"
)

// FromNotebookSummary converts a notebook to its list view. List results
// carry an empty, pre-sized Sources slice whose capacity is the source count.
func FromNotebookSummary(nb notebook.Notebook) NotebookSummary {
	count := len(nb.Sources)
	if count == 0 {
		count = cap(nb.Sources)
	}
	return NotebookSummary{
		ID:          nb.ID,
		Title:       nb.Title,
		Personality: nb.Personality,
		SourceCount: count,
		HasSummary:  nb.Summary != "",
		CreatedAt:   formatTime(nb.CreatedAt),
		UpdatedAt:   formatTime(nb.UpdatedAt),
	}
}

// FromNotebookSummaries converts a slice of notebooks into list DTOs.
func FromNotebookSummaries(notebooks []notebook.Notebook) []NotebookSummary {
	out := make([]NotebookSummary, 0, len(notebooks))
	for _, nb := range notebooks {
		out = append(out, FromNotebookSummary(nb))
	}
	return out
}

// FromNotebook converts a fully loaded notebook to its detail view.
func FromNotebook(nb notebook.Notebook) Notebook {
	dto := Notebook{
		NotebookSummary: FromNotebookSummary(nb),
		Summary:         nb.Summary,
		Sources:         make([]Source, 0, len(nb.Sources)),
		Media:           make([]MediaItem, 0, len(nb.Media)),
	}
	for _, src := range nb.Sources {
		dto.Sources = append(dto.Sources, FromSource(src))
	}
	for _, entry := range nb.Media {
		dto.Media = append(dto.Media, MediaItem{
			ID:           entry.ID,
			Kind:         entry.Kind,
			Title:        entry.Title,
			DurationMs:   entry.DurationMs,
			Duration:     FormatClock(entry.DurationMs),
			ChapterCount: entry.ChapterCount,
			ArtworkURL:   entry.ArtworkURL,
			CreatedAt:    formatTime(entry.CreatedAt),
		})
	}
	return dto
}

// FromSource converts a source to its preview.
func FromSource(src notebook.Source) Source {
	return Source{
		ID:           src.ID,
		Kind:         string(src.Kind),
		Title:        src.Title,
		Origin:       src.Origin,
		Preview:      preview(src.Content),
		ContentChars: len([]rune(src.Content)),
		CreatedAt:    formatTime(src.CreatedAt),
	}
}

// FromJob converts an observer snapshot into the episode view. Finished jobs
// expose their final timeline; running jobs expose what is committed so far.
func FromJob(job jobs.Job) Episode {
	dto := Episode{
		JobID:           job.ID,
		NotebookID:      job.NotebookID,
		State:           string(job.State.Visible()),
		Mode:            string(job.Mode),
		Personality:     job.Personality,
		Progress:        job.Progress,
		CompletedChunks: job.CompletedChunks,
		TotalChunks:     job.TotalChunks,
		Ready:           job.Ready(),
		CreatedAt:       formatTime(job.CreatedAt),
		UpdatedAt:       formatTime(job.UpdatedAt),
	}
	for _, segment := range job.Outline {
		dto.Outline = append(dto.Outline, OutlineRow{Index: segment.Index, Title: segment.Title, Topics: segment.Topics})
	}

	chapters, transcript := job.Chapters, job.PartialTranscript
	if job.Audio != nil {
		chapters, transcript = job.Audio.Chapters, job.Audio.Transcript
		dto.DurationMs = job.Audio.DurationMs
		dto.ArtworkURL = job.Audio.ArtworkURL
		dto.AudioURL = "/api/notebooks/" + job.NotebookID + "/episode/audio"
	}
	dto.Chapters = make([]Chapter, 0, len(chapters))
	for _, ch := range chapters {
		dto.Chapters = append(dto.Chapters, Chapter(ch))
	}
	dto.Transcript = make([]Line, 0, len(transcript))
	for _, line := range transcript {
		dto.Transcript = append(dto.Transcript, Line(line))
	}
	return dto
}

// FromEvents converts workflow events into DTOs.
func FromEvents(events []workflow.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, evt := range events {
		out = append(out, Event{
			Seq:             evt.Seq,
			Timestamp:       formatTime(evt.Timestamp),
			Type:            string(evt.Type),
			NotebookID:      evt.NotebookID,
			JobID:           evt.JobID,
			State:           string(evt.State.Visible()),
			Progress:        evt.Progress,
			CompletedChunks: evt.CompletedChunks,
			TotalChunks:     evt.TotalChunks,
		})
	}
	return out
}

// FromSearchResults converts provider search hits into DTOs.
func FromSearchResults(results []backend.SearchResult) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out
}
