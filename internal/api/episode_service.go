package api

import (
	"context"
	"fmt"

	"vaultcast/internal/audio"
	"vaultcast/internal/jobs"
	"vaultcast/internal/notebook"
	"vaultcast/internal/services"
	"vaultcast/internal/workflow"
)

// EpisodeManager is the orchestrator surface the API drives.
type EpisodeManager interface {
	StartJob(ctx context.Context, notebookID, personality string) (string, error)
	Job(notebookID string) (jobs.Job, bool)
	Events(since int64) []workflow.Event
}

// NotebookReader loads notebooks.
type NotebookReader interface {
	Get(ctx context.Context, id string) (notebook.Notebook, error)
}

// EpisodeService exposes episode generation and export.
type EpisodeService struct {
	manager   EpisodeManager
	notebooks NotebookReader
}

// NewEpisodeService constructs an EpisodeService.
func NewEpisodeService(manager EpisodeManager, notebooks NotebookReader) *EpisodeService {
	if manager == nil {
		return nil
	}
	return &EpisodeService{manager: manager, notebooks: notebooks}
}

// Start starts or joins generation for the notebook.
func (s *EpisodeService) Start(ctx context.Context, notebookID string, req StartEpisodeRequest) (StartEpisodeResponse, error) {
	jobID, err := s.manager.StartJob(ctx, notebookID, req.Personality)
	if err != nil {
		return StartEpisodeResponse{}, notFound(err)
	}
	return StartEpisodeResponse{JobID: jobID}, nil
}

// Describe returns the observer view of the notebook's latest job.
func (s *EpisodeService) Describe(notebookID string) (Episode, error) {
	job, ok := s.manager.Job(notebookID)
	if !ok {
		return Episode{}, fmt.Errorf("%w: no episode for notebook %s", services.ErrNotFound, notebookID)
	}
	return FromJob(job), nil
}

// Audio renders the finished episode as a WAV file and returns it with a
// download name derived from the notebook title.
func (s *EpisodeService) Audio(ctx context.Context, notebookID string) ([]byte, string, error) {
	job, ok := s.manager.Job(notebookID)
	if !ok {
		return nil, "", fmt.Errorf("%w: no episode for notebook %s", services.ErrNotFound, notebookID)
	}
	if !job.Ready() || job.Audio == nil {
		return nil, "", fmt.Errorf("export %s: %w (state %s)", notebookID, ErrEpisodeNotReady, job.State.Visible())
	}
	wav, err := audio.EncodeWAVBase64(job.Audio.Audio, audio.PCM16Mono(job.Audio.SampleRate))
	if err != nil {
		return nil, "", fmt.Errorf("export %s: %w", notebookID, err)
	}

	title := notebookID
	if s.notebooks != nil {
		if nb, err := s.notebooks.Get(ctx, notebookID); err == nil {
			title = nb.Title
		}
	}
	return wav, EpisodeFileName(title), nil
}

// Events returns workflow events newer than since.
func (s *EpisodeService) Events(since int64) EventsResponse {
	events := s.manager.Events(since)
	next := since
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	return EventsResponse{Events: FromEvents(events), Next: next}
}
