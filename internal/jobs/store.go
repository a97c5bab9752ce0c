package jobs

import (
	"context"
	"slices"
	"sync"
)

// Store persists jobs keyed by notebook. Implementations must return copies so
// callers cannot mutate stored state.
type Store interface {
	// Save inserts or replaces the job with the same ID.
	Save(ctx context.Context, job Job) error
	// Latest returns the newest job for the notebook that has not been superseded.
	Latest(ctx context.Context, notebookID string) (Job, bool, error)
	// Pending returns every latest job that has not reached the ready state.
	Pending(ctx context.Context) ([]Job, error)
	// Supersede hides all earlier jobs of the notebook behind jobID.
	Supersede(ctx context.Context, notebookID, jobID string) error
	// Forget removes every job for the notebook.
	Forget(ctx context.Context, notebookID string) error
}

type memoryEntry struct {
	job        Job
	superseded bool
}

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string][]memoryEntry
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string][]memoryEntry)}
}

func (s *MemoryStore) Save(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.jobs[job.NotebookID]
	for i := range entries {
		if entries[i].job.ID == job.ID {
			entries[i].job = job.Clone()
			return nil
		}
	}
	s.jobs[job.NotebookID] = append(entries, memoryEntry{job: job.Clone()})
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, notebookID string) (Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.jobs[notebookID]
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].superseded {
			return entries[i].job.Clone(), true, nil
		}
	}
	return Job{}, false, nil
}

func (s *MemoryStore) Pending(ctx context.Context) ([]Job, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)

	var pending []Job
	for _, id := range ids {
		job, ok, err := s.Latest(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok && !job.Ready() {
			pending = append(pending, job)
		}
	}
	return pending, nil
}

func (s *MemoryStore) Supersede(_ context.Context, notebookID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.jobs[notebookID]
	for i := range entries {
		if entries[i].job.ID != jobID {
			entries[i].superseded = true
		}
	}
	return nil
}

func (s *MemoryStore) Forget(_ context.Context, notebookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, notebookID)
	return nil
}
