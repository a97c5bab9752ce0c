package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"vaultcast/internal/backend"
	"vaultcast/internal/notebook"
	"vaultcast/internal/services"
)

// NotebookStore abstracts notebook persistence needed by the API.
type NotebookStore interface {
	Create(ctx context.Context, title, personality string) (notebook.Notebook, error)
	Get(ctx context.Context, id string) (notebook.Notebook, error)
	List(ctx context.Context) ([]notebook.Notebook, error)
	AddSource(ctx context.Context, notebookID string, src notebook.Source) (notebook.Source, error)
	Delete(ctx context.Context, id string) error
}

// JobGuard deletes a notebook through remove and drops its job checkpoints
// without letting a job start in between. It fails with notebook.ErrJobActive
// while the notebook's episode is generating.
type JobGuard interface {
	ForgetAndDelete(ctx context.Context, notebookID string, remove func(context.Context) error) error
}

// NotebookService exposes notebook operations returning API DTOs.
type NotebookService struct {
	store    NotebookStore
	ingester *notebook.Ingester
	jobs     JobGuard
}

// NewNotebookService constructs a NotebookService.
func NewNotebookService(store NotebookStore, ingester *notebook.Ingester, jobs JobGuard) *NotebookService {
	if store == nil {
		return nil
	}
	if ingester == nil {
		ingester = notebook.NewIngester(0)
	}
	return &NotebookService{store: store, ingester: ingester, jobs: jobs}
}

// Create validates the request and inserts an empty notebook.
func (s *NotebookService) Create(ctx context.Context, req CreateNotebookRequest) (Notebook, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Notebook{}, fmt.Errorf("create notebook: %w: title required", services.ErrValidation)
	}
	personality := strings.TrimSpace(req.Personality)
	if personality != "" {
		resolved, ok := backend.ParsePersonality(personality)
		if !ok {
			return Notebook{}, fmt.Errorf("create notebook: %w: unknown personality %q (want one of %s)",
				services.ErrValidation, personality, strings.Join(backend.Personalities(), ", "))
		}
		personality = resolved
	}
	nb, err := s.store.Create(ctx, title, personality)
	if err != nil {
		return Notebook{}, err
	}
	return FromNotebook(nb), nil
}

// List returns every notebook, newest first.
func (s *NotebookService) List(ctx context.Context) ([]NotebookSummary, error) {
	notebooks, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return FromNotebookSummaries(notebooks), nil
}

// Describe loads one notebook with its sources and media list.
func (s *NotebookService) Describe(ctx context.Context, id string) (Notebook, error) {
	nb, err := s.store.Get(ctx, id)
	if err != nil {
		return Notebook{}, notFound(err)
	}
	return FromNotebook(nb), nil
}

// Delete removes a notebook unless its episode is generating.
func (s *NotebookService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return notFound(err)
	}
	if s.jobs == nil {
		return notFound(s.store.Delete(ctx, id))
	}
	err := s.jobs.ForgetAndDelete(ctx, id, func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	})
	if errors.Is(err, notebook.ErrJobActive) {
		return fmt.Errorf("delete notebook: %w", err)
	}
	return notFound(err)
}

// AddSource ingests the request and appends the resulting source.
func (s *NotebookService) AddSource(ctx context.Context, notebookID string, req AddSourceRequest) (Source, error) {
	kind, ok := notebook.ParseSourceKind(req.Kind)
	if !ok {
		return Source{}, fmt.Errorf("add source: %w: unknown kind %q", services.ErrValidation, req.Kind)
	}
	if _, err := s.store.Get(ctx, notebookID); err != nil {
		return Source{}, notFound(err)
	}

	var (
		src notebook.Source
		err error
	)
	switch kind {
	case notebook.KindText:
		src, err = s.ingester.Text(req.Title, req.Content)
	case notebook.KindURL:
		src, err = s.ingester.URL(ctx, req.URL)
	case notebook.KindDocument:
		var data []byte
		data, err = base64.StdEncoding.DecodeString(strings.TrimSpace(req.Data))
		if err != nil {
			err = fmt.Errorf("decode document: %w", err)
			break
		}
		src, err = s.ingester.Document(req.FileName, data)
	}
	if err != nil {
		return Source{}, fmt.Errorf("add source: %w: %w", services.ErrValidation, err)
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		src.Title = title
	}

	stored, err := s.store.AddSource(ctx, notebookID, src)
	if err != nil {
		return Source{}, notFound(err)
	}
	return FromSource(stored), nil
}
