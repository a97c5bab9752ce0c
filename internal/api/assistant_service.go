package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vaultcast/internal/backend"
	"vaultcast/internal/logging"
	"vaultcast/internal/notebook"
	"vaultcast/internal/services"
)

// Assistant is the provider surface behind the auxiliary endpoints.
type Assistant interface {
	GenerateSummary(ctx context.Context, nb notebook.Notebook) (string, error)
	GenerateChatAnswer(ctx context.Context, nb notebook.Notebook, question string) (string, error)
	PerformWebSearch(ctx context.Context, query string) ([]backend.SearchResult, error)
}

// SummaryStore loads notebooks and persists derived summaries.
type SummaryStore interface {
	Get(ctx context.Context, id string) (notebook.Notebook, error)
	SetSummary(ctx context.Context, notebookID, summary string) error
}

// AssistantService answers summary, chat and search requests. Provider
// failures are logged and replaced with neutral placeholders.
type AssistantService struct {
	notebooks SummaryStore
	provider  Assistant
	logger    *slog.Logger
}

// NewAssistantService constructs an AssistantService.
func NewAssistantService(notebooks SummaryStore, provider Assistant, logger *slog.Logger) *AssistantService {
	if notebooks == nil || provider == nil {
		return nil
	}
	return &AssistantService{
		notebooks: notebooks,
		provider:  provider,
		logger:    logging.NewComponentLogger(logger, "assistant"),
	}
}

// Summary generates and stores a notebook summary.
func (s *AssistantService) Summary(ctx context.Context, notebookID string) (SummaryResponse, error) {
	nb, err := s.notebooks.Get(ctx, notebookID)
	if err != nil {
		return SummaryResponse{}, notFound(err)
	}
	summary, err := s.provider.GenerateSummary(ctx, nb)
	if err != nil {
		s.degraded(ctx, "summary", notebookID, err)
		if nb.Summary != "" {
			return SummaryResponse{Summary: nb.Summary}, nil
		}
		return SummaryResponse{Summary: backend.PlaceholderSummary, Placeholder: true}, nil
	}
	if err := s.notebooks.SetSummary(ctx, notebookID, summary); err != nil {
		logging.WarnWithContext(s.log(ctx, notebookID), "summary could not be stored", "summary_store_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the notebook database"),
			logging.String(logging.FieldImpact, "summary is regenerated on the next request"),
		)
	}
	return SummaryResponse{Summary: summary}, nil
}

// Chat answers a question grounded on the notebook.
func (s *AssistantService) Chat(ctx context.Context, notebookID string, req ChatRequest) (ChatResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return ChatResponse{}, fmt.Errorf("chat: %w: question required", services.ErrValidation)
	}
	nb, err := s.notebooks.Get(ctx, notebookID)
	if err != nil {
		return ChatResponse{}, notFound(err)
	}
	answer, err := s.provider.GenerateChatAnswer(ctx, nb, question)
	if err != nil {
		s.degraded(ctx, "chat", notebookID, err)
		return ChatResponse{Answer: backend.PlaceholderAnswer, Placeholder: true}, nil
	}
	return ChatResponse{Answer: answer}, nil
}

// Search runs a web search. Provider failures yield an empty list.
func (s *AssistantService) Search(ctx context.Context, query string) (SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResponse{}, fmt.Errorf("search: %w: query required", services.ErrValidation)
	}
	results, err := s.provider.PerformWebSearch(ctx, query)
	if err != nil {
		s.degraded(ctx, "search", "", err)
		return SearchResponse{Results: []SearchResult{}}, nil
	}
	return SearchResponse{Results: FromSearchResults(results)}, nil
}

func (s *AssistantService) degraded(ctx context.Context, op, notebookID string, err error) {
	logging.WarnWithContext(s.log(ctx, notebookID), op+" unavailable; returning placeholder", op+"_degraded",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, string(services.Classify(err).Kind)),
		logging.String(logging.FieldErrorHint, "check provider configuration and quota"),
		logging.String(logging.FieldImpact, "client received a neutral placeholder"),
	)
}

func (s *AssistantService) log(ctx context.Context, notebookID string) *slog.Logger {
	return logging.WithContext(services.WithNotebookID(ctx, notebookID), s.logger)
}
