package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vaultcast/internal/api"
	"vaultcast/internal/config"
	"vaultcast/internal/logging"
	"vaultcast/internal/notebook"
	"vaultcast/internal/services"
)

// maxBodyBytes bounds request bodies; base64 documents are a third larger
// than the ingest limit.
const maxBodyBytes = 12 << 20

type apiServer struct {
	bind      string
	token     string
	logger    *slog.Logger
	daemon    *Daemon
	notebooks *api.NotebookService
	episodes  *api.EpisodeService
	assistant *api.AssistantService
	router    chi.Router

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	ingester := notebook.NewIngester(cfg.SourceFetchTimeout())
	srv := &apiServer{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		token:     cfg.Paths.APIToken,
		logger:    logger,
		daemon:    d,
		notebooks: api.NewNotebookService(d.notebooks, ingester, d.workflow),
		episodes:  api.NewEpisodeService(d.workflow, d.notebooks),
		assistant: api.NewAssistantService(d.notebooks, d.provider, logger),
	}
	srv.router = srv.routes()

	srv.server = &http.Server{
		Handler:           srv.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(authMiddleware(s.token))

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/search", s.handleSearch)
	r.Post("/api/notifications/test", s.handleTestNotification)

	r.Route("/api/notebooks", func(r chi.Router) {
		r.Get("/", s.handleListNotebooks)
		r.Post("/", s.handleCreateNotebook)
		r.Route("/{notebookID}", func(r chi.Router) {
			r.Get("/", s.handleGetNotebook)
			r.Delete("/", s.handleDeleteNotebook)
			r.Post("/sources", s.handleAddSource)
			r.Post("/episodes", s.handleStartEpisode)
			r.Get("/episode", s.handleGetEpisode)
			r.Get("/episode/audio", s.handleEpisodeAudio)
			r.Post("/summary", s.handleSummary)
			r.Post("/chat", s.handleChat)
		})
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// requestLogger tags the request context with its id and logs one line per
// request at debug level.
func (s *apiServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := services.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.WithContext(ctx, s.log()).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	checks := make([]api.CheckStatus, len(status.Checks))
	for i, check := range status.Checks {
		checks[i] = api.CheckStatus{Name: check.Name, Passed: check.Passed, Detail: check.Detail}
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		DatabasePath:    status.DatabasePath,
		LockFilePath:    status.LockFilePath,
		ActiveJobs:      status.ActiveJobs,
		LastEventSeq:    status.LastEventSeq,
		ProviderEnabled: status.ProviderEnabled,
		Checks:          checks,
	})
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		logging.WithContext(r.Context(), s.log()).Warn("test notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_test_failed"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
		s.writeJSON(w, http.StatusBadGateway, api.NotificationResponse{Message: message})
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotificationResponse{Sent: sent, Message: message})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid since cursor")
			return
		}
		since = parsed
	}
	s.writeJSON(w, http.StatusOK, s.episodes.Events(since))
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	resp, err := s.assistant.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleListNotebooks(w http.ResponseWriter, r *http.Request) {
	list, err := s.notebooks.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotebookListResponse{Notebooks: list})
}

func (s *apiServer) handleCreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req api.CreateNotebookRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	nb, err := s.notebooks.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, nb)
}

func (s *apiServer) handleGetNotebook(w http.ResponseWriter, r *http.Request) {
	nb, err := s.notebooks.Describe(r.Context(), chi.URLParam(r, "notebookID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nb)
}

func (s *apiServer) handleDeleteNotebook(w http.ResponseWriter, r *http.Request) {
	if err := s.notebooks.Delete(r.Context(), chi.URLParam(r, "notebookID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req api.AddSourceRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	src, err := s.notebooks.AddSource(r.Context(), chi.URLParam(r, "notebookID"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, src)
}

func (s *apiServer) handleStartEpisode(w http.ResponseWriter, r *http.Request) {
	var req api.StartEpisodeRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	resp, err := s.episodes.Start(r.Context(), chi.URLParam(r, "notebookID"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := s.episodes.Describe(chi.URLParam(r, "notebookID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, episode)
}

func (s *apiServer) handleEpisodeAudio(w http.ResponseWriter, r *http.Request) {
	wav, name, err := s.episodes.Audio(r.Context(), chi.URLParam(r, "notebookID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

func (s *apiServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := s.assistant.Summary(r.Context(), chi.URLParam(r, "notebookID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	resp, err := s.assistant.Chat(r.Context(), chi.URLParam(r, "notebookID"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body into dst. An empty body is accepted when optional.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := api.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.log().Error("api request failed", logging.Error(err), logging.String(logging.FieldEventType, "api_error"))
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
