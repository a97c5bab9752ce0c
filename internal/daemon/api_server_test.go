package daemon

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vaultcast/internal/api"
	"vaultcast/internal/backend"
	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
	"vaultcast/internal/sqlitedb"
	"vaultcast/internal/testsupport"
)

func newTestDaemon(t *testing.T, token string) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = token
	db, err := sqlitedb.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("sqlitedb.Open: %v", err)
	}
	logger := logging.NewNop()
	d, err := New(cfg, db, backend.NewClient(cfg, logger), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func call(t *testing.T, d *Daemon, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	d.api.router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w
}

func TestAPIEpisodeLifecycle(t *testing.T) {
	d := newTestDaemon(t, "")

	var nb api.Notebook
	if w := call(t, d, http.MethodPost, "/api/notebooks", api.CreateNotebookRequest{Title: "Kelp forests"}, &nb); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	src := api.AddSourceRequest{Kind: "text", Title: "Growth", Content: "Giant kelp grows up to half a metre per day."}
	if w := call(t, d, http.MethodPost, "/api/notebooks/"+nb.ID+"/sources", src, nil); w.Code != http.StatusCreated {
		t.Fatalf("add source: %d %s", w.Code, w.Body.String())
	}

	var started api.StartEpisodeResponse
	if w := call(t, d, http.MethodPost, "/api/notebooks/"+nb.ID+"/episodes", nil, &started); w.Code != http.StatusAccepted {
		t.Fatalf("start: %d %s", w.Code, w.Body.String())
	}
	if started.JobID == "" {
		t.Fatal("expected a job id")
	}

	var episode api.Episode
	deadline := time.Now().Add(10 * time.Second)
	for {
		if w := call(t, d, http.MethodGet, "/api/notebooks/"+nb.ID+"/episode", nil, &episode); w.Code != http.StatusOK {
			t.Fatalf("episode: %d %s", w.Code, w.Body.String())
		}
		if episode.Ready && !d.workflow.IsActive(nb.ID) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("episode not ready: %+v", episode)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if episode.JobID != started.JobID || episode.Mode != string(jobs.ModeFailsafe) || len(episode.Chapters) == 0 {
		t.Fatalf("unexpected episode %+v", episode)
	}

	w := call(t, d, http.MethodGet, "/api/notebooks/"+nb.ID+"/episode/audio", nil, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "audio/wav" {
		t.Fatalf("audio: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("RIFF")) {
		t.Fatal("expected a RIFF body")
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "Kelp forests.wav") {
		t.Fatalf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}

	var events api.EventsResponse
	call(t, d, http.MethodGet, "/api/events?since=0", nil, &events)
	if len(events.Events) == 0 || events.Events[len(events.Events)-1].Type != "ready" {
		t.Fatalf("expected events ending with ready, got %+v", events.Events)
	}
	for _, evt := range events.Events {
		if evt.State == string(jobs.StateFailed) {
			t.Fatalf("event %d exposed the failed state", evt.Seq)
		}
	}

	var detail api.Notebook
	call(t, d, http.MethodGet, "/api/notebooks/"+nb.ID, nil, &detail)
	if len(detail.Media) != 1 || detail.Media[0].Kind != "audio" {
		t.Fatalf("expected one media entry, got %+v", detail.Media)
	}

	if w := call(t, d, http.MethodDelete, "/api/notebooks/"+nb.ID, nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	if w := call(t, d, http.MethodGet, "/api/notebooks/"+nb.ID+"/episode", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected forgotten episode, got %d", w.Code)
	}
}

func TestAPIErrors(t *testing.T) {
	d := newTestDaemon(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"missing notebook", http.MethodGet, "/api/notebooks/nope", nil, http.StatusNotFound},
		{"start missing notebook", http.MethodPost, "/api/notebooks/nope/episodes", nil, http.StatusNotFound},
		{"no episode", http.MethodGet, "/api/notebooks/nope/episode", nil, http.StatusNotFound},
		{"blank title", http.MethodPost, "/api/notebooks", api.CreateNotebookRequest{}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/notebooks", map[string]string{"name": "x"}, http.StatusBadRequest},
		{"bad cursor", http.MethodGet, "/api/events?since=abc", nil, http.StatusBadRequest},
		{"empty search", http.MethodGet, "/api/search?q=", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(t, d, tt.method, tt.path, tt.body, nil)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.code, w.Body.String())
			}
		})
	}
}

func TestAPIAuxiliaryPlaceholders(t *testing.T) {
	d := newTestDaemon(t, "")

	var nb api.Notebook
	call(t, d, http.MethodPost, "/api/notebooks", api.CreateNotebookRequest{Title: "Kelp"}, &nb)

	var summary api.SummaryResponse
	if w := call(t, d, http.MethodPost, "/api/notebooks/"+nb.ID+"/summary", nil, &summary); w.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}
	if !summary.Placeholder || summary.Summary != backend.PlaceholderSummary {
		t.Fatalf("expected placeholder summary, got %+v", summary)
	}

	var chat api.ChatResponse
	call(t, d, http.MethodPost, "/api/notebooks/"+nb.ID+"/chat", api.ChatRequest{Question: "Why kelp?"}, &chat)
	if !chat.Placeholder || chat.Answer != backend.PlaceholderAnswer {
		t.Fatalf("expected placeholder answer, got %+v", chat)
	}

	var search api.SearchResponse
	call(t, d, http.MethodGet, "/api/search?q=kelp", nil, &search)
	if search.Results == nil || len(search.Results) != 0 {
		t.Fatalf("expected an empty result list, got %+v", search)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	d := newTestDaemon(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/notebooks", nil)
	w := httptest.NewRecorder()
	d.api.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/notebooks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	d.api.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAPIStatus(t *testing.T) {
	d := newTestDaemon(t, "")

	var status api.DaemonStatus
	if w := call(t, d, http.MethodGet, "/api/status", nil, &status); w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if status.ProviderEnabled || status.Running || len(status.Checks) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	if !status.Checks[0].Passed {
		t.Fatalf("unconfigured provider should pass: %+v", status.Checks[0])
	}
}

func TestAPITestNotification(t *testing.T) {
	d := newTestDaemon(t, "")

	var resp api.NotificationResponse
	if w := call(t, d, http.MethodPost, "/api/notifications/test", nil, &resp); w.Code != http.StatusOK {
		t.Fatalf("test notification: %d", w.Code)
	}
	if resp.Sent || !strings.Contains(resp.Message, "not configured") {
		t.Fatalf("unexpected response %+v", resp)
	}
}
