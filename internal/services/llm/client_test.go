package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vaultcast/internal/services"
)

func completionServer(t *testing.T, payload map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
}

func messagePayload(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "vaultcast" {
			t.Fatalf("unexpected title header %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat["type"] != "json_object" || req.Model != "demo-model" {
			t.Fatalf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(messagePayload(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "vaultcast"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := completionServer(t, messagePayload("```json\n{\"ok\":true}\n```"))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailureIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if verdict := services.Classify(err); verdict.Transient {
		t.Fatalf("expected 401 to be permanent, got %+v", verdict)
	}
}

func TestClientReportsRateLimitAsQuotaWithRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "slow down"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected status error, got %v", err)
	}
	if statusErr.RetryAfter != 2*time.Second {
		t.Fatalf("expected retry-after 2s, got %s", statusErr.RetryAfter)
	}
	if !services.IsQuota(err) {
		t.Fatalf("expected quota classification, got %+v", services.Classify(err))
	}
}

func TestClientEmptyContentIsTransientWithSnippet(t *testing.T) {
	server := completionServer(t, map[string]any{
		"choices": []any{
			map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}},
		},
	})
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected empty content error")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
	if !services.Classify(err).Transient {
		t.Fatalf("expected empty content to be transient")
	}
}

func TestClientAcceptsDeltaToolCallAndLegacyText(t *testing.T) {
	payloads := map[string]map[string]any{
		"delta": {
			"choices": []any{map[string]any{"delta": map[string]any{"content": `{"a":1}`}}},
		},
		"tool": {
			"choices": []any{map[string]any{
				"finish_reason": "tool_calls",
				"message": map[string]any{
					"content": "",
					"tool_calls": []any{map[string]any{
						"type":     "function",
						"id":       "call_1",
						"function": map[string]any{"name": "emit", "arguments": `{"a":1}`},
					}},
				},
			}},
		},
		"text": {
			"choices": []any{map[string]any{"finish_reason": "stop", "text": `{"a":1}`}},
		},
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			server := completionServer(t, payload)
			defer server.Close()

			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
			content, err := client.CompleteJSON(context.Background(), "system", "user")
			if err != nil {
				t.Fatalf("CompleteJSON returned error: %v", err)
			}
			var parsed struct {
				A int `json:"a"`
			}
			if err := DecodeLLMJSON(content, &parsed); err != nil || parsed.A != 1 {
				t.Fatalf("unexpected content %q: %v", content, err)
			}
		})
	}
}

func TestClientModelOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(messagePayload(`{"model":"` + req.Model + `"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "default"})
	content, err := client.CompleteJSONWithModel(context.Background(), "search:online", "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSONWithModel returned error: %v", err)
	}
	if !strings.Contains(content, "search:online") {
		t.Fatalf("expected override model, got %q", content)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if client.Configured() {
		t.Fatal("expected unconfigured client")
	}
}

func TestDecodeLLMJSONExtractsObjectFromProse(t *testing.T) {
	var parsed struct {
		Segments []int `json:"segments"`
	}
	if err := DecodeLLMJSON("Here you go: {\"segments\":[1,2]} hope it helps", &parsed); err != nil {
		t.Fatalf("DecodeLLMJSON returned error: %v", err)
	}
	if len(parsed.Segments) != 2 {
		t.Fatalf("unexpected segments %v", parsed.Segments)
	}
	if err := DecodeLLMJSON("   ", &parsed); err == nil {
		t.Fatal("expected empty payload error")
	}
}
