package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"vaultcast/internal/config"
	"vaultcast/internal/jobs"
	"vaultcast/internal/notebook"
	"vaultcast/internal/services"
	"vaultcast/internal/testsupport"
)

// fakeProvider serves chat, speech and image endpoints. Handlers default to
// success and can be replaced per test.
type fakeProvider struct {
	chat   func(w http.ResponseWriter, system, user string)
	speech http.HandlerFunc
	image  http.HandlerFunc
	calls  atomic.Int32
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	switch r.URL.Path {
	case "/chat/completions":
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		system, user := "", ""
		if len(req.Messages) == 2 {
			system, user = req.Messages[0].Content, req.Messages[1].Content
		}
		f.chat(w, system, user)
	case "/audio/speech":
		f.speech(w, r)
	case "/images/generations":
		f.image(w, r)
	default:
		http.NotFound(w, r)
	}
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"content": content}}},
	})
}

func newFake(t *testing.T) (*fakeProvider, *config.Config) {
	t.Helper()
	fake := &fakeProvider{
		chat: func(w http.ResponseWriter, system, user string) {
			writeCompletion(w, `{"ok":true}`)
		},
		speech: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "audio/pcm")
			_, _ = w.Write([]byte{0, 1, 0, 1})
		},
		image: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no images", http.StatusBadRequest)
		},
	}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return fake, testsupport.NewConfig(t, testsupport.WithProvider(server.URL))
}

var sampleNotebook = notebook.Notebook{
	ID:    "nb-1",
	Title: "Ocean Life",
	Sources: []notebook.Source{
		{Title: "Reefs", Content: "Coral reefs host a quarter of marine species."},
		{Title: "Vents", Content: "Hydrothermal vents support chemosynthetic life."},
	},
}

func TestGenerateOutline(t *testing.T) {
	fake, cfg := newFake(t)
	fake.chat = func(w http.ResponseWriter, system, user string) {
		if !strings.Contains(user, "(Reefs)") || !strings.Contains(user, "SOURCE 1 (Vents)") {
			t.Errorf("outline prompt missing grounding: %q", user)
		}
		writeCompletion(w, "```json\n"+`{"segments":[
			{"title":"Intro","topics":["reefs"]},
			{"title":"Depths","topics":["vents"," chemosynthesis ",""]},
			{"title":"Wrap","topics":["future research"]}
		]}`+"\n```")
	}

	outline, err := NewClient(cfg, nil).GenerateOutline(context.Background(), sampleNotebook)
	if err != nil {
		t.Fatalf("GenerateOutline: %v", err)
	}
	if len(outline) != 3 || outline[2].Index != 2 {
		t.Fatalf("unexpected outline %+v", outline)
	}
	if got := outline[1].Topics; len(got) != 2 || got[1] != "chemosynthesis" {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestGenerateOutlineRejectsShapeWithoutRetry(t *testing.T) {
	cases := map[string]string{
		"too few segments": `{"segments":[{"topics":["a"]},{"topics":["b"]}]}`,
		"too many topics":  `{"segments":[{"topics":["a"]},{"topics":["b","c","d","e"]},{"topics":["f"]}]}`,
		"no topics":        `{"segments":[{"topics":["a"]},{"topics":[]},{"topics":["f"]}]}`,
		"not json":         `the outline is about reefs`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			fake, cfg := newFake(t)
			cfg.Provider.RetryAttempts = 3
			fake.chat = func(w http.ResponseWriter, system, user string) { writeCompletion(w, payload) }

			_, err := NewClient(cfg, nil).GenerateOutline(context.Background(), sampleNotebook)
			if !errors.Is(err, services.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if services.Classify(err).Transient {
				t.Fatalf("malformed outline must be permanent: %v", err)
			}
			if got := fake.calls.Load(); got != 1 {
				t.Fatalf("expected a single request, got %d", got)
			}
		})
	}
}

func TestTransientFailuresAreRetried(t *testing.T) {
	fake, cfg := newFake(t)
	cfg.Provider.RetryAttempts = 3
	var attempts atomic.Int32
	fake.chat = func(w http.ResponseWriter, system, user string) {
		if attempts.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeCompletion(w, `{"summary":"Reefs and vents."}`)
	}

	summary, err := NewClient(cfg, nil).GenerateSummary(context.Background(), sampleNotebook)
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if summary != "Reefs and vents." || attempts.Load() != 3 {
		t.Fatalf("summary=%q attempts=%d", summary, attempts.Load())
	}
}

func TestQuotaExhaustion(t *testing.T) {
	fake, cfg := newFake(t)
	fake.speech = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}

	_, err := NewClient(cfg, nil).SynthesizeSpeech(context.Background(), "Alex: hi")
	if !services.IsQuota(err) || !Exhausted(err) {
		t.Fatalf("expected exhausted quota error, got %v", err)
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected ErrExternal marker, got %v", err)
	}
	if got := fake.calls.Load(); got != int32(cfg.Provider.RetryAttempts) {
		t.Fatalf("expected %d attempts, got %d", cfg.Provider.RetryAttempts, got)
	}
}

func TestSynthesizeSpeech(t *testing.T) {
	_, cfg := newFake(t)
	audio, err := NewClient(cfg, nil).SynthesizeSpeech(context.Background(), "Alex: hi\nSam: hello")
	if err != nil {
		t.Fatalf("SynthesizeSpeech: %v", err)
	}
	if audio != base64.StdEncoding.EncodeToString([]byte{0, 1, 0, 1}) {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestGenerateScriptSegment(t *testing.T) {
	fake, cfg := newFake(t)
	cfg.Generation.SegmentWindowSeconds = 60
	outline := jobs.Outline{
		{Index: 0, Topics: []string{"reefs"}},
		{Index: 1, Topics: []string{"vents"}},
		{Index: 2, Topics: []string{"future"}},
	}
	fake.chat = func(w http.ResponseWriter, system, user string) {
		if !strings.Contains(user, "Segment 2 of 3") || !strings.Contains(user, "SOURCE 1 (Vents)") {
			t.Errorf("unexpected script prompt %q", user)
		}
		writeCompletion(w, `{"script":"Alex: Vents!\nSam: Wow.","transcript":[
			{"speaker":"alex","text":"Vents!","startMs":0,"endMs":3000},
			{"speaker":"SAM","text":"Wow.","startMs":3000,"endMs":5000}
		]}`)
	}

	script, err := NewClient(cfg, nil).GenerateScriptSegment(context.Background(), ScriptRequest{
		Notebook:     sampleNotebook,
		Outline:      outline,
		SegmentIndex: 1,
		Personality:  "balanced",
	})
	if err != nil {
		t.Fatalf("GenerateScriptSegment: %v", err)
	}
	window := cfg.SegmentWindow().Milliseconds()
	first, second := script.Transcript[0], script.Transcript[1]
	if first.Speaker != jobs.HostA || second.Speaker != jobs.HostB {
		t.Fatalf("speakers not normalised: %+v", script.Transcript)
	}
	if first.StartMs != window || second.EndMs != window+5000 {
		t.Fatalf("lines not offset onto the episode timeline: %+v", script.Transcript)
	}
}

func TestGenerateScriptSegmentRejectsForeignSpeaker(t *testing.T) {
	fake, cfg := newFake(t)
	fake.chat = func(w http.ResponseWriter, system, user string) {
		writeCompletion(w, `{"script":"Narrator: hi","transcript":[{"speaker":"Narrator","text":"hi"}]}`)
	}
	_, err := NewClient(cfg, nil).GenerateScriptSegment(context.Background(), ScriptRequest{
		Notebook:    sampleNotebook,
		Outline:     jobs.Outline{{Topics: []string{"a"}}, {Topics: []string{"b"}}, {Topics: []string{"c"}}},
		Personality: "balanced",
	})
	if !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestGenerateScriptSegmentValidatesIndex(t *testing.T) {
	_, cfg := newFake(t)
	_, err := NewClient(cfg, nil).GenerateScriptSegment(context.Background(), ScriptRequest{SegmentIndex: 3})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGenerateArtworkNeverFails(t *testing.T) {
	fake, cfg := newFake(t)
	client := NewClient(cfg, nil)
	if uri := client.GenerateArtwork(context.Background(), sampleNotebook); uri != "" {
		t.Fatalf("expected empty artwork on failure, got %q", uri)
	}

	fake.image = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"url":"https://cdn.example.com/cover.png"}]}`))
	}
	if uri := client.GenerateArtwork(context.Background(), sampleNotebook); uri != "https://cdn.example.com/cover.png" {
		t.Fatalf("unexpected artwork %q", uri)
	}
}

func TestPerformWebSearch(t *testing.T) {
	fake, cfg := newFake(t)
	fake.chat = func(w http.ResponseWriter, system, user string) {
		writeCompletion(w, `{"results":[
			{"title":"Reef atlas","url":"https://example.com/reefs","snippet":"maps"},
			{"title":"bad","url":"ftp://example.com"},
			{"url":"https://example.com/untitled"}
		]}`)
	}
	results, err := NewClient(cfg, nil).PerformWebSearch(context.Background(), "coral")
	if err != nil {
		t.Fatalf("PerformWebSearch: %v", err)
	}
	if len(results) != 2 || results[1].Title != "https://example.com/untitled" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestGenerateChatAnswer(t *testing.T) {
	fake, cfg := newFake(t)
	fake.chat = func(w http.ResponseWriter, system, user string) {
		if !strings.Contains(user, "Question: What lives near vents?") {
			t.Errorf("unexpected chat prompt %q", user)
		}
		writeCompletion(w, `{"answer":"Chemosynthetic bacteria (Vents)."}`)
	}
	answer, err := NewClient(cfg, nil).GenerateChatAnswer(context.Background(), sampleNotebook, "What lives near vents?")
	if err != nil || answer != "Chemosynthetic bacteria (Vents)." {
		t.Fatalf("GenerateChatAnswer = %q, %v", answer, err)
	}

	fake.chat = func(w http.ResponseWriter, system, user string) { writeCompletion(w, `{"answer":"  "}`) }
	if _, err := NewClient(cfg, nil).GenerateChatAnswer(context.Background(), sampleNotebook, "again?"); !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for blank answer, got %v", err)
	}
}

func TestUnconfiguredClientFailsPermanently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := NewClient(cfg, nil)
	if client.Configured() {
		t.Fatal("expected unconfigured client")
	}
	_, err := client.GenerateOutline(context.Background(), sampleNotebook)
	if !errors.Is(err, services.ErrConfiguration) || Exhausted(err) {
		t.Fatalf("expected immediate configuration error, got %v", err)
	}
}

func TestScriptSpeakable(t *testing.T) {
	script := Script{Transcript: []jobs.TranscriptLine{
		{Speaker: jobs.HostA, Text: " Hello "},
		{Speaker: jobs.HostB, Text: "Hi"},
	}}
	if got := script.Speakable(); got != "Alex: Hello\nSam: Hi" {
		t.Fatalf("Speakable() = %q", got)
	}
	script.Script = "Alex: custom"
	if script.Speakable() != "Alex: custom" {
		t.Fatal("expected script body to win")
	}
}

func TestParsePersonality(t *testing.T) {
	if p, ok := ParsePersonality(""); !ok || p != DefaultPersonality {
		t.Fatalf("ParsePersonality(\"\") = %q, %v", p, ok)
	}
	if p, ok := ParsePersonality(" Skeptical "); !ok || p != "skeptical" {
		t.Fatalf("ParsePersonality(Skeptical) = %q, %v", p, ok)
	}
	if _, ok := ParsePersonality("grumpy"); ok {
		t.Fatal("expected unknown personality")
	}
	if got := Personalities(); len(got) != 5 || got[0] != "academic" {
		t.Fatalf("Personalities() = %v", got)
	}
}
