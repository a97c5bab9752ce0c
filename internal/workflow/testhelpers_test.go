package workflow_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"vaultcast/internal/backend"
	"vaultcast/internal/config"
	"vaultcast/internal/jobs"
	"vaultcast/internal/notebook"
	"vaultcast/internal/notifications"
	"vaultcast/internal/testsupport"
	"vaultcast/internal/workflow"
)

// fakeProvider is a scriptable backend.Provider. Nil hooks succeed.
type fakeProvider struct {
	mu         sync.Mutex
	configured bool
	window     time.Duration

	outlineFn func(nb notebook.Notebook) (jobs.Outline, error)
	scriptFn  func(req backend.ScriptRequest) (backend.Script, error)
	synthFn   func(ctx context.Context, call int, text string) (string, error)

	outlineCalls int
	scriptCalls  int
	synthCalls   int
	artworkCalls int
}

func newFakeProvider(cfg *config.Config) *fakeProvider {
	return &fakeProvider{configured: true, window: cfg.SegmentWindow()}
}

func (f *fakeProvider) Configured() bool                   { return f.configured }
func (f *fakeProvider) HealthCheck(context.Context) error { return nil }

func (f *fakeProvider) GenerateOutline(_ context.Context, nb notebook.Notebook) (jobs.Outline, error) {
	f.mu.Lock()
	f.outlineCalls++
	fn := f.outlineFn
	f.mu.Unlock()
	if fn != nil {
		return fn(nb)
	}
	return jobs.Outline{
		{Index: 0, Title: "Opening", Topics: []string{"kelp growth"}},
		{Index: 1, Title: "Middle", Topics: []string{"sea otters"}},
		{Index: 2, Title: "Closing", Topics: []string{"urchin barrens"}},
	}, nil
}

func (f *fakeProvider) GenerateScriptSegment(_ context.Context, req backend.ScriptRequest) (backend.Script, error) {
	f.mu.Lock()
	f.scriptCalls++
	fn := f.scriptFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	lines := []jobs.TranscriptLine{
		{Speaker: jobs.HostA, Text: "Remote line one."},
		{Speaker: jobs.HostB, Text: "Remote line two."},
	}
	return backend.Script{Transcript: backend.SpaceEvenly(lines, req.SegmentIndex, f.window)}, nil
}

func (f *fakeProvider) SynthesizeSpeech(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.synthCalls++
	call := f.synthCalls
	fn := f.synthFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, call, text)
	}
	return pcmChunk(480), nil
}

func (f *fakeProvider) GenerateArtwork(context.Context, notebook.Notebook) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artworkCalls++
	return "data:image/png;base64,AAAA"
}

func (f *fakeProvider) GenerateSummary(context.Context, notebook.Notebook) (string, error) {
	return "summary", nil
}

func (f *fakeProvider) PerformWebSearch(context.Context, string) ([]backend.SearchResult, error) {
	return nil, nil
}

func (f *fakeProvider) GenerateChatAnswer(context.Context, notebook.Notebook, string) (string, error) {
	return "answer", nil
}

func (f *fakeProvider) calls() (outline, script, synth int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outlineCalls, f.scriptCalls, f.synthCalls
}

// pcmChunk returns n non-zero PCM16 samples, base64 encoded.
func pcmChunk(samples int) string {
	raw := make([]byte, samples*2)
	for i := range raw {
		raw[i] = byte(i%250) + 1
	}
	return base64.StdEncoding.EncodeToString(raw)
}

type recordingNotifier struct {
	mu     sync.Mutex
	ready  []notifications.EpisodeReady
	errors []string
}

func (n *recordingNotifier) NotifyEpisodeReady(_ context.Context, note notifications.EpisodeReady) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = append(n.ready, note)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, context string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, context+": "+err.Error())
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func (n *recordingNotifier) readyNotes() []notifications.EpisodeReady {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.EpisodeReady(nil), n.ready...)
}

// recordingStore keeps every checkpoint written so tests can assert on the
// full history of a job.
type recordingStore struct {
	*jobs.MemoryStore
	mu    sync.Mutex
	saves []jobs.Job
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: jobs.NewMemoryStore()}
}

func (s *recordingStore) Save(ctx context.Context, job jobs.Job) error {
	s.mu.Lock()
	s.saves = append(s.saves, job.Clone())
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, job)
}

func (s *recordingStore) history(jobID string) []jobs.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []jobs.Job
	for _, job := range s.saves {
		if job.ID == jobID {
			out = append(out, job)
		}
	}
	return out
}

type harness struct {
	cfg       *config.Config
	notebooks *notebook.Store
	store     *recordingStore
	provider  *fakeProvider
	notifier  *recordingNotifier
	manager   *workflow.Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:       cfg,
		notebooks: notebook.NewStore(testsupport.MustOpenDB(t, cfg)),
		store:     newRecordingStore(),
		provider:  newFakeProvider(cfg),
		notifier:  &recordingNotifier{},
	}
	h.manager = h.newManager(t)
	return h
}

func (h *harness) newManager(t *testing.T) *workflow.Manager {
	t.Helper()
	manager, err := workflow.NewManager(h.cfg, workflow.Dependencies{
		Notebooks: h.notebooks,
		Jobs:      h.store,
		Provider:  h.provider,
		Notifier:  h.notifier,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(manager.Stop)
	return manager
}

func (h *harness) kelpNotebook(t *testing.T) notebook.Notebook {
	t.Helper()
	return testsupport.NewNotebook(t, h.notebooks, "kelp forests",
		notebook.Source{Title: "Growth", Content: "Giant kelp grows up to half a metre per day."},
		notebook.Source{Title: "Otters", Content: "Sea otters keep urchin populations in check, protecting kelp growth."},
	)
}

func (h *harness) start(t *testing.T, notebookID string) string {
	t.Helper()
	jobID, err := h.manager.StartJob(context.Background(), notebookID, "")
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	return jobID
}

// waitDone waits until the notebook's runner has exited and returns the final snapshot.
func waitDone(t *testing.T, m *workflow.Manager, notebookID string) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !m.IsActive(notebookID) {
			if job, ok := m.Job(notebookID); ok {
				return job
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := m.Job(notebookID)
	t.Fatalf("job for %s did not finish; last state %q", notebookID, job.State)
	return jobs.Job{}
}

func assertHostsOnly(t *testing.T, lines []jobs.TranscriptLine) {
	t.Helper()
	for i, line := range lines {
		if !jobs.IsHost(line.Speaker) {
			t.Fatalf("transcript line %d has speaker %q", i, line.Speaker)
		}
	}
}

var errPermanent = errors.New("503 unavailable")

// gatedStore blocks the first checkpoint lookup for one notebook until gate
// is closed, signalling entered when it starts waiting.
type gatedStore struct {
	jobs.Store
	notebookID string
	once       sync.Once
	entered    chan struct{}
	gate       chan struct{}
}

func newGatedStore(inner jobs.Store, notebookID string) *gatedStore {
	return &gatedStore{
		Store:      inner,
		notebookID: notebookID,
		entered:    make(chan struct{}),
		gate:       make(chan struct{}),
	}
}

func (s *gatedStore) Latest(ctx context.Context, notebookID string) (jobs.Job, bool, error) {
	if notebookID == s.notebookID {
		s.once.Do(func() { close(s.entered) })
		<-s.gate
	}
	return s.Store.Latest(ctx, notebookID)
}
