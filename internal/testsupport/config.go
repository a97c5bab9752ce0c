package testsupport

import (
	"path/filepath"
	"testing"

	"vaultcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The provider is unconfigured and retry delays are shrunk so tests that
// exercise failure paths finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Provider.APIKey = ""
	cfgVal.Provider.RetryAttempts = 2
	cfgVal.Provider.RetryBaseMillis = 1
	cfgVal.Provider.RetryMaxMillis = 2
	cfgVal.Provider.RetryJitter = false
	cfgVal.Provider.TimeoutSeconds = 5
	cfgVal.Generation.SynthesisBackoffMs = 1
	cfgVal.Generation.SegmentWindowSeconds = 2
	cfgVal.Generation.MinFreeDiskMegabytes = 0
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithProvider points every provider endpoint at baseURL and sets an API key.
func WithProvider(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Provider.APIKey = "test-key"
		b.cfg.Provider.BaseURL = baseURL + "/chat/completions"
		b.cfg.Provider.SpeechURL = baseURL + "/audio/speech"
		b.cfg.Provider.ImageURL = baseURL + "/images/generations"
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithSynthesisAttempts overrides the per-segment synthesis attempt budget.
func WithSynthesisAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.SynthesisAttempts = attempts
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
