package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vaultcast/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Provider contains connection settings for the generative-AI provider.
type Provider struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	SpeechURL       string `toml:"speech_url"`
	ImageURL        string `toml:"image_url"`
	Model           string `toml:"model"`
	SearchModel     string `toml:"search_model"`
	SpeechModel     string `toml:"speech_model"`
	ImageModel      string `toml:"image_model"`
	HostAVoice      string `toml:"host_a_voice"`
	HostBVoice      string `toml:"host_b_voice"`
	Referer         string `toml:"referer"`
	Title           string `toml:"title"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	SpeechCharLimit int    `toml:"speech_char_limit"`
	SampleRate      int    `toml:"sample_rate"`
	RetryAttempts   int    `toml:"retry_attempts"`
	RetryBaseMillis int    `toml:"retry_base_ms"`
	RetryMaxMillis  int    `toml:"retry_max_ms"`
	RetryJitter     bool   `toml:"retry_jitter"`
}

// Generation contains orchestrator tuning.
type Generation struct {
	DefaultPersonality    string `toml:"default_personality"`
	SynthesisAttempts     int    `toml:"synthesis_attempts"`
	SynthesisBackoffMs    int    `toml:"synthesis_backoff_ms"`
	SegmentWindowSeconds  int    `toml:"segment_window_seconds"`
	TemplateCatalog       string `toml:"template_catalog"`
	Artwork               bool   `toml:"artwork"`
	PersistJobs           bool   `toml:"persist_jobs"`
	EventBufferSize       int    `toml:"event_buffer_size"`
	ResumeOnStart         bool   `toml:"resume_on_start"`
	MinFreeDiskMegabytes  int    `toml:"min_free_disk_mb"`
	SourceFetchTimeoutSec int    `toml:"source_fetch_timeout_seconds"`
}

// Grounding contains retrieval selector limits.
type Grounding struct {
	TopK           int `toml:"top_k"`
	MaxSourceChars int `toml:"max_source_chars"`
	OutlineExcerpt int `toml:"outline_excerpt_chars"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	EpisodeReady   bool   `toml:"episode_ready"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vaultcast.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Provider: generative-AI endpoints, models, voices and retry policy
//   - Generation: orchestrator synthesis retries, segment window, fallback catalog
//   - Grounding: retrieval selector limits
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Provider      Provider      `toml:"provider"`
	Generation    Generation    `toml:"generation"`
	Grounding     Grounding     `toml:"grounding"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vaultcast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vaultcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "vaultcast.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "vaultcastd.lock")
}

// ProviderConfigured reports whether remote generation can be attempted.
func (c *Config) ProviderConfigured() bool {
	return strings.TrimSpace(c.Provider.APIKey) != ""
}

// ProviderTimeout returns the caller-side timeout applied to each remote call.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// SynthesisBackoff returns the fixed wait between synthesis retries.
func (c *Config) SynthesisBackoff() time.Duration {
	return time.Duration(c.Generation.SynthesisBackoffMs) * time.Millisecond
}

// SourceFetchTimeout bounds URL source downloads.
func (c *Config) SourceFetchTimeout() time.Duration {
	return time.Duration(c.Generation.SourceFetchTimeoutSec) * time.Second
}

// SegmentWindow returns the nominal duration of one episode segment.
func (c *Config) SegmentWindow() time.Duration {
	return time.Duration(c.Generation.SegmentWindowSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
