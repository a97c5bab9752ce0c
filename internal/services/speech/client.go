package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"vaultcast/internal/services"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	defaultCharLimit   = 4800
	defaultSampleRate  = 24000
	responseFormat     = "pcm16"
	maxAudioBytes      = 64 << 20
)

// Voice maps a dialogue speaker label to a provider voice.
type Voice struct {
	Speaker string `json:"speaker"`
	Voice   string `json:"voice"`
}

// Config captures speech endpoint settings.
type Config struct {
	APIKey         string
	URL            string
	Model          string
	Voices         []Voice
	SampleRate     int
	CharLimit      int
	TimeoutSeconds int
}

// Client calls the speech endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a speech client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.CharLimit <= 0 {
		cfg.CharLimit = defaultCharLimit
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether the client can attempt a call.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.URL != ""
}

// SampleRate returns the PCM sample rate requested from the provider.
func (c *Client) SampleRate() int {
	return c.cfg.SampleRate
}

type speechRequest struct {
	Model      string  `json:"model"`
	Input      string  `json:"input"`
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
	Speakers   []Voice `json:"speakers,omitempty"`
}

type speechResponse struct {
	Audio string `json:"audio"`
	Data  string `json:"data"`
}

// Synthesize converts dialogue text to base64 PCM16 mono audio. Input longer
// than the configured character limit is truncated at a line boundary when
// possible.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("speech synthesize: %w: input required", services.ErrValidation)
	}
	if !c.Configured() {
		return "", fmt.Errorf("speech synthesize: %w: api key and url required", services.ErrConfiguration)
	}
	payload := speechRequest{
		Model:      c.cfg.Model,
		Input:      Truncate(text, c.cfg.CharLimit),
		Format:     responseFormat,
		SampleRate: c.cfg.SampleRate,
		Speakers:   c.cfg.Voices,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("speech synthesize: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("speech synthesize: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/pcm, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech synthesize: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return "", fmt.Errorf("speech synthesize: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.NewStatusError("speech synthesize", resp, body)
	}
	return decodeAudio(resp.Header.Get("Content-Type"), body)
}

func decodeAudio(contentType string, body []byte) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	var pcm []byte
	if mediaType == "application/json" {
		var parsed speechResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("speech synthesize: %w: decode response: %w", services.ErrMalformed, err)
		}
		encoded := strings.TrimSpace(parsed.Audio)
		if encoded == "" {
			encoded = strings.TrimSpace(parsed.Data)
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("speech synthesize: %w: audio is not base64: %w", services.ErrMalformed, err)
		}
		pcm = decoded
	} else {
		pcm = body
	}
	if len(pcm) == 0 {
		return "", fmt.Errorf("speech synthesize: %w: empty audio", services.ErrTransient)
	}
	if len(pcm)%2 != 0 {
		return "", fmt.Errorf("speech synthesize: %w: odd pcm16 length %d", services.ErrMalformed, len(pcm))
	}
	return base64.StdEncoding.EncodeToString(pcm), nil
}

// Truncate caps text at limit runes, preferring to cut at the last newline.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, "\n"); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
