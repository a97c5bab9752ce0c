// Package artwork wraps the provider's image generation endpoint used for
// episode cover art.
package artwork

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vaultcast/internal/services"
)

const (
	defaultHTTPTimeout = 90 * time.Second
	defaultSize        = "1024x1024"
	maxImageBytes      = 32 << 20
)

// Config captures image endpoint settings.
type Config struct {
	APIKey         string
	URL            string
	Model          string
	Size           string
	TimeoutSeconds int
}

// Client calls the image endpoint.
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

// NewClient constructs an image client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if strings.TrimSpace(cfg.Size) == "" {
		cfg.Size = defaultSize
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

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

// Generate renders prompt and returns the image as a data URI, or the hosted
// URL when the provider ignores the base64 response format.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("artwork generate: %w: prompt required", services.ErrValidation)
	}
	if !c.Configured() {
		return "", fmt.Errorf("artwork generate: %w: api key and url required", services.ErrConfiguration)
	}
	encoded, err := json.Marshal(imageRequest{
		Model:          c.cfg.Model,
		Prompt:         prompt,
		Size:           c.cfg.Size,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return "", fmt.Errorf("artwork generate: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("artwork generate: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("artwork generate: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("artwork generate: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", services.NewStatusError("artwork generate", resp, body)
	}

	var parsed imageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("artwork generate: %w: decode response: %w", services.ErrMalformed, err)
	}
	for _, item := range parsed.Data {
		if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
			raw, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return "", fmt.Errorf("artwork generate: %w: image is not base64: %w", services.ErrMalformed, err)
			}
			return "data:" + http.DetectContentType(raw) + ";base64," + b64, nil
		}
		if url := strings.TrimSpace(item.URL); url != "" {
			return url, nil
		}
	}
	return "", fmt.Errorf("artwork generate: %w: no image in response", services.ErrMalformed)
}
