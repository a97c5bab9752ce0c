package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vaultcast/internal/config"
	"vaultcast/internal/grounding"
	"vaultcast/internal/jobs"
	"vaultcast/internal/logging"
	"vaultcast/internal/notebook"
	"vaultcast/internal/services"
	"vaultcast/internal/services/artwork"
	"vaultcast/internal/services/llm"
	"vaultcast/internal/services/retry"
	"vaultcast/internal/services/speech"
)

const stageName = "backend"

// Client implements Provider against the configured OpenAI-compatible endpoints.
type Client struct {
	chat    *llm.Client
	speech  *speech.Client
	artwork *artwork.Client

	policy      retry.Policy
	timeout     time.Duration
	window      time.Duration
	searchModel string
	sources     grounding.Selector
	outline     grounding.Selector
	logger      *slog.Logger

	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient routes every provider call through client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRetryPolicy replaces the policy derived from configuration.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// PolicyFromConfig builds the shared backoff policy from provider settings.
func PolicyFromConfig(cfg *config.Config) retry.Policy {
	return retry.Policy{
		Attempts:  cfg.Provider.RetryAttempts,
		BaseDelay: time.Duration(cfg.Provider.RetryBaseMillis) * time.Millisecond,
		MaxDelay:  time.Duration(cfg.Provider.RetryMaxMillis) * time.Millisecond,
		Jitter:    cfg.Provider.RetryJitter,
	}
}

// NewClient wires the chat, speech and image transports from cfg.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		policy:      PolicyFromConfig(cfg),
		timeout:     cfg.ProviderTimeout(),
		window:      cfg.SegmentWindow(),
		searchModel: cfg.Provider.SearchModel,
		sources:     grounding.New(cfg.Grounding.TopK, cfg.Grounding.MaxSourceChars),
		outline:     grounding.New(cfg.Grounding.TopK, cfg.Grounding.OutlineExcerpt),
		logger:      logging.NewComponentLogger(logger, stageName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if c.window <= 0 {
		c.window = time.Minute
	}

	p := cfg.Provider
	c.chat = llm.NewClient(llm.Config{
		APIKey:         p.APIKey,
		BaseURL:        p.BaseURL,
		Model:          p.Model,
		Referer:        p.Referer,
		Title:          p.Title,
		Temperature:    0.7,
		TimeoutSeconds: p.TimeoutSeconds,
	}, llm.WithHTTPClient(c.httpClient))
	c.speech = speech.NewClient(speech.Config{
		APIKey: p.APIKey,
		URL:    p.SpeechURL,
		Model:  p.SpeechModel,
		Voices: []speech.Voice{
			{Speaker: jobs.HostA, Voice: p.HostAVoice},
			{Speaker: jobs.HostB, Voice: p.HostBVoice},
		},
		SampleRate:     p.SampleRate,
		CharLimit:      p.SpeechCharLimit,
		TimeoutSeconds: p.TimeoutSeconds,
	}, speech.WithHTTPClient(c.httpClient))
	c.artwork = artwork.NewClient(artwork.Config{
		APIKey:         p.APIKey,
		URL:            p.ImageURL,
		Model:          p.ImageModel,
		TimeoutSeconds: p.TimeoutSeconds,
	}, artwork.WithHTTPClient(c.httpClient))
	return c
}

// Configured reports whether remote generation can be attempted.
func (c *Client) Configured() bool {
	return c.chat.Configured()
}

// HealthCheck pings the chat endpoint once, without retries.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.chat.HealthCheck(ctx); err != nil {
		return services.Wrap(services.ErrExternal, stageName, "health", "provider health check failed", err)
	}
	return nil
}

// GenerateOutline requests a 3-6 segment plan grounded on the notebook.
func (c *Client) GenerateOutline(ctx context.Context, nb notebook.Notebook) (jobs.Outline, error) {
	prompt := outlineUserPrompt(nb, c.outline.Select(nb.Sources, grounding.OutlineQuery(nb)))
	var outline jobs.Outline
	err := c.do(ctx, "outline", func(ctx context.Context) error {
		content, err := c.chat.CompleteJSON(ctx, outlineSystemPrompt, prompt)
		if err != nil {
			return err
		}
		outline, err = parseOutline(content)
		return err
	})
	return outline, err
}

// GenerateScriptSegment requests dialogue for one outline segment. Returned
// transcript lines sit on the episode timeline at SegmentIndex*window.
func (c *Client) GenerateScriptSegment(ctx context.Context, req ScriptRequest) (Script, error) {
	if req.SegmentIndex < 0 || req.SegmentIndex >= len(req.Outline) {
		return Script{}, fmt.Errorf("script segment: %w: index %d outside outline of %d", services.ErrValidation, req.SegmentIndex, len(req.Outline))
	}
	if req.Grounding == "" {
		req.Grounding = c.sources.Select(req.Notebook.Sources, outlineTopics(req.Outline, req.SegmentIndex))
	}
	prompt := scriptUserPrompt(req)
	var script Script
	err := c.do(ctx, "script", func(ctx context.Context) error {
		content, err := c.chat.CompleteJSON(ctx, scriptSystemPrompt, prompt)
		if err != nil {
			return err
		}
		script, err = parseScript(content, req.SegmentIndex, c.window)
		return err
	})
	return script, err
}

// SynthesizeSpeech converts script text to base64 PCM16 mono audio.
func (c *Client) SynthesizeSpeech(ctx context.Context, script string) (string, error) {
	var audio string
	err := c.do(ctx, "speech", func(ctx context.Context) error {
		var err error
		audio, err = c.speech.Synthesize(ctx, script)
		return err
	})
	return audio, err
}

// SampleRate returns the PCM sample rate of synthesized chunks.
func (c *Client) SampleRate() int {
	return c.speech.SampleRate()
}

// GenerateArtwork returns cover art as a data URI, or "" on any failure.
func (c *Client) GenerateArtwork(ctx context.Context, nb notebook.Notebook) string {
	if !c.artwork.Configured() {
		return ""
	}
	var uri string
	err := c.do(ctx, "artwork", func(ctx context.Context) error {
		var err error
		uri, err = c.artwork.Generate(ctx, artworkPrompt(nb))
		return err
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "artwork generation failed", "artwork_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, string(services.Classify(err).Kind)),
			logging.String(logging.FieldImpact, "episode is published without cover art"),
		)
		return ""
	}
	return uri
}

// GenerateSummary requests a short overview of the notebook's sources.
func (c *Client) GenerateSummary(ctx context.Context, nb notebook.Notebook) (string, error) {
	if len(nb.Sources) == 0 {
		return "", fmt.Errorf("summary: %w: notebook has no sources", services.ErrValidation)
	}
	prompt := summaryUserPrompt(nb, c.sources.Select(nb.Sources, grounding.OutlineQuery(nb)))
	var summary string
	err := c.do(ctx, "summary", func(ctx context.Context) error {
		content, err := c.chat.CompleteJSON(ctx, summarySystemPrompt, prompt)
		if err != nil {
			return err
		}
		summary, err = parseField(content, "summary")
		return err
	})
	return summary, err
}

// PerformWebSearch asks the search-enabled model for relevant links.
func (c *Client) PerformWebSearch(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: %w: query required", services.ErrValidation)
	}
	var results []SearchResult
	err := c.do(ctx, "search", func(ctx context.Context) error {
		content, err := c.chat.CompleteJSONWithModel(ctx, c.searchModel, searchSystemPrompt, "Query: "+query)
		if err != nil {
			return err
		}
		results, err = parseSearch(content)
		return err
	})
	return results, err
}

// GenerateChatAnswer answers question using the notebook's most relevant sources.
func (c *Client) GenerateChatAnswer(ctx context.Context, nb notebook.Notebook, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("chat: %w: question required", services.ErrValidation)
	}
	prompt := chatUserPrompt(nb, question, c.sources.Select(nb.Sources, question))
	var answer string
	err := c.do(ctx, "chat", func(ctx context.Context) error {
		content, err := c.chat.CompleteJSON(ctx, chatSystemPrompt, prompt)
		if err != nil {
			return err
		}
		answer, err = parseField(content, "answer")
		return err
	})
	return answer, err
}

// do runs fn under the shared backoff policy with a per-attempt timeout.
func (c *Client) do(ctx context.Context, op string, fn func(context.Context) error) error {
	logger := logging.WithContext(ctx, c.logger)
	policy := c.policy
	policy.OnRetry = func(attempt int, err error, verdict services.Classification, delay time.Duration) {
		logger.Debug("provider call failed; retrying",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.String(logging.FieldErrorKind, string(verdict.Kind)),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
	}
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return fn(attemptCtx)
	})
	if err == nil {
		return nil
	}
	if Exhausted(err) {
		return services.Wrap(services.ErrExternal, stageName, op, "retries exhausted", err)
	}
	return services.Wrap(services.ErrExternal, stageName, op, "provider call failed", err)
}

// Exhausted reports whether err ended a retry loop that spent its attempt
// budget on transient failures.
func Exhausted(err error) bool {
	var exhausted *retry.ExhaustedError
	return errors.As(err, &exhausted)
}
