package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vaultcast/internal/config"
)

const userAgent = "Vaultcast-Go/0.1.0"

// EpisodeReady is the one-shot notification emitted when a notebook's episode
// reaches the ready state.
type EpisodeReady struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	NotebookID string `json:"notebookId"`
}

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyEpisodeReady(ctx context.Context, note EpisodeReady) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		episodeReady: cfg.Notifications.EpisodeReady,
		errors:       cfg.Notifications.Errors,
	}
}

// NewNoop returns a Service that discards every notification.
func NewNoop() Service {
	return noopService{}
}

// ReadyNotification builds the ready payload for an episode.
func ReadyNotification(notebookID, notebookTitle string, duration time.Duration) EpisodeReady {
	notebookTitle = strings.TrimSpace(notebookTitle)
	if notebookTitle == "" {
		notebookTitle = "Untitled notebook"
	}
	return EpisodeReady{
		Title:      "Audio overview ready",
		Body:       fmt.Sprintf("Your audio overview of %q is ready (%s).", notebookTitle, formatDuration(duration)),
		NotebookID: notebookID,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	episodeReady bool
	errors       bool
}

func (n *ntfyService) NotifyEpisodeReady(ctx context.Context, note EpisodeReady) error {
	if !n.episodeReady {
		return nil
	}
	title := strings.TrimSpace(note.Title)
	if title == "" {
		title = "Audio overview ready"
	}
	message := strings.TrimSpace(note.Body)
	if id := strings.TrimSpace(note.NotebookID); id != "" {
		message = fmt.Sprintf("🎧 %s\nNotebook: %s", message, id)
	}
	data := payload{
		title:    "Vaultcast - " + title,
		message:  message,
		tags:     []string{"vaultcast", "episode", "ready"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Vaultcast - Error",
		message:  builder.String(),
		tags:     []string{"vaultcast", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Vaultcast - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"vaultcast", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
	if data.click != "" {
		req.Header.Set("Click", data.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyEpisodeReady(context.Context, EpisodeReady) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error      { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }
