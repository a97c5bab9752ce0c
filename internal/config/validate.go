package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProvider() error {
	for key, value := range map[string]string{
		"provider.base_url":   c.Provider.BaseURL,
		"provider.speech_url": c.Provider.SpeechURL,
		"provider.image_url":  c.Provider.ImageURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, value)
		}
	}
	if strings.EqualFold(c.Provider.HostAVoice, c.Provider.HostBVoice) {
		return errors.New("provider.host_a_voice and provider.host_b_voice must differ so both hosts are distinguishable")
	}
	if c.Provider.RetryMaxMillis > 0 && c.Provider.RetryMaxMillis < c.Provider.RetryBaseMillis {
		return errors.New("provider.retry_max_ms must be >= provider.retry_base_ms")
	}
	return ensurePositiveMap(map[string]int{
		"provider.timeout_seconds":   c.Provider.TimeoutSeconds,
		"provider.speech_char_limit": c.Provider.SpeechCharLimit,
		"provider.sample_rate":       c.Provider.SampleRate,
		"provider.retry_attempts":    c.Provider.RetryAttempts,
	})
}

func (c *Config) validateGeneration() error {
	if c.Generation.MinFreeDiskMegabytes < 0 {
		return errors.New("generation.min_free_disk_mb must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"generation.synthesis_attempts":     c.Generation.SynthesisAttempts,
		"generation.segment_window_seconds": c.Generation.SegmentWindowSeconds,
		"grounding.top_k":                   c.Grounding.TopK,
		"grounding.max_source_chars":        c.Grounding.MaxSourceChars,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if _, err := url.ParseRequestURI(c.Notifications.NtfyTopic); err != nil {
		return fmt.Errorf("notifications.ntfy_topic must be a URL: %w", err)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
