package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	if err := c.normalizeGeneration(); err != nil {
		return err
	}
	c.normalizeGrounding()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("VAULTCAST_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeProvider() {
	p := &c.Provider
	p.APIKey = strings.TrimSpace(p.APIKey)
	if p.APIKey == "" {
		if value, ok := os.LookupEnv("VAULTCAST_API_KEY"); ok {
			p.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			p.APIKey = strings.TrimSpace(value)
		}
	}
	p.BaseURL = defaultString(p.BaseURL, defaultProviderBaseURL)
	p.SpeechURL = defaultString(p.SpeechURL, defaultProviderSpeechURL)
	p.ImageURL = defaultString(p.ImageURL, defaultProviderImageURL)
	p.Model = defaultString(p.Model, defaultProviderModel)
	p.SearchModel = defaultString(p.SearchModel, defaultProviderSearchModel)
	p.SpeechModel = defaultString(p.SpeechModel, defaultProviderSpeechModel)
	p.ImageModel = defaultString(p.ImageModel, defaultProviderImageModel)
	p.HostAVoice = defaultString(p.HostAVoice, defaultHostAVoice)
	p.HostBVoice = defaultString(p.HostBVoice, defaultHostBVoice)
	p.Referer = defaultString(p.Referer, defaultProviderReferer)
	p.Title = defaultString(p.Title, defaultProviderTitle)
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultProviderTimeout
	}
	if p.SpeechCharLimit <= 0 {
		p.SpeechCharLimit = defaultSpeechCharLimit
	}
	if p.SampleRate <= 0 {
		p.SampleRate = defaultSampleRate
	}
	if p.RetryAttempts <= 0 {
		p.RetryAttempts = 1
	}
	if p.RetryBaseMillis < 0 {
		p.RetryBaseMillis = 0
	}
}

func (c *Config) normalizeGeneration() error {
	g := &c.Generation
	g.DefaultPersonality = strings.ToLower(strings.TrimSpace(g.DefaultPersonality))
	if g.DefaultPersonality == "" {
		g.DefaultPersonality = defaultPersonality
	}
	if g.SynthesisAttempts <= 0 {
		g.SynthesisAttempts = 1
	}
	if g.SynthesisBackoffMs < 0 {
		g.SynthesisBackoffMs = 0
	}
	if g.SegmentWindowSeconds <= 0 {
		g.SegmentWindowSeconds = defaultSegmentWindowSeconds
	}
	if g.EventBufferSize <= 0 {
		g.EventBufferSize = defaultEventBufferSize
	}
	if g.SourceFetchTimeoutSec <= 0 {
		g.SourceFetchTimeoutSec = defaultSourceFetchTimeoutSec
	}
	if strings.TrimSpace(g.TemplateCatalog) != "" {
		var err error
		if g.TemplateCatalog, err = expandPath(strings.TrimSpace(g.TemplateCatalog)); err != nil {
			return fmt.Errorf("generation.template_catalog: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeGrounding() {
	if c.Grounding.TopK <= 0 {
		c.Grounding.TopK = defaultGroundingTopK
	}
	if c.Grounding.MaxSourceChars <= 0 {
		c.Grounding.MaxSourceChars = defaultMaxSourceChars
	}
	if c.Grounding.OutlineExcerpt <= 0 {
		c.Grounding.OutlineExcerpt = defaultOutlineExcerptChars
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
