package config

const (
	defaultDataDir               = "~/.local/share/vaultcast"
	defaultLogDir                = "~/.local/share/vaultcast/logs"
	defaultAPIBind               = "127.0.0.1:7587"
	defaultProviderBaseURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultProviderSpeechURL     = "https://api.openai.com/v1/audio/speech"
	defaultProviderImageURL      = "https://api.openai.com/v1/images/generations"
	defaultProviderModel         = "google/gemini-2.5-flash"
	defaultProviderSearchModel   = "google/gemini-2.5-flash:online"
	defaultProviderSpeechModel   = "gemini-2.5-flash-preview-tts"
	defaultProviderImageModel    = "gpt-image-1"
	defaultHostAVoice            = "Kore"
	defaultHostBVoice            = "Puck"
	defaultProviderReferer       = "https://github.com/vaultcast/vaultcast"
	defaultProviderTitle         = "vaultcast"
	defaultProviderTimeout       = 60
	defaultSpeechCharLimit       = 4800
	defaultSampleRate            = 24000
	defaultRetryAttempts         = 4
	defaultRetryBaseMillis       = 1000
	defaultRetryMaxMillis        = 16000
	defaultPersonality           = "balanced"
	defaultSynthesisAttempts     = 3
	defaultSynthesisBackoffMs    = 2000
	defaultSegmentWindowSeconds  = 60
	defaultEventBufferSize       = 500
	defaultMinFreeDiskMegabytes  = 256
	defaultSourceFetchTimeoutSec = 20
	defaultGroundingTopK         = 3
	defaultMaxSourceChars        = 6000
	defaultOutlineExcerptChars   = 1200
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Provider: Provider{
			BaseURL:         defaultProviderBaseURL,
			SpeechURL:       defaultProviderSpeechURL,
			ImageURL:        defaultProviderImageURL,
			Model:           defaultProviderModel,
			SearchModel:     defaultProviderSearchModel,
			SpeechModel:     defaultProviderSpeechModel,
			ImageModel:      defaultProviderImageModel,
			HostAVoice:      defaultHostAVoice,
			HostBVoice:      defaultHostBVoice,
			Referer:         defaultProviderReferer,
			Title:           defaultProviderTitle,
			TimeoutSeconds:  defaultProviderTimeout,
			SpeechCharLimit: defaultSpeechCharLimit,
			SampleRate:      defaultSampleRate,
			RetryAttempts:   defaultRetryAttempts,
			RetryBaseMillis: defaultRetryBaseMillis,
			RetryMaxMillis:  defaultRetryMaxMillis,
			RetryJitter:     true,
		},
		Generation: Generation{
			DefaultPersonality:    defaultPersonality,
			SynthesisAttempts:     defaultSynthesisAttempts,
			SynthesisBackoffMs:    defaultSynthesisBackoffMs,
			SegmentWindowSeconds:  defaultSegmentWindowSeconds,
			Artwork:               true,
			PersistJobs:           true,
			EventBufferSize:       defaultEventBufferSize,
			ResumeOnStart:         true,
			MinFreeDiskMegabytes:  defaultMinFreeDiskMegabytes,
			SourceFetchTimeoutSec: defaultSourceFetchTimeoutSec,
		},
		Grounding: Grounding{
			TopK:           defaultGroundingTopK,
			MaxSourceChars: defaultMaxSourceChars,
			OutlineExcerpt: defaultOutlineExcerptChars,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			EpisodeReady:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
