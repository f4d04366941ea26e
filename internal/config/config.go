// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Every field carries a koanf tag matching its YAML key and env suffix.
// - New() returns a Config populated with defaults; Load layers file and env on top.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Supported transcription backends.
const (
	TranscriberOpenAI = "openai"
	TranscriberGemini = "gemini"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// CORSAllowedOrigin is sent as Access-Control-Allow-Origin.
	CORSAllowedOrigin string `koanf:"cors_allowed_origin"`

	// Transcriber selects the speech-to-text backend: openai or gemini.
	Transcriber string `koanf:"transcriber"`

	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIBaseURL string `koanf:"openai_base_url"`

	// TranscriptionModel is the OpenAI audio model, whisper-1 by default.
	TranscriptionModel string `koanf:"transcription_model"`

	// TranscriptionLanguage is an optional ISO-639-1 hint passed to the provider.
	TranscriptionLanguage string `koanf:"transcription_language"`

	// TranscriptionTimeoutMS bounds one provider request; 0 disables the timeout.
	TranscriptionTimeoutMS int `koanf:"transcription_timeout_ms"`

	// TranscriptionMaxRetries is the SDK retry budget; 0 means a single attempt.
	TranscriptionMaxRetries int `koanf:"transcription_max_retries"`

	GeminiAPIKey string `koanf:"gemini_api_key"`
	GeminiModel  string `koanf:"gemini_model"`

	// FFmpegPath is the binary used to transcode non-WAV uploads.
	FFmpegPath string `koanf:"ffmpeg_path"`

	// TempDir holds spooled uploads and transcoded WAV files; empty uses the OS default.
	TempDir string `koanf:"temp_dir"`

	// MinSilenceMS and SilenceThreshDB configure the silence detector.
	MinSilenceMS    int     `koanf:"min_silence_ms"`
	SilenceThreshDB float64 `koanf:"silence_thresh_db"`

	// PauseThresholdSeconds is the gap above which a pause counts as hesitation.
	PauseThresholdSeconds float64 `koanf:"pause_threshold_seconds"`

	// HesitationDamage is the damage assigned when hesitation is detected.
	HesitationDamage int `koanf:"hesitation_damage"`

	// DefaultBestBand is stored for new leaderboard entries submitted without a band.
	DefaultBestBand string `koanf:"default_best_band"`

	// MaxUploadBytes caps the request body of POST /analyze-speech.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// DefaultLeaderboardLimit is used when GET /leaderboard has no limit.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLatencyBucketsMS overrides the latency histogram buckets.
	MetricsLatencyBucketsMS []float64 `koanf:"metrics_latency_buckets_ms"`

	// SentryDSN enables error reporting when set.
	SentryDSN   string `koanf:"sentry_dsn"`
	Environment string `koanf:"environment"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":8000",
		CORSAllowedOrigin:       "*",
		Transcriber:             TranscriberOpenAI,
		TranscriptionModel:      "whisper-1",
		GeminiModel:             "gemini-2.5-flash",
		FFmpegPath:              "ffmpeg",
		MinSilenceMS:            2000,
		SilenceThreshDB:         -40,
		PauseThresholdSeconds:   2.0,
		HesitationDamage:        10,
		DefaultBestBand:         "band_9.0",
		MaxUploadBytes:          25 << 20,
		DefaultLeaderboardLimit: 10,
		MaxLeaderboardLimit:     100,
		WorkerCount:             runtime.NumCPU(),
		QueueSize:               64,
		MetricsNamespace:        "fluency",
		Environment:             "development",
	}
}

// TranscriptionTimeout returns the provider request timeout; zero means none.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.TranscriptionTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MinSilenceMS <= 0:
		return fmt.Errorf("%w: min_silence_ms must be positive, got %d", ErrInvalidConfig, c.MinSilenceMS)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit < 0 || c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: leaderboard limits must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Transcriber) {
	case TranscriberOpenAI, TranscriberGemini:
	default:
		return fmt.Errorf("%w: unknown transcriber %q", ErrInvalidConfig, c.Transcriber)
	}
	return nil
}
