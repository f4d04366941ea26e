package transcription

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/okian/fluency/internal/domain/failure"
	"github.com/okian/fluency/pkg/metrics"
)

const (
	providerOpenAI     = "openai"
	defaultOpenAIModel = "whisper-1"
)

// OpenAIOption configures an OpenAI transcriber.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	apiKey     string
	baseURL    string
	model      string
	language   string
	prompt     string
	timeout    time.Duration
	maxRetries int
}

// WithOpenAIAPIKey sets the API key.
func WithOpenAIAPIKey(key string) OpenAIOption {
	return func(c *openAIConfig) { c.apiKey = strings.TrimSpace(key) }
}

// WithOpenAIBaseURL points the client at a compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = strings.TrimSpace(url) }
}

// WithOpenAIModel sets the audio model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

// WithLanguage passes an ISO-639-1 language hint.
func WithLanguage(lang string) OpenAIOption {
	return func(c *openAIConfig) { c.language = strings.TrimSpace(lang) }
}

// WithPrompt passes a vocabulary or style prompt.
func WithPrompt(prompt string) OpenAIOption {
	return func(c *openAIConfig) { c.prompt = strings.TrimSpace(prompt) }
}

// WithRequestTimeout bounds each request; zero means no timeout.
func WithRequestTimeout(d time.Duration) OpenAIOption {
	return func(c *openAIConfig) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the SDK retry budget.
func WithMaxRetries(n int) OpenAIOption {
	return func(c *openAIConfig) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// OpenAI transcribes through the audio transcriptions endpoint.
type OpenAI struct {
	client openai.Client
	cfg    openAIConfig
}

// NewOpenAI creates an OpenAI transcriber.
func NewOpenAI(opts ...OpenAIOption) (*OpenAI, error) {
	cfg := openAIConfig{model: defaultOpenAIModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		requestOpts = append(requestOpts, option.WithRequestTimeout(cfg.timeout))
	}

	return &OpenAI{client: openai.NewClient(requestOpts...), cfg: cfg}, nil
}

// Transcribe uploads the file and returns its text. An empty transcript is
// not an error.
func (t *OpenAI) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	start := time.Now()
	defer func() {
		metrics.RecordTranscriptionLatency(providerOpenAI, float64(time.Since(start).Milliseconds()))
	}()

	file, err := os.Open(audioPath)
	if err != nil {
		return Transcript{}, failure.New(failure.KindUpload, "transcribe", err)
	}
	defer func() { _ = file.Close() }()

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(t.cfg.model),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if t.cfg.language != "" {
		params.Language = param.NewOpt(t.cfg.language)
	}
	if t.cfg.prompt != "" {
		params.Prompt = param.NewOpt(t.cfg.prompt)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Transcript{}, failure.New(failure.KindTranscription, "transcribe", err)
	}
	if resp == nil {
		return Transcript{}, failure.New(failure.KindTranscription, "transcribe",
			errors.New("audio transcriptions API returned nil response"))
	}
	return newTranscript(resp.Text, t.cfg.model), nil
}
