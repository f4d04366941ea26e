package transcription

import (
	"context"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/okian/fluency/internal/domain/failure"
	"github.com/okian/fluency/pkg/metrics"
)

const (
	providerGemini     = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
)

// Gemini transcribes by sending the audio inline to GenerateContent.
type Gemini struct {
	client *genai.Client
	model  string
	prompt string
}

// GeminiOption configures a Gemini transcriber.
type GeminiOption func(*geminiConfig)

type geminiConfig struct {
	apiKey  string
	baseURL string
	model   string
	prompt  string
}

// WithGeminiAPIKey sets the API key.
func WithGeminiAPIKey(key string) GeminiOption {
	return func(c *geminiConfig) { c.apiKey = strings.TrimSpace(key) }
}

// WithGeminiBaseURL overrides the API endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(c *geminiConfig) { c.baseURL = strings.TrimSpace(url) }
}

// WithGeminiModel sets the generation model.
func WithGeminiModel(model string) GeminiOption {
	return func(c *geminiConfig) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

// WithGeminiPrompt replaces the transcription instruction.
func WithGeminiPrompt(prompt string) GeminiOption {
	return func(c *geminiConfig) {
		if p := strings.TrimSpace(prompt); p != "" {
			c.prompt = p
		}
	}
}

// NewGemini creates a Gemini transcriber.
func NewGemini(ctx context.Context, opts ...GeminiOption) (*Gemini, error) {
	cfg := geminiConfig{model: defaultGeminiModel, prompt: transcribePrompt}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: cfg.model, prompt: cfg.prompt}, nil
}

// Transcribe reads the file and asks the model for its transcript.
func (t *Gemini) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	start := time.Now()
	defer func() {
		metrics.RecordTranscriptionLatency(providerGemini, float64(time.Since(start).Milliseconds()))
	}()

	audioBytes, err := os.ReadFile(audioPath)
	if err != nil {
		return Transcript{}, failure.New(failure.KindUpload, "transcribe", err)
	}
	mimeType, err := resolveAudioMIMEType(audioPath)
	if err != nil {
		return Transcript{}, failure.New(failure.KindTranscription, "transcribe", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(
			[]*genai.Part{
				genai.NewPartFromText(t.prompt),
				genai.NewPartFromBytes(audioBytes, mimeType),
			},
			genai.RoleUser,
		),
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return Transcript{}, failure.New(failure.KindTranscription, "transcribe", err)
	}
	return newTranscript(resp.Text(), t.model), nil
}
