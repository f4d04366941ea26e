package transcription

import (
	"context"
	"fmt"

	"github.com/okian/fluency/internal/config"
)

// New builds the backend selected by cfg.Transcriber.
func New(ctx context.Context, cfg *config.Config) (Transcriber, error) {
	switch cfg.Transcriber {
	case config.TranscriberGemini:
		t, err := NewGemini(ctx,
			WithGeminiAPIKey(cfg.GeminiAPIKey),
			WithGeminiModel(cfg.GeminiModel),
		)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TranscriberOpenAI, "":
		t, err := NewOpenAI(
			WithOpenAIAPIKey(cfg.OpenAIAPIKey),
			WithOpenAIBaseURL(cfg.OpenAIBaseURL),
			WithOpenAIModel(cfg.TranscriptionModel),
			WithLanguage(cfg.TranscriptionLanguage),
			WithRequestTimeout(cfg.TranscriptionTimeout()),
			WithMaxRetries(cfg.TranscriptionMaxRetries),
		)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown transcriber %q", cfg.Transcriber)
	}
}
