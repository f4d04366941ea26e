// Package transcription sends audio files to an external speech-to-text
// provider. OpenAI is the default backend and Gemini the alternate.
package transcription

import (
	"context"
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

// Transcript is the provider's text for one clip.
type Transcript struct {
	Text      string
	WordCount int
	Model     string
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// ErrMissingAPIKey is returned when a backend is built without credentials.
var ErrMissingAPIKey = errors.New("transcription api key is not configured")

// prompt used by backends that need an instruction alongside the audio.
const transcribePrompt = "Transcribe this audio accurately. Return only the transcript text."

// newTranscript keeps the provider text as returned.
func newTranscript(text, model string) Transcript {
	return Transcript{Text: text, WordCount: len(strings.Fields(text)), Model: model}
}

// resolveAudioMIMEType maps a file extension to an audio MIME type.
func resolveAudioMIMEType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(path)))
	if ext == "" {
		return "", errors.New("audio file extension is required to determine mime type")
	}

	switch ext {
	case ".wav":
		return "audio/wav", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".m4a", ".mp4":
		return "audio/mp4", nil
	case ".webm":
		return "audio/webm", nil
	case ".ogg", ".oga":
		return "audio/ogg", nil
	case ".flac":
		return "audio/flac", nil
	case ".aac":
		return "audio/aac", nil
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "", errors.New("unsupported audio file extension: " + ext)
	}
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if !strings.HasPrefix(mimeType, "audio/") {
		return "", errors.New("unsupported audio mime type: " + mimeType)
	}
	return mimeType, nil
}
