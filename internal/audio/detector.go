package audio

import (
	"context"

	"github.com/okian/fluency/internal/domain/model"
)

// Detector decodes a clip from disk and returns its non-silent ranges.
type Detector struct {
	decoder      *Decoder
	minSilenceMS int
	threshDBFS   float64
}

// NewDetector creates a Detector with the given window and threshold.
func NewDetector(decoder *Decoder, minSilenceMS int, threshDBFS float64) *Detector {
	if decoder == nil {
		decoder = NewDecoder()
	}
	return &Detector{decoder: decoder, minSilenceMS: minSilenceMS, threshDBFS: threshDBFS}
}

// Detect decodes the file at path and runs DetectNonsilent on it.
func (d *Detector) Detect(ctx context.Context, path string) ([]model.SpeechRange, error) {
	clip, err := d.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return DetectNonsilent(clip, d.minSilenceMS, d.threshDBFS), nil
}
