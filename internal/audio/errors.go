package audio

import "errors"

// Sentinel errors for decoding and detection.
var (
	ErrInvalidWAV      = errors.New("invalid wav data")
	ErrUnsupportedBits = errors.New("unsupported bit depth")
	ErrTranscode       = errors.New("transcode failed")
)
