package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrMissingTranscriber = errors.New("transcriber is not configured")
	ErrMissingDetector    = errors.New("silence detector is not configured")
	ErrMissingAudio       = errors.New("audio file is required")
)
