package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/fluency/internal/adapters/repository"
	"github.com/okian/fluency/internal/domain/failure"
)

// Sentinel kinds for API errors.
var (
	ErrMissingAudio   = errors.New("audio file is required")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidInteger = errors.New("must be an integer")
)

// Error codes returned in the "code" field of error responses.
const (
	codeUpload        = "upload_error"
	codeInvalidInput  = "invalid_input"
	codeTranscription = "transcription_error"
	codeAnalysis      = "analysis_error"
	codeUnavailable   = "unavailable"
	codeNotFound      = "not_found"
	codeInternal      = "internal_error"
)

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, codeUpload
	}
	if errors.Is(err, repository.ErrNotFound) {
		return http.StatusNotFound, codeNotFound
	}

	switch failure.KindOf(err) {
	case failure.KindUpload:
		return http.StatusBadRequest, codeUpload
	case failure.KindInvalidInput:
		return http.StatusBadRequest, codeInvalidInput
	case failure.KindTranscription:
		return http.StatusBadGateway, codeTranscription
	case failure.KindAnalysis:
		return http.StatusUnprocessableEntity, codeAnalysis
	case failure.KindUnavailable:
		return http.StatusServiceUnavailable, codeUnavailable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, codeUnavailable
	}
	return http.StatusInternalServerError, codeInternal
}
