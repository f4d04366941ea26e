// Package failure tags errors with the kind of failure that produced them so
// the transport layer can choose a status without string matching.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	// KindUnknown is reported for errors that carry no tag.
	KindUnknown Kind = iota
	// KindUpload covers a missing or unreadable upload and temp file I/O.
	KindUpload
	// KindInvalidInput covers bad form fields and query parameters.
	KindInvalidInput
	// KindTranscription covers failures of the external speech-to-text call.
	KindTranscription
	// KindAnalysis covers decode, transcode and silence detection failures.
	KindAnalysis
	// KindUnavailable is reported when the analysis queue is full or closed.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUpload:
		return "upload"
	case KindInvalidInput:
		return "invalid_input"
	case KindTranscription:
		return "transcription"
	case KindAnalysis:
		return "analysis"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a tagged error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind and op. A nil err yields a nil error.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a tagged error from a format string.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
