// Package apperr defines the request-terminating errors of the question pipeline
// and their mapping onto client-visible kinds and HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kinds reported in the error envelope.
const (
	KindInvalidRequest       = "invalid_request"
	KindUnsupportedFormat    = "unsupported_format"
	KindExtractionFailed     = "extraction_failed"
	KindInferenceUnavailable = "inference_unavailable"
	KindInternal             = "internal_error"
)

// InvalidRequestError reports malformed or missing input.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

// InvalidRequest is a shorthand constructor.
func InvalidRequest(format string, args ...any) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedFormatError reports a file whose extension is not accepted.
// Supported, when set, is listed in the message.
type UnsupportedFormatError struct {
	Filename  string
	Extension string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	msg := fmt.Sprintf("unsupported format %s for file %q", ext, e.Filename)
	if len(e.Supported) > 0 {
		msg += " (supported: " + strings.Join(e.Supported, ", ") + ")"
	}
	return msg
}

// ExtractionFailedError reports a parser failure on an accepted format.
type ExtractionFailedError struct {
	Filename string
	Cause    error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction failed for file %q: %v", e.Filename, e.Cause)
}

func (e *ExtractionFailedError) Unwrap() error { return e.Cause }

// InferenceUnavailableError reports that the inference endpoint could not be
// reached (Unreachable) or answered with an error.
type InferenceUnavailableError struct {
	Cause       error
	Unreachable bool
}

func (e *InferenceUnavailableError) Error() string {
	if e.Unreachable {
		return fmt.Sprintf("inference endpoint unreachable: %v", e.Cause)
	}
	return fmt.Sprintf("inference endpoint error: %v", e.Cause)
}

func (e *InferenceUnavailableError) Unwrap() error { return e.Cause }

// Kind returns the envelope kind for err.
func Kind(err error) string {
	var (
		invalid     *InvalidRequestError
		unsupported *UnsupportedFormatError
		extraction  *ExtractionFailedError
		inference   *InferenceUnavailableError
	)
	switch {
	case errors.As(err, &invalid):
		return KindInvalidRequest
	case errors.As(err, &unsupported):
		return KindUnsupportedFormat
	case errors.As(err, &extraction):
		return KindExtractionFailed
	case errors.As(err, &inference):
		return KindInferenceUnavailable
	default:
		return KindInternal
	}
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch Kind(err) {
	case KindInvalidRequest, KindUnsupportedFormat:
		return http.StatusBadRequest
	case KindExtractionFailed:
		return http.StatusInternalServerError
	case KindInferenceUnavailable:
		var inference *InferenceUnavailableError
		if errors.As(err, &inference) && inference.Unreachable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
