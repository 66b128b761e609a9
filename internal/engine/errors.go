package engine

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTranscript    = errors.New("transcript is empty")
	ErrUnknownContentType = errors.New("unknown content type")
	ErrMissingAPIKey      = errors.New("LLM_API_KEY is not configured")
	ErrNoTranscript       = errors.New("no transcript available")
	ErrNotFound           = errors.New("not found")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError reports a failed external call with no fallback left.
// StatusCode is 0 when the call never produced an HTTP response.
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUpstream reports whether err wraps an *UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// NewUpstream wraps err as an UpstreamError for service unless it already is one.
func NewUpstream(service string, err error) error {
	if err == nil || IsUpstream(err) {
		return err
	}
	return &UpstreamError{Service: service, Err: err}
}
