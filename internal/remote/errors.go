package remote

import (
	"errors"
	"fmt"
)

// Kind classifies remote failures so callers can branch without string
// matching.
type Kind string

const (
	// KindTransport covers timeouts, connectivity loss and 5xx responses.
	// Always recoverable: compensate locally and reconcile with a re-fetch.
	KindTransport Kind = "transport"
	// KindBusinessRule covers structured 4xx rejections (reschedule quota
	// exceeded, refund window passed). Never retried automatically.
	KindBusinessRule Kind = "business_rule"
	// KindAuthentication covers 401-equivalent responses. Fatal for the
	// session; surfaced upward, never compensated or retried by the engine.
	KindAuthentication Kind = "authentication"
)

const genericFailureMessage = "the booking service could not process the request"

// Error is the typed failure every client function returns on a non-success
// response. Message carries the server-supplied text when present.
type Error struct {
	Kind           Kind
	Code           string
	Message        string
	HTTPStatus     int
	SupportContact string
	cause          error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote: %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("remote: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying transport error when one exists.
func (e *Error) Unwrap() error { return e.cause }

// AsError extracts the typed remote error from an error chain.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsAuthentication reports whether the error is a fatal authentication
// failure that must bypass the compensation/re-fetch path.
func IsAuthentication(err error) bool {
	re, ok := AsError(err)
	return ok && re.Kind == KindAuthentication
}

// IsBusinessRule reports whether the error is a server-side rule rejection.
func IsBusinessRule(err error) bool {
	re, ok := AsError(err)
	return ok && re.Kind == KindBusinessRule
}

func transportError(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: genericFailureMessage,
		cause:   err,
	}
}
