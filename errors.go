package pagou

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a client error. The set is closed:
// callers branch on the kind rather than matching message text.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindInvalidRequest Kind = "invalid_request"
	KindNotFound       Kind = "not_found"
	KindRateLimit      Kind = "rate_limit"
	KindServer         Kind = "server"
	KindNetwork        Kind = "network"
)

// Sentinel errors for failures raised locally, before any network attempt.
var (
	// ErrCircuitOpen is the cause when the circuit breaker refuses a call.
	ErrCircuitOpen = errors.New("pagou: circuit open")

	// ErrRateLimited is the cause when the client-side rate limiter cannot
	// admit a call before its deadline.
	ErrRateLimited = errors.New("pagou: rate limited")
)

// Error is the single error type surfaced by the client. Kind tags the
// category; StatusCode, ProviderCode and RequestID carry diagnostic context
// so a caller can correlate the failure with its call.
type Error struct {
	Kind         Kind
	Message      string
	StatusCode   int
	ProviderCode string
	RequestID    string

	// Timeout is set when the call's cumulative deadline fired; Canceled when
	// the caller's own context was canceled. At most one of the two is set.
	Timeout  bool
	Canceled bool

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("pagou: %s: %s", e.Kind, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.ProviderCode != "" {
		msg = fmt.Sprintf("%s (code %s)", msg, e.ProviderCode)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches errors of the same Kind, so callers can write
// errors.Is(err, &pagou.Error{Kind: pagou.KindRateLimit}).
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// IsTransient reports whether err represents a failure that might succeed on
// a fresh call: network failures, server errors and rate limiting. Caller-side
// failures (authentication, invalid request, not found) are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindNetwork, KindServer, KindRateLimit:
			return true
		}
	}
	return false
}
