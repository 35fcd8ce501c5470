package pagou

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// transportCause discriminates transport-level failures. Aborted attempts
// (context cancellation or deadline) are never retried.
type transportCause int

const (
	causeConnect transportCause = iota
	causeDNS
	causeProtocol
	causeAborted
)

func (c transportCause) String() string {
	switch c {
	case causeConnect:
		return "connect-error"
	case causeDNS:
		return "dns-error"
	case causeAborted:
		return "aborted"
	default:
		return "protocol-error"
	}
}

// attemptOutcome is the result of one network attempt. Exactly one of the
// two shapes is populated: an HTTP exchange (status/header/body) or a
// transport failure (err/cause). Outcomes are produced fresh per attempt and
// discarded after classification.
type attemptOutcome struct {
	status int
	header http.Header
	body   []byte

	err   error
	cause transportCause
}

func (o *attemptOutcome) transportFailed() bool { return o.err != nil }

func (o *attemptOutcome) success() bool {
	return o.err == nil && o.status >= 200 && o.status < 300
}

func transportCauseOf(err error) transportCause {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return causeAborted
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return causeDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT) {
		return causeConnect
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return causeConnect
	}
	return causeProtocol
}

// errorBody is the wire shape of a failed response.
type errorBody struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const requestIDHeader = "X-Request-Id"

// requestIDFrom resolves the correlation id for a completed attempt:
// server-assigned header first, then the body field, then the id the call
// itself was sent with, so a failure is always attributable.
func requestIDFrom(spec *RequestSpec, header http.Header, body *errorBody) string {
	if header != nil {
		if id := header.Get(requestIDHeader); id != "" {
			return id
		}
	}
	if body != nil && body.RequestID != "" {
		return body.RequestID
	}
	return spec.RequestID
}

// classify maps a failed attempt outcome to the typed error surfaced to the
// caller. Success outcomes are decoded by the caller, not here.
func classify(spec *RequestSpec, outcome *attemptOutcome) *Error {
	if outcome.transportFailed() {
		return &Error{
			Kind:      KindNetwork,
			Message:   fmt.Sprintf("request failed: %s", outcome.cause),
			RequestID: spec.RequestID,
			Cause:     outcome.err,
		}
	}

	var parsed errorBody
	// A failed decode leaves the body fields empty; status alone classifies.
	_ = json.Unmarshal(outcome.body, &parsed)

	e := &Error{
		StatusCode:   outcome.status,
		ProviderCode: parsed.Error.Code,
		RequestID:    requestIDFrom(spec, outcome.header, &parsed),
	}
	e.Message = parsed.Error.Message
	if e.Message == "" {
		e.Message = http.StatusText(outcome.status)
	}

	switch {
	case outcome.status == http.StatusUnauthorized || outcome.status == http.StatusForbidden:
		e.Kind = KindAuthentication
	case outcome.status == http.StatusNotFound:
		e.Kind = KindNotFound
	case outcome.status == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
	case outcome.status >= 500:
		e.Kind = KindServer
	default:
		// 400, 409, 422 and any other caller-side status.
		e.Kind = KindInvalidRequest
	}
	return e
}
