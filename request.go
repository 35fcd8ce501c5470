package pagou

import (
	"net/http"
	"net/url"
	"time"
)

// RequestSpec describes one logical call: the verb, path and payload plus the
// per-call knobs that govern its execution. A spec is built once, owned by a
// single call, and never mutated after newRequestSpec returns; retries reuse
// the same spec unchanged, which is what keeps the idempotency key stable
// across attempts.
type RequestSpec struct {
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Headers http.Header

	// IdempotencyKey is sent as Idempotency-Key on every attempt of this
	// call. Required for POST/PUT calls to be retry-eligible.
	IdempotencyKey string

	// RequestID correlates the call across attempts and in surfaced errors.
	// Generated when the caller does not supply one.
	RequestID string

	// Timeout overrides the client default for this call. The deadline is
	// cumulative across all attempts and backoff waits.
	Timeout time.Duration
}

// CallOption customizes a single call.
type CallOption func(*RequestSpec)

// WithIdempotencyKey attaches an idempotency key to the call. The key is
// minted once by the caller and sent unchanged on every retried attempt.
func WithIdempotencyKey(key string) CallOption {
	return func(s *RequestSpec) {
		s.IdempotencyKey = key
	}
}

// WithRequestID sets the correlation id for the call instead of generating one.
func WithRequestID(id string) CallOption {
	return func(s *RequestSpec) {
		s.RequestID = id
	}
}

// WithCallTimeout overrides the client-level timeout for this call only.
func WithCallTimeout(d time.Duration) CallOption {
	return func(s *RequestSpec) {
		s.Timeout = d
	}
}

// WithCallHeader adds a header to this call's request.
func WithCallHeader(key, value string) CallOption {
	return func(s *RequestSpec) {
		if s.Headers == nil {
			s.Headers = http.Header{}
		}
		s.Headers.Set(key, value)
	}
}

func (c *Client) newRequestSpec(method, path string, query url.Values, body []byte, opts ...CallOption) *RequestSpec {
	spec := &RequestSpec{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
	}
	for _, opt := range opts {
		opt(spec)
	}
	if spec.RequestID == "" {
		spec.RequestID = c.requestIDGen()
	}
	return spec
}
