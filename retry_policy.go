package pagou

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	internalbackoff "github.com/PagouAi/api-sdk/internal/backoff"
)

// Attempt summarizes one completed network attempt for retry decisions.
// Err is the transport error, nil when an HTTP response was received.
type Attempt struct {
	StatusCode int
	Header     http.Header
	Err        error
}

// RetryPolicy decides whether a failed attempt is retried and how long to
// wait first. Implementations must be safe for concurrent use; the default
// policy is stateless.
type RetryPolicy interface {
	ShouldRetry(spec *RequestSpec, at Attempt, attempt int) (time.Duration, bool)
}

// BackoffStrategy selects the delay calculation scheme.
type BackoffStrategy int

const (
	// ExponentialJitter doubles the delay per attempt with uniform jitter.
	ExponentialJitter BackoffStrategy = iota
	// DecorrelatedJitter uses the AWS decorrelated-jitter scheme.
	DecorrelatedJitter
)

// DefaultRetryPolicy implements the client's standard eligibility rules:
// transport failures (other than aborted attempts) and the retryable HTTP
// statuses 429/500/502/503/504 are retried; POST and PUT only when the call
// carries an idempotency key. Retrying a mutation without one risks a
// duplicate charge, so the gate is a safety invariant.
type DefaultRetryPolicy struct {
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	multiplier     float64
	jitter         float64
	strategy       internalbackoff.Strategy
}

// NewDefaultRetryPolicy creates the standard policy with exponential-jitter
// backoff.
func NewDefaultRetryPolicy(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) *DefaultRetryPolicy {
	return NewDefaultRetryPolicyWithStrategy(maxRetries, initialBackoff, maxBackoff, multiplier, jitter, ExponentialJitter)
}

// NewDefaultRetryPolicyWithStrategy creates the standard policy with a
// specific backoff scheme.
func NewDefaultRetryPolicyWithStrategy(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64, strategy BackoffStrategy) *DefaultRetryPolicy {
	p := &DefaultRetryPolicy{
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		multiplier:     multiplier,
		jitter:         jitter,
	}
	switch strategy {
	case DecorrelatedJitter:
		p.strategy = internalbackoff.DecorrelatedJitter{}
	default:
		p.strategy = internalbackoff.ExponentialJitter{}
	}
	return p
}

// ShouldRetry implements RetryPolicy. The rules are evaluated in order:
// budget exhaustion, outcome eligibility, idempotency gate, then delay
// selection (Retry-After hint before computed backoff).
func (p *DefaultRetryPolicy) ShouldRetry(spec *RequestSpec, at Attempt, attempt int) (time.Duration, bool) {
	if attempt >= p.maxRetries {
		return 0, false
	}

	eligible := false
	var hint time.Duration
	if at.Err != nil {
		eligible = transportCauseOf(at.Err) != causeAborted
	} else if retryableStatus(at.StatusCode) {
		eligible = true
		hint = parseRetryAfter(at.Header.Get("Retry-After"))
	}
	if !eligible {
		return 0, false
	}

	switch spec.Method {
	case http.MethodGet, http.MethodHead:
		// Always safe to repeat.
	default:
		if spec.IdempotencyKey == "" {
			return 0, false
		}
	}

	if hint > 0 {
		return hint, true
	}
	return p.strategy.Calculate(attempt, p.initialBackoff, p.maxBackoff, p.multiplier, p.jitter), true
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// parseRetryAfter parses a Retry-After header value in either delay-seconds
// or HTTP-date form. The result is a minimum wait, capped at one hour; zero
// means no usable hint.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}
