package pagou

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Doer performs one network exchange. *http.Client satisfies it; tests
// inject stubs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// errCallTimeout is the cause installed on the per-call deadline so a fired
// deadline can be told apart from the caller's own cancellation.
var errCallTimeout = errors.New("pagou: call timeout exceeded")

// Client talks to the Pagou transaction API. All configuration is fixed at
// construction; a Client is immutable afterwards and safe for concurrent
// use. Each logical call owns its spec, retry state and deadline, so
// concurrent calls never observe each other's state.
type Client struct {
	httpClient     Doer
	apiKey         string
	auth           AuthStrategy
	environment    Environment
	baseURL        string
	apiVersion     string
	userAgent      string
	defaultHeaders http.Header

	timeout           time.Duration
	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	backoffStrategy   BackoffStrategy
	retryPolicy       RetryPolicy

	rateLimiter    *rate.Limiter
	circuitBreaker *CircuitBreaker
	metrics        *MetricsCollector
	debug          *DebugConfig
	logger         Logger
	requestIDGen   func() string

	// sleep waits between attempts; it must return early when ctx fires.
	// Replaced in tests to run retry timing on simulated time.
	sleep func(ctx context.Context, d time.Duration) error

	validationError error
}

// New constructs a Client from functional options. Configuration is
// validated best effort; call ValidationError (or use NewFromEnv) to check.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:        &http.Client{},
		auth:              AuthStrategy{Scheme: AuthBearer},
		environment:       EnvironmentProduction,
		timeout:           30 * time.Second,
		maxRetries:        3,
		initialBackoff:    100 * time.Millisecond,
		maxBackoff:        10 * time.Second,
		backoffMultiplier: 2.0,
		jitter:            0.1,
		backoffStrategy:   ExponentialJitter,
		debug:             DefaultDebugConfig(),
		requestIDGen:      uuid.NewString,
		sleep:             sleepContext,
	}

	for _, option := range options {
		option(client)
	}

	if client.baseURL == "" {
		client.baseURL = client.environment.BaseURL()
	}
	if client.userAgent == "" {
		client.userAgent = defaultUserAgent()
	}
	if client.retryPolicy == nil {
		client.retryPolicy = NewDefaultRetryPolicyWithStrategy(
			client.maxRetries, client.initialBackoff, client.maxBackoff,
			client.backoffMultiplier, client.jitter, client.backoffStrategy)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Environment returns the environment the client was built for.
func (c *Client) Environment() Environment { return c.environment }

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error { return c.validationError }

// perform drives the attempt loop for one logical call: admission gates,
// one network attempt per iteration, retry decision, cancellable backoff
// wait. It returns the successful outcome or exactly one classified error.
// Only the final attempt's classification surfaces; retried failures are
// handled locally.
func (c *Client) perform(ctx context.Context, spec *RequestSpec) (*attemptOutcome, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	start := time.Now()

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	// One deadline for the whole logical call, cumulative across attempts
	// and backoff waits.
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, errCallTimeout)
	defer cancel()

	if c.metrics != nil {
		c.metrics.RecordRequestStart(spec.Method, spec.Path)
		defer c.metrics.RecordRequestEnd(spec.Method, spec.Path)
	}
	if c.debugEnabled() && c.debug.LogRequests {
		c.logger.Debug("starting call", "requestID", spec.RequestID, "method", spec.Method, "path", spec.Path)
	}

	for attempt := 0; ; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				e := &Error{
					Kind:      KindRateLimit,
					Message:   "client-side rate limit",
					RequestID: spec.RequestID,
					Cause:     ErrRateLimited,
				}
				annotateInterruption(ctx, e)
				return nil, c.fail(spec, e, start)
			}
			if c.metrics != nil {
				c.metrics.RecordRateLimiterTokens(c.rateLimiter.Tokens())
			}
		}

		if c.circuitBreaker != nil && !c.circuitBreaker.Allow() {
			if c.debugEnabled() && c.debug.LogCircuit {
				c.logger.Warn("circuit breaker open", "requestID", spec.RequestID, "path", spec.Path)
			}
			e := &Error{
				Kind:      KindNetwork,
				Message:   "circuit breaker is open",
				RequestID: spec.RequestID,
				Cause:     ErrCircuitOpen,
			}
			return nil, c.fail(spec, e, start)
		}

		if attempt > 0 {
			if c.debugEnabled() && c.debug.LogRetries {
				c.logger.Info("retry attempt", "requestID", spec.RequestID, "attempt", attempt, "maxRetries", c.maxRetries)
			}
			if c.metrics != nil {
				c.metrics.RecordRetry(spec.Method, spec.Path, attempt)
			}
		}

		outcome := c.attempt(ctx, spec)

		if c.circuitBreaker != nil {
			if outcome.transportFailed() || outcome.status >= 500 {
				c.circuitBreaker.RecordFailure()
			} else {
				c.circuitBreaker.RecordSuccess()
			}
			if c.metrics != nil {
				c.metrics.RecordCircuitBreakerState(c.circuitBreaker.State())
			}
		}

		if outcome.success() {
			if c.metrics != nil {
				c.metrics.RecordRequest(spec.Method, spec.Path, outcome.status, time.Since(start))
			}
			return outcome, nil
		}

		delay, retry := c.retryPolicy.ShouldRetry(spec, Attempt{
			StatusCode: outcome.status,
			Header:     outcome.header,
			Err:        outcome.err,
		}, attempt)

		if retry && ctx.Err() == nil {
			if c.debugEnabled() && c.debug.LogRetries {
				c.logger.Info("scheduling retry", "requestID", spec.RequestID, "attempt", attempt+1, "backoff", delay)
			}
			if err := c.sleep(ctx, delay); err == nil {
				continue
			}
			// The wait was short-circuited by the deadline or the caller;
			// fall through and surface the last observed outcome.
		}

		e := classify(spec, outcome)
		annotateInterruption(ctx, e)
		if c.metrics != nil {
			c.metrics.RecordRequest(spec.Method, spec.Path, outcome.status, time.Since(start))
		}
		return nil, c.fail(spec, e, start)
	}
}

// attempt performs exactly one network exchange.
func (c *Client) attempt(ctx context.Context, spec *RequestSpec) *attemptOutcome {
	req, err := c.buildRequest(ctx, spec)
	if err != nil {
		return &attemptOutcome{err: err, cause: causeProtocol}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &attemptOutcome{err: err, cause: transportCauseOf(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &attemptOutcome{err: err, cause: transportCauseOf(err)}
	}

	return &attemptOutcome{status: resp.StatusCode, header: resp.Header, body: body}
}

func (c *Client) buildRequest(ctx context.Context, spec *RequestSpec) (*http.Request, error) {
	url := c.baseURL + spec.Path
	if len(spec.Query) > 0 {
		url += "?" + spec.Query.Encode()
	}

	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.Method, url, body)
	if err != nil {
		return nil, err
	}

	name, value := c.auth.Header(c.apiKey)
	req.Header.Set(name, value)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, spec.RequestID)
	if len(spec.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiVersion != "" {
		req.Header.Set("Pagou-Version", c.apiVersion)
	}
	if spec.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", spec.IdempotencyKey)
	}
	for key, values := range c.defaultHeaders {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, values := range spec.Headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	return req, nil
}

func (c *Client) fail(spec *RequestSpec, e *Error, start time.Time) *Error {
	if c.metrics != nil {
		c.metrics.RecordError(string(e.Kind), spec.Method, spec.Path)
	}
	if c.debugEnabled() {
		c.logger.Warn("call failed", "requestID", e.RequestID, "kind", string(e.Kind),
			"status", e.StatusCode, "duration", time.Since(start))
	}
	return e
}

func (c *Client) debugEnabled() bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil
}

// annotateInterruption marks whether the call ended because the cumulative
// deadline fired or because the caller canceled, so the two are not
// conflated in the surfaced error.
func annotateInterruption(ctx context.Context, e *Error) {
	cause := context.Cause(ctx)
	switch {
	case cause == nil:
	case errors.Is(cause, errCallTimeout), errors.Is(cause, context.DeadlineExceeded):
		e.Timeout = true
	case errors.Is(cause, context.Canceled):
		e.Canceled = true
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// execute runs one data-shaped call and decodes its envelope.
func execute[T any](ctx context.Context, c *Client, spec *RequestSpec) (*DataEnvelope[T], error) {
	outcome, err := c.perform(ctx, spec)
	if err != nil {
		return nil, err
	}
	var env DataEnvelope[T]
	if err := json.Unmarshal(outcome.body, &env); err != nil {
		return nil, &Error{
			Kind:       KindServer,
			Message:    "malformed response body",
			StatusCode: outcome.status,
			RequestID:  requestIDFrom(spec, outcome.header, nil),
			Cause:      err,
		}
	}
	if env.RequestID == "" {
		env.RequestID = requestIDFrom(spec, outcome.header, nil)
	}
	return &env, nil
}

// executeList runs one list-shaped call and decodes its envelope.
func executeList[T any](ctx context.Context, c *Client, spec *RequestSpec) (*ListEnvelope[T], error) {
	outcome, err := c.perform(ctx, spec)
	if err != nil {
		return nil, err
	}
	var env ListEnvelope[T]
	if err := json.Unmarshal(outcome.body, &env); err != nil {
		return nil, &Error{
			Kind:       KindServer,
			Message:    "malformed response body",
			StatusCode: outcome.status,
			RequestID:  requestIDFrom(spec, outcome.header, nil),
			Cause:      err,
		}
	}
	if env.RequestID == "" {
		env.RequestID = requestIDFrom(spec, outcome.header, nil)
	}
	return &env, nil
}
