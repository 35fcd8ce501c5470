package pagou

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testAPIKey = "sk_test_123"

// instantSleep skips backoff waits while still observing cancellation.
func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestClient(baseURL string, options ...Option) *Client {
	options = append([]Option{
		WithAPIKey(testAPIKey),
		WithEnvironment(EnvironmentTest),
		WithBaseURL(baseURL),
		WithJitter(0),
	}, options...)
	client := New(options...)
	client.sleep = instantSleep
	return client
}

func transactionEnvelope(id string) string {
	return `{"success":true,"requestId":"req_1","data":{"id":"` + id + `","status":"paid","amountCents":1290,"currency":"BRL","paymentMethod":"pix","createdAt":"2026-08-01T12:00:00Z","updatedAt":"2026-08-01T12:00:00Z"}}`
}

func TestNewDefaults(t *testing.T) {
	client := New(WithAPIKey(testAPIKey))

	if client.maxRetries != 3 {
		t.Errorf("expected maxRetries=3, got %d", client.maxRetries)
	}
	if client.initialBackoff != 100*time.Millisecond {
		t.Errorf("expected initialBackoff=100ms, got %v", client.initialBackoff)
	}
	if client.timeout != 30*time.Second {
		t.Errorf("expected timeout=30s, got %v", client.timeout)
	}
	if client.baseURL != "https://api.pagou.ai" {
		t.Errorf("expected production base URL, got %q", client.baseURL)
	}
	if err := client.ValidationError(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestRetryExhaustedOnServerError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithMaxRetries(2))
	_, err := client.GetTransaction(context.Background(), "tx_1")

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts (maxRetries+1), got %d", got)
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if e.Kind != KindServer {
		t.Errorf("expected KindServer, got %s", e.Kind)
	}
	if e.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", e.StatusCode)
	}
}

func TestPostWithoutIdempotencyKeySingleAttempt(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithMaxRetries(3))
	_, err := client.CreateTransaction(context.Background(), &TransactionParams{
		AmountCents: 100, Currency: "BRL", PaymentMethod: "pix",
	})

	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected exactly 1 attempt for non-idempotent POST, got %d", got)
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != KindServer {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestIdempotencyKeyStableAcrossRetries(t *testing.T) {
	var keys []string
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := io.WriteString(w, transactionEnvelope("tx_1")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithMaxRetries(3))
	tx, err := client.CreateTransaction(context.Background(), &TransactionParams{
		AmountCents: 100, Currency: "BRL", PaymentMethod: "pix",
	}, WithIdempotencyKey("idem_abc"))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ID != "tx_1" {
		t.Errorf("expected tx_1, got %q", tx.ID)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(keys))
	}
	for i, key := range keys {
		if key != "idem_abc" {
			t.Errorf("attempt %d: expected key idem_abc, got %q", i, key)
		}
	}
}

func TestRetryAfterHonoredAsMinimumWait(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := io.WriteString(w, transactionEnvelope("tx_1")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	var waits []time.Duration
	client := newTestClient(server.URL, WithMaxRetries(2))
	client.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}

	_, err := client.GetTransaction(context.Background(), "tx_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waits) != 1 {
		t.Fatalf("expected 1 backoff wait, got %d", len(waits))
	}
	if waits[0] < 2*time.Second {
		t.Errorf("expected wait >= 2s from Retry-After, got %v", waits[0])
	}
}

// slowDoer simulates attempts that each take attemptTime, honoring the
// request context.
type slowDoer struct {
	attemptTime time.Duration
	attempts    int32
}

func (d *slowDoer) Do(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&d.attempts, 1)
	select {
	case <-time.After(d.attemptTime):
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("{}")),
		}, nil
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
}

func TestCumulativeTimeoutAbortsInFlightAttempt(t *testing.T) {
	doer := &slowDoer{attemptTime: 60 * time.Millisecond}
	client := newTestClient("http://api.invalid",
		WithHTTPClient(doer),
		WithMaxRetries(5),
		WithTimeout(100*time.Millisecond),
	)

	_, err := client.GetTransaction(context.Background(), "tx_1")

	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if e.Kind != KindNetwork {
		t.Errorf("expected KindNetwork, got %s", e.Kind)
	}
	if !e.Timeout {
		t.Error("expected Timeout to be set")
	}
	if e.Canceled {
		t.Error("expected Canceled to be clear")
	}
	// First attempt completes at 60ms, second is aborted at the 100ms
	// deadline; a third must never start.
	if got := atomic.LoadInt32(&doer.attempts); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestCallerCancellationDuringBackoff(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(server.URL,
		WithMaxRetries(3),
		WithInitialBackoff(500*time.Millisecond),
	)
	client.sleep = sleepContext
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := client.GetTransaction(ctx, "tx_1")
	elapsed := time.Since(start)

	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if !e.Canceled {
		t.Error("expected Canceled to be set")
	}
	if e.Timeout {
		t.Error("expected Timeout to be clear")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", got)
	}
	if elapsed >= 500*time.Millisecond {
		t.Errorf("backoff wait was not short-circuited: took %v", elapsed)
	}
}

func TestTransportFailureClassifiedAsNetwork(t *testing.T) {
	// Port 0 is never listening; dialing fails immediately.
	client := newTestClient("http://127.0.0.1:0", WithMaxRetries(0))

	_, err := client.GetTransaction(context.Background(), "tx_1")

	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if e.Kind != KindNetwork {
		t.Errorf("expected KindNetwork, got %s", e.Kind)
	}
	if e.RequestID == "" {
		t.Error("expected request id fallback from spec")
	}
}

func TestSuccessEnvelopeDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := io.WriteString(w, transactionEnvelope("tx_42")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "tx_42")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ID != "tx_42" || tx.Status != TransactionPaid || tx.AmountCents != 1290 {
		t.Errorf("unexpected transaction: %+v", tx)
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.WriteString(w, "not json"); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetTransaction(context.Background(), "tx_1")

	e, ok := err.(*Error)
	if !ok || e.Kind != KindServer {
		t.Fatalf("expected KindServer for malformed body, got %v", err)
	}
}

func TestValidationErrorSurfacesOnCall(t *testing.T) {
	client := New() // no API key
	if client.ValidationError() == nil {
		t.Fatal("expected a validation error")
	}

	_, err := client.GetTransaction(context.Background(), "tx_1")
	if err == nil {
		t.Fatal("expected call to fail with validation error")
	}
}

func TestRequestHeaders(t *testing.T) {
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		if _, err := io.WriteString(w, transactionEnvelope("tx_1")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL,
		WithAPIVersion("2026-08-01"),
		WithDefaultHeader("X-Partner", "acme"),
	)
	_, err := client.GetTransaction(context.Background(), "tx_1", WithRequestID("req_custom"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := header.Get("Authorization"); got != "Bearer "+testAPIKey {
		t.Errorf("unexpected Authorization header %q", got)
	}
	if got := header.Get("X-Request-Id"); got != "req_custom" {
		t.Errorf("unexpected X-Request-Id %q", got)
	}
	if got := header.Get("Pagou-Version"); got != "2026-08-01" {
		t.Errorf("unexpected Pagou-Version %q", got)
	}
	if got := header.Get("X-Partner"); got != "acme" {
		t.Errorf("unexpected X-Partner %q", got)
	}
	if !strings.HasPrefix(header.Get("User-Agent"), "pagou-go/") {
		t.Errorf("unexpected User-Agent %q", header.Get("User-Agent"))
	}
}

func TestCircuitBreakerOpensAndRefuses(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL,
		WithMaxRetries(0),
		WithCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 1}),
	)

	for i := 0; i < 2; i++ {
		if _, err := client.GetTransaction(context.Background(), "tx_1"); err == nil {
			t.Fatal("expected error")
		}
	}

	before := atomic.LoadInt32(&attempts)
	_, err := client.GetTransaction(context.Background(), "tx_1")
	if atomic.LoadInt32(&attempts) != before {
		t.Error("expected no network attempt while circuit is open")
	}
	e, ok := err.(*Error)
	if !ok || e.Cause != ErrCircuitOpen {
		t.Fatalf("expected circuit-open error, got %v", err)
	}
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		id := strings.TrimPrefix(r.URL.Path, "/v2/transactions/")
		if err := json.NewEncoder(w).Encode(DataEnvelope[Transaction]{
			Success: true, RequestID: "req_" + id, Data: Transaction{ID: id},
		}); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		id := "tx_" + strings.Repeat("a", i+1)
		go func() {
			tx, err := client.GetTransaction(context.Background(), id)
			if err == nil && tx.ID != id {
				done <- &Error{Kind: KindInvalidRequest, Message: "cross-talk between calls"}
				return
			}
			done <- err
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent call failed: %v", err)
		}
	}
}
