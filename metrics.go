package pagou

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector exposes Prometheus metrics for the call lifecycle:
// requests, retries, errors by kind, pagination fetches and the optional
// reliability gates. Safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	pagesFetched *prometheus.CounterVec

	circuitBreakerState prometheus.Gauge
	rateLimiterTokens   prometheus.Gauge
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagou_requests_total",
				Help: "Total number of API calls completed",
			},
			[]string{"method", "status_code", "path"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagou_request_duration_seconds",
				Help:    "Duration of API calls in seconds, attempts and backoff included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "path"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pagou_requests_in_flight",
				Help: "Number of API calls currently in flight",
			},
			[]string{"method", "path"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagou_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "path", "attempt"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagou_errors_total",
				Help: "Total number of calls failed, by error kind",
			},
			[]string{"kind", "method", "path"},
		),
		pagesFetched: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagou_pages_fetched_total",
				Help: "Total number of pages fetched by auto-paging iterators",
			},
			[]string{"path"},
		),
		circuitBreakerState: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "pagou_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
		rateLimiterTokens: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "pagou_rate_limiter_tokens",
				Help: "Tokens currently available in the client-side rate limiter",
			},
		),
	}
}

// RecordRequestStart marks a call as in flight.
func (mc *MetricsCollector) RecordRequestStart(method, path string) {
	mc.requestsInFlight.WithLabelValues(method, path).Inc()
}

// RecordRequestEnd marks a call as finished.
func (mc *MetricsCollector) RecordRequestEnd(method, path string) {
	mc.requestsInFlight.WithLabelValues(method, path).Dec()
}

// RecordRequest records the final status and total duration of a call.
func (mc *MetricsCollector) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, status, path).Inc()
	mc.requestDuration.WithLabelValues(method, status, path).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt.
func (mc *MetricsCollector) RecordRetry(method, path string, attempt int) {
	mc.retriesTotal.WithLabelValues(method, path, strconv.Itoa(attempt)).Inc()
}

// RecordError records a call failure by error kind.
func (mc *MetricsCollector) RecordError(kind, method, path string) {
	mc.errorsTotal.WithLabelValues(kind, method, path).Inc()
}

// RecordPageFetch records one page fetched by an iterator.
func (mc *MetricsCollector) RecordPageFetch(path string, _ int) {
	mc.pagesFetched.WithLabelValues(path).Inc()
}

// RecordCircuitBreakerState records the breaker state.
func (mc *MetricsCollector) RecordCircuitBreakerState(state CircuitState) {
	mc.circuitBreakerState.Set(float64(state))
}

// RecordRateLimiterTokens records the limiter's available tokens.
func (mc *MetricsCollector) RecordRateLimiterTokens(tokens float64) {
	mc.rateLimiterTokens.Set(tokens)
}
