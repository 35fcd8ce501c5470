// Package backoff provides the delay calculators used between retry
// attempts. Strategies are stateless so one calculator can serve any number
// of concurrent calls.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the wait before the next attempt.
type Strategy interface {
	// Calculate returns the delay for the given zero-based attempt number.
	Calculate(attempt int, initial, max time.Duration, multiplier, jitter float64) time.Duration
}

// ExponentialJitter doubles (or multiplies) the initial delay per attempt
// and adds uniform jitter of up to jitter*delay, capped at max.
type ExponentialJitter struct{}

func (ExponentialJitter) Calculate(attempt int, initial, max time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Overflow guard: beyond 2^30 the cap applies regardless.
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(initial) * pow(multiplier, attempt))
	if delay < 0 || delay > max {
		delay = max
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		amount := time.Duration(float64(delay) * jitter * rand.Float64())
		if delay+amount > max {
			delay = max
		} else {
			delay += amount
		}
	}
	return delay
}

// DecorrelatedJitter implements the AWS decorrelated-jitter scheme,
// picking uniformly in [initial, min(max, initial*3^attempt)]. It smooths
// tail latencies under contention compared to plain exponential jitter.
type DecorrelatedJitter struct{}

func (DecorrelatedJitter) Calculate(attempt int, initial, max time.Duration, _, _ float64) time.Duration {
	if attempt <= 0 {
		return initial
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(initial)
	upper := base * pow(3.0, attempt)
	if upper > float64(max) || upper < 0 {
		upper = float64(max)
	}
	if upper < base {
		upper = base
	}

	delay := time.Duration(base + rand.Float64()*(upper-base))
	if delay < 0 || delay > max {
		delay = max
	}
	return delay
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
