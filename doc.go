// Package pagou is the Go client for the Pagou transaction-processing API.
//
// At its core is a request execution engine that turns one logical call into
// zero or more network attempts:
//
//   - Retries with exponential backoff + jitter, honoring Retry-After
//   - An idempotency gate: POST/PUT calls are retried only when they carry
//     an Idempotency-Key, sent unchanged on every attempt
//   - One cumulative deadline per call, shared across attempts and waits
//   - A closed error taxonomy (authentication, invalid request, not found,
//     rate limit, server, network) callers branch on by Kind
//   - Auto-paging iterators over list endpoints, terminated by the
//     server-reported total
//   - Optional client-side rate limiting, circuit breaking, Prometheus
//     metrics and structured debug logging
//
// Typical usage:
//
//	client := pagou.New(
//	    pagou.WithAPIKey(key),
//	    pagou.WithEnvironment(pagou.EnvironmentSandbox),
//	    pagou.WithMaxRetries(3),
//	)
//	tx, err := client.CreateTransaction(ctx, &pagou.TransactionParams{
//	    AmountCents:   1290,
//	    Currency:      "BRL",
//	    PaymentMethod: "pix",
//	}, pagou.WithIdempotencyKey(key))
//
//	it := client.IterateTransactions(ctx, nil)
//	for it.Next() {
//	    tx := it.Current()
//	    ...
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
//
// A single *Client is safe for concurrent use; every call owns its own spec,
// retry state and deadline.
package pagou
