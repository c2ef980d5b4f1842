// Package retry wraps outbound LLM calls in exponential-backoff retry.
// Only transient failures retry (see Classify); cancellation is never a
// failure and is never retried. The backoff schedule itself is delegated to
// github.com/cenkalti/backoff/v4 rather than hand-rolled, since that
// library is already part of the dependency graph and implements the exact
// jittered-exponential shape.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay after the first failure.
	InitialDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
	// Multiplier scales the delay after each attempt.
	Multiplier float64
	// Jitter enables ±25% randomization of each delay.
	Jitter bool
}

// DefaultConfig returns a sensible default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Linear returns a configuration with constant delay (no exponential growth,
// no jitter) — useful for tests and low-stakes retries.
func Linear(maxAttempts int, delay time.Duration) Config {
	return Config{MaxAttempts: maxAttempts, InitialDelay: delay, MaxDelay: delay, Multiplier: 1.0, Jitter: false}
}

// Exponential returns an exponential-backoff configuration with jitter.
func Exponential(maxAttempts int, initial, max time.Duration) Config {
	return Config{MaxAttempts: maxAttempts, InitialDelay: initial, MaxDelay: max, Multiplier: 2.0, Jitter: true}
}

// Result carries the outcome of a retried operation.
type Result struct {
	Attempts int
	Err      error
	Duration time.Duration
}

// permanentJitterFactor implements the ±25% jitter;
// backoff.ExponentialBackOff's RandomizationFactor is exactly "delay ±
// factor*delay", so 0.25 matches.
const jitterFactor = 0.25

func newBackOff(cfg Config) backoff.BackOff {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.MaxInterval = cfg.MaxDelay
	b.Multiplier = cfg.Multiplier
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall-clock
	if cfg.Jitter {
		b.RandomizationFactor = jitterFactor
	} else {
		b.RandomizationFactor = 0
	}
	b.Reset()

	if cfg.MaxAttempts <= 1 {
		return backoff.WithMaxRetries(b, 0)
	}
	return backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1))
}

// Do executes op with retry. Cancellation (ctx.Err() != nil) aborts
// immediately without counting as a failed attempt beyond the one in
// progress, and is never classified as retryable.
func Do(ctx context.Context, cfg Config, op func() error) Result {
	start := time.Now()
	attempts := 0

	wrapped := func() error {
		attempts++
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		err := op()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(wrapped, backoff.WithContext(newBackOff(cfg), ctx))

	return Result{Attempts: attempts, Err: err, Duration: time.Since(start)}
}

// DoWithValue executes an operation that returns a value, with the same
// retry semantics as Do.
func DoWithValue[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, Result) {
	var value T
	result := Do(ctx, cfg, func() error {
		v, err := op()
		if err == nil {
			value = v
		}
		return err
	})
	return value, result
}

// Permanent marks err as non-retryable: IsPermanent(Permanent(err)) is true
// and the wrapped error is still reachable via errors.Is/errors.As.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}
