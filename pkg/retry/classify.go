package retry

import (
	"context"
	"errors"
	"io"
	"net"
)

// IsRetryable reports whether err should be retried at all: nil and
// Permanent-wrapped errors are not; everything else is, by default.
// Cancellation is special-cased to false — the caller (Do) already treats
// it as immediate termination, but outside callers (e.g. the circuit
// breaker) also need to ask this question directly.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsPermanent(err)
}

// RateLimitError signals a provider-side rate limit with an optional
// Retry-After hint. Transient by definition.
type RateLimitError struct {
	Err        error
	RetryAfter string
}

func (e *RateLimitError) Error() string { return e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// IsTransient classifies an upstream LLM-call error as transient (I/O
// error, HTTP 5xx, or rate-limit) versus non-transient (authentication, bad
// request). Cancellation is neither — callers must check that separately
// via errors.Is(err, context.Canceled/DeadlineExceeded) first.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 && se.Code < 600
	}
	return false
}

// StatusError carries an HTTP-ish status code for classification, without
// depending on net/http (the core doesn't own a transport layer).
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }
