package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_Success(t *testing.T) {
	calls := 0
	res := Do(context.Background(), Linear(3, time.Millisecond), func() error {
		calls++
		return nil
	})
	if res.Err != nil {
		t.Fatalf("expected no error, got %v", res.Err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetryThenSuccess(t *testing.T) {
	calls := 0
	res := Do(context.Background(), Linear(5, time.Millisecond), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if res.Err != nil {
		t.Fatalf("expected no error, got %v", res.Err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_MaxAttemptsExhausted(t *testing.T) {
	calls := 0
	res := Do(context.Background(), Linear(3, time.Millisecond), func() error {
		calls++
		return errors.New("always fails")
	})
	if res.Err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorNoRetry(t *testing.T) {
	calls := 0
	res := Do(context.Background(), Linear(5, time.Millisecond), func() error {
		calls++
		return Permanent(errors.New("bad request"))
	})
	if res.Err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a permanent error, got %d", calls)
	}
}

func TestDo_ContextCanceledNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	res := Do(ctx, Linear(5, time.Millisecond), func() error {
		calls++
		return errors.New("would retry")
	})
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call after cancellation, got %d", calls)
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil should not be transient")
	}
	if IsTransient(context.Canceled) {
		t.Error("cancellation should not be transient")
	}
	if !IsTransient(&RateLimitError{Err: errors.New("429"), RetryAfter: "1s"}) {
		t.Error("rate limit should be transient")
	}
	if !IsTransient(&StatusError{Code: 503, Err: errors.New("unavailable")}) {
		t.Error("5xx should be transient")
	}
	if IsTransient(&StatusError{Code: 400, Err: errors.New("bad request")}) {
		t.Error("4xx should not be transient")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if IsRetryable(Permanent(errors.New("perm"))) {
		t.Error("permanent should not be retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Error("cancellation should not be retryable")
	}
	if !IsRetryable(errors.New("transient")) {
		t.Error("plain error should be retryable")
	}
}
