package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	if got := policy.Delay(0); got != time.Second {
		t.Errorf("Delay(0) = %v", got)
	}
	if got := policy.Delay(1); got != 2*time.Second {
		t.Errorf("Delay(1) = %v", got)
	}
	if got := policy.Delay(2); got != 4*time.Second {
		t.Errorf("Delay(2) = %v", got)
	}
	// Capped at MaxDelay.
	if got := policy.Delay(10); got != 10*time.Second {
		t.Errorf("Delay(10) = %v", got)
	}
}

func TestRetryPolicyDelayJitterBounds(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
		Jitter:     true,
	}
	for i := 0; i < 50; i++ {
		d := policy.Delay(0)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay out of bounds: %v", d)
		}
	}
}

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 1.0,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &ServerError{ProviderError: ProviderError{Retryable: true}}
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d", calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, &AuthenticationError{}
	})
	if err == nil {
		t.Fatal("want error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error retried: %d calls", calls)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, &NetworkError{}
	})
	if err == nil {
		t.Fatal("want error")
	}
	// Initial call plus two retries.
	if calls != 3 {
		t.Errorf("calls = %d", calls)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	after := 0.005
	calls := 0
	var reported time.Duration
	policy := fastPolicy(1)
	policy.OnRetry = func(err error, attempt int, delay time.Duration) { reported = delay }

	_, _ = Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, &RateLimitError{ProviderError: ProviderError{Retryable: true, RetryAfter: &after}}
	})
	if calls != 2 {
		t.Errorf("calls = %d", calls)
	}
	if reported != 5*time.Millisecond {
		t.Errorf("delay = %v, want Retry-After override", reported)
	}
}

func TestRetryAbortsOnExcessiveRetryAfter(t *testing.T) {
	after := 3600.0
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, &RateLimitError{ProviderError: ProviderError{Retryable: true, RetryAfter: &after}}
	})
	if err == nil {
		t.Fatal("want error")
	}
	if calls != 1 {
		t.Errorf("retried despite hour-long Retry-After: %d calls", calls)
	}
}

func TestRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := fastPolicy(3)
	policy.BaseDelay = time.Second

	_, err := Retry(ctx, policy, func(ctx context.Context) (int, error) {
		return 0, &NetworkError{}
	})
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err = %v, want AbortError", err)
	}
}
