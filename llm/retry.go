package llm

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures retry behavior with exponential backoff. The retry
// policy lives in the transport layer; callers of the agent loop never see a
// retryable failure unless the policy is exhausted.
type RetryPolicy struct {
	MaxRetries int           // retry attempts, not counting the initial call
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // ceiling on any single delay
	Multiplier float64       // exponential backoff factor
	Jitter     bool          // randomize delays to avoid thundering herd
	OnRetry    func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the default transport retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Delay calculates the delay for attempt n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		// +/- 50% jitter.
		delay = delay * (0.5 + rand.Float64())
	}
	return time.Duration(delay)
}

// Retry executes fn under the policy. Only retryable errors are retried; a
// RateLimitError's Retry-After overrides the computed delay unless it exceeds
// MaxDelay, in which case the error is returned immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if !IsRetryable(err) {
			return zero, err
		}

		delay := policy.Delay(attempt)
		if rl, ok := err.(*RateLimitError); ok && rl.RetryAfter != nil {
			after := time.Duration(*rl.RetryAfter * float64(time.Second))
			if after > policy.MaxDelay {
				return zero, err
			}
			delay = after
		}

		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		select {
		case <-ctx.Done():
			return zero, &AbortError{ClientError: ClientError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		case <-time.After(delay):
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
	}

	return zero, err
}
