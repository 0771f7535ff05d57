package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy controls how rate-limited calls are repeated
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialInterval doubles after every retry: 1s, 2s, 4s by default.
	InitialInterval time.Duration
}

// DefaultRetryPolicy retries three times with 1s, 2s and 4s waits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: time.Second}
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = p.InitialInterval << max(p.MaxRetries, 0)
	return b
}

// RetryNotify is told about every retry before the wait starts.
type RetryNotify func(attempt int, err error, wait time.Duration)

// RetryOnRateLimit calls fn and repeats it only while it fails with HTTP 429.
// Any other error is returned immediately.
func RetryOnRateLimit[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error), notify RetryNotify) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		result, err := fn(ctx)
		if err != nil && !IsRateLimited(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(max(policy.MaxRetries, 0) + 1)),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			notify(attempt, err, wait)
		}))
	}

	result, err := backoff.Retry(ctx, operation, opts...)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return result, err
}
