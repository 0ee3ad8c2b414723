package util

import (
	"context"
	"errors"
	"time"
)

// RetryWithBackoff calls fn up to maxTries times until it returns nil error,
// sleeping delay between attempts. When backoff is true the delay doubles after
// each failed attempt. If maxTries <= 0, it defaults to 1. Context errors stop
// the retries immediately; otherwise the last error is returned once the
// attempt budget is exhausted.
func RetryWithBackoff[T any](ctx context.Context, maxTries int, delay time.Duration, backoff bool, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var zero T
	var lastErr error
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
		if i == maxTries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		if backoff {
			delay *= 2
		}
	}
	return zero, lastErr
}
