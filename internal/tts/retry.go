package tts

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is exponential backoff with jitter, applied only to transient
// failures (see IsTransient). Terminal failures surface immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
}

// DefaultRetryPolicy mirrors the pacing the product settled on: five
// attempts, 400ms doubling to a 4s cap, up to 200ms of jitter so a batch of
// failed segments does not retry in lockstep.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   400 * time.Millisecond,
		MaxDelay:    4 * time.Second,
		Jitter:      200 * time.Millisecond,
	}
}

// Do runs fn until it succeeds, fails terminally, exhausts the attempt
// budget, or ctx is cancelled.
func Do[T any](ctx context.Context, p RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	delay := p.BaseDelay
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == p.MaxAttempts-1 {
			return zero, err
		}

		jitter := time.Duration(0)
		if p.Jitter > 0 {
			jitter = time.Duration(rand.Int63n(int64(p.Jitter)))
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return zero, lastErr
}
