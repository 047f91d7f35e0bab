// Package retrier retries transient failures with exponential backoff.
package retrier

import (
	"context"
	"errors"
	"time"
)

// Retrier runs a function up to a fixed number of attempts, doubling the
// wait between attempts up to a cap.
type Retrier struct {
	interval time.Duration
	max      time.Duration
	attempts int
}

// New creates a retrier. attempts counts total tries, not retries.
func New(interval, max time.Duration, attempts int) *Retrier {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if max < interval {
		max = interval
	}
	if attempts < 1 {
		attempts = 1
	}
	return &Retrier{interval: interval, max: max, attempts: attempts}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; Do stops immediately and
// returns the original error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, fails permanently, attempts are exhausted,
// or ctx is done.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := r.interval

	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
			interval *= 2
			if interval > r.max {
				interval = r.max
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
	}
	return err
}

// DoWithData runs fn with retries and returns its value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
