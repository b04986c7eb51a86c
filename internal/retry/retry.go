// Package retry provides a generic retry executor with exponential
// backoff. Transient failures are retried up to a bounded attempt
// budget; failures wrapped with Permanent abort immediately. An error
// may carry an explicit retry-after hint that overrides the computed
// delay for that one retry.
package retry

import (
	"context"
	"errors"
	"time"
)

// Info carries the scheduling metadata handed to OnRetry.
type Info struct {
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
}

// Options controls a single Do invocation.
type Options struct {
	// MaxAttempts is the total attempt budget, minimum 1.
	MaxAttempts int
	// InitialDelay seeds the exponential schedule: the delay before
	// attempt k+1 is InitialDelay * 2^(k-1).
	InitialDelay time.Duration
	// OnRetry fires once per scheduled retry, after the failure and
	// before the delay elapses. Never fires for the final exhausting
	// failure. For logging only, never control flow.
	OnRetry func(err error, info Info)

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// permanentError marks a failure that cannot succeed on repetition.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do aborts on first occurrence regardless of
// the remaining attempt budget.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// RetryAfterer is implemented by errors carrying a provider-supplied
// retry-after hint (e.g. a rate limit response).
type RetryAfterer interface {
	RetryAfter() (time.Duration, bool)
}

// Do runs op until it succeeds, exhausts opts.MaxAttempts, or fails
// with a Permanent error. op receives the 1-based attempt number and
// the total budget. The final attempt's error is surfaced unchanged
// (unwrapped from Permanent).
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context, attempt, maxAttempts int) (T, error)) (T, error) {
	var zero T
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := op(ctx, attempt, opts.MaxAttempts)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var pe *permanentError
		if errors.As(err, &pe) {
			return zero, pe.err
		}
		if attempt == opts.MaxAttempts {
			break
		}

		delay := opts.InitialDelay << (attempt - 1)
		var ra RetryAfterer
		if errors.As(err, &ra) {
			if hint, ok := ra.RetryAfter(); ok {
				delay = hint
			}
		}
		if opts.OnRetry != nil {
			opts.OnRetry(err, Info{Attempt: attempt, MaxAttempts: opts.MaxAttempts, Delay: delay})
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// sleepCtx suspends for d without blocking unrelated work.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
