// Package retry wraps a single platform call with bounded exponential
// backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultMaxRetries is the number of retries after the initial attempt.
	DefaultMaxRetries = 2
	// DefaultInitialDelay is the delay before the first retry; it doubles
	// after every failed attempt.
	DefaultInitialDelay = time.Second
)

// Options configures one retry execution.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration

	// sleep waits for the backoff delay, honoring context cancellation.
	// Replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option mutates Options.
type Option func(*Options)

// WithMaxRetries sets the retry cap (total attempts = maxRetries + 1).
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(o *Options) { o.InitialDelay = d }
}

// WithSleepFunc replaces the backoff sleeper. Test hook.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Options) { o.sleep = fn }
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Permanent marks an error so Do surfaces it immediately instead of
// retrying. Adapters use it for authorization failures, where repeating
// the call cannot help.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do runs fn up to maxRetries+1 times, doubling the delay after each
// failed attempt. Errors are not classified: everything is retried up to
// the cap, except errors explicitly marked with Permanent, which are
// surfaced at once. Returns the last result, the number of attempts made,
// and the last error when all attempts fail.
func Do[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts ...Option) (T, int, error) {
	o := Options{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		sleep:        sleepCtx,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}

	var result T
	var lastErr error
	delay := o.InitialDelay

	attempts := 0
	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		attempts++
		result, lastErr = fn(ctx)
		if lastErr == nil {
			return result, attempts, nil
		}
		if IsPermanent(lastErr) {
			return result, attempts, lastErr
		}

		if attempt == o.MaxRetries {
			break
		}
		if sleepErr := o.sleep(ctx, delay); sleepErr != nil {
			return result, attempts, sleepErr
		}
		delay *= 2
	}

	return result, attempts, lastErr
}
