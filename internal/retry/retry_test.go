package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/syndicate/internal/retry"
)

func noSleep(delays *[]time.Duration) retry.Option {
	return retry.WithSleepFunc(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration

	result, attempts, err := retry.Do(context.Background(), func(context.Context) (string, error) {
		return "ok", nil
	}, noSleep(&delays))

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, delays)
}

func TestDoRetriesWithDoublingDelay(t *testing.T) {
	var delays []time.Duration
	calls := 0
	failErr := errors.New("upstream unavailable")

	_, attempts, err := retry.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", failErr
	}, noSleep(&delays))

	require.ErrorIs(t, err, failErr)
	assert.Equal(t, 3, calls, "default cap is initial attempt plus two retries")
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestDoRecoversMidway(t *testing.T) {
	var delays []time.Duration
	calls := 0

	result, attempts, err := retry.Do(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, noSleep(&delays))

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
	assert.Len(t, delays, 2)
}

func TestDoPermanentErrorShortCircuits(t *testing.T) {
	var delays []time.Duration
	calls := 0
	authErr := errors.New("invalid token")

	_, attempts, err := retry.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", retry.Permanent(authErr)
	}, noSleep(&delays))

	require.Error(t, err)
	assert.ErrorIs(t, err, authErr)
	assert.True(t, retry.IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, delays)
}

func TestDoStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	calls := 0

	_, attempts, err := retry.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("transient")
	}, retry.WithSleepFunc(func(context.Context, time.Duration) error {
		return context.Canceled
	}))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
}

func TestDoCustomRetryCap(t *testing.T) {
	var delays []time.Duration
	calls := 0

	_, _, err := retry.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("transient")
	}, retry.WithMaxRetries(4), retry.WithInitialDelay(10*time.Millisecond), noSleep(&delays))

	require.Error(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
	}, delays)
}

func TestPermanentNilIsNil(t *testing.T) {
	assert.NoError(t, retry.Permanent(nil))
	assert.False(t, retry.IsPermanent(nil))
}
