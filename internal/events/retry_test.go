package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPublishSucceedsOnLastAttempt(t *testing.T) {
	attempts := 0
	err := retryPublish(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("broker down")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryPublishExhaustsAttempts(t *testing.T) {
	lastErr := errors.New("still down")
	attempts := 0
	err := retryPublish(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		return lastErr
	})

	require.ErrorIs(t, err, lastErr)
	require.Equal(t, 3, attempts)
}

func TestRetryPublishFirstAttemptSucceeds(t *testing.T) {
	attempts := 0
	err := retryPublish(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, attempts)
}

func TestRetryPublishClampsAttempts(t *testing.T) {
	attempts := 0
	err := retryPublish(context.Background(), 0, time.Millisecond, func(context.Context) error {
		attempts++
		return errors.New("down")
	})

	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestRetryPublishStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	failure := errors.New("down")
	attempts := 0
	err := retryPublish(ctx, 3, time.Hour, func(context.Context) error {
		attempts++
		return failure
	})

	require.ErrorIs(t, err, failure)
	require.Equal(t, 1, attempts)
}
