package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	operation := func() error {
		attempts++
		return expectedErr
	}

	err := RetryWithBackoff(context.Background(), operation, 3, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_Permanent(t *testing.T) {
	attempts := 0
	cause := errors.New("bad input")
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return Permanent(cause)
	}, 5, time.Millisecond)

	assert.Equal(t, cause, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	err := RetryWithBackoff(ctx, operation, 10, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	operation := func() error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, delays, 3)
	assert.GreaterOrEqual(t, delays[0], 10*time.Millisecond)
	assert.GreaterOrEqual(t, delays[1], 20*time.Millisecond)
	assert.GreaterOrEqual(t, delays[2], 40*time.Millisecond)
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		attempts := 0
		err := RetryWithBackoff(context.Background(), func() error {
			attempts++
			return nil
		}, n, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Zero(t, attempts)
	}
}
