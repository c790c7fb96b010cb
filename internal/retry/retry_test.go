package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), fastPolicy(), Always, func() (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	val, err := Do(context.Background(), fastPolicy(), Always, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "connected", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "connected", val)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), Always, func() (int, error) {
		calls++
		return 0, errors.New("still down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	authErr := errors.New("bad credentials")
	classify := func(err error) Action {
		if errors.Is(err, authErr) {
			return Stop
		}
		return Retry
	}

	calls := 0
	_, err := Do(context.Background(), fastPolicy(), classify, func() (int, error) {
		calls++
		return 0, authErr
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var permanent *PermanentError
	assert.ErrorAs(t, err, &permanent)
	assert.ErrorIs(t, err, authErr)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, Policy{MaxAttempts: 5, InitialBackoff: time.Hour}, Always, func() (int, error) {
		return 0, errors.New("down")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	p := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry:        func(attempt int, err error, backoff time.Duration) { attempts = append(attempts, attempt) },
	}

	_, _ = Do(context.Background(), p, Always, func() (int, error) {
		return 0, errors.New("down")
	})

	assert.Equal(t, []int{1, 2}, attempts, "no callback after the final attempt")
}

func TestDoVoid(t *testing.T) {
	calls := 0
	err := DoVoid(context.Background(), fastPolicy(), Always, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
