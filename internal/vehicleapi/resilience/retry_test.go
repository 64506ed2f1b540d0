package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, Factor: 2}
}

func TestRetrierStopsOnSuccess(t *testing.T) {
	r := NewRetrier(fastRetry(3))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errStore
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetrierReturnsLastError(t *testing.T) {
	r := NewRetrier(fastRetry(3))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errStore
	})

	assert.ErrorIs(t, err, errStore)
	assert.Equal(t, 3, calls)
}

func TestRetrierSkipsNonRetryable(t *testing.T) {
	errConflict := errors.New("conflict")
	cfg := fastRetry(3)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, errConflict) }
	r := NewRetrier(cfg)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errConflict
	})

	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 1, calls)
}

func TestRetrierDoesNotRetryOpenCircuit(t *testing.T) {
	r := NewRetrier(fastRetry(5))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return ErrCircuitOpen
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, calls)
}

func TestRetrierHonoursCancellation(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, Factor: 1})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func(context.Context) error {
			calls++
			return errStore
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errStore)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retrier did not stop after cancellation")
	}
}

func TestRetrierSingleAttempt(t *testing.T) {
	r := NewRetrier(RetryConfig{})

	calls := 0
	_ = r.Do(context.Background(), func(context.Context) error {
		calls++
		return errStore
	})
	assert.Equal(t, 1, calls)
}
