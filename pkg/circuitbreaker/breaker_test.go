package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func trip(t *testing.T, cb *CircuitBreaker, failures int) {
	t.Helper()
	for i := 0; i < failures; i++ {
		_ = cb.Execute(context.Background(), func() error { return errBoom })
	}
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("Starts closed and passes calls through", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{FailureThreshold: 3})

		err := cb.Execute(context.Background(), func() error { return nil })
		require.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("Opens after consecutive failures", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{FailureThreshold: 3, Timeout: time.Minute})

		trip(t, cb, 3)
		assert.Equal(t, StateOpen, cb.State())

		err := cb.Execute(context.Background(), func() error { return nil })
		assert.ErrorIs(t, err, ErrCircuitOpen)
	})

	t.Run("Success resets the failure streak", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{FailureThreshold: 3, Timeout: time.Minute})

		trip(t, cb, 2)
		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		trip(t, cb, 2)

		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("Half-open closes after enough successes", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{
			MaxRequests:      2,
			FailureThreshold: 1,
			SuccessThreshold: 2,
			Timeout:          10 * time.Millisecond,
		})

		trip(t, cb, 1)
		require.Equal(t, StateOpen, cb.State())

		time.Sleep(20 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("Half-open failure reopens", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{
			FailureThreshold: 1,
			Timeout:          10 * time.Millisecond,
		})

		trip(t, cb, 1)
		time.Sleep(20 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())

		trip(t, cb, 1)
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("Cancelled context is rejected without counting", func(t *testing.T) {
		cb := NewCircuitBreaker("test", Config{FailureThreshold: 1})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := cb.Execute(ctx, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StateClosed, cb.State())
	})
}
