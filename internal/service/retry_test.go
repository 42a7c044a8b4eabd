package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries transient errors until the operation succeeds", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return &TransientError{Op: "get", Err: errors.New("connection reset")}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), func() error {
			calls++
			return &TransientError{Op: "get", Err: errors.New("connection reset")}
		})
		require.Error(t, err)
		assert.True(t, IsTransient(err))
		assert.Equal(t, maxRetries+1, calls)
	})

	t.Run("does not retry non-transient errors", func(t *testing.T) {
		calls := 0
		sentinel := errors.New("corrupt row")
		err := withRetry(context.Background(), func() error {
			calls++
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls)
	})
}
