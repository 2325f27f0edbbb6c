package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func TestPolicy_Do(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		p := Policy{MaxAttempts: 3}
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		p := Policy{
			MaxAttempts: 3,
			Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
		}
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable error", func(t *testing.T) {
		calls := 0
		p := Policy{
			MaxAttempts: 5,
			Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
		}
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errPermanent
		})
		assert.ErrorIs(t, err, errPermanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts and returns last error", func(t *testing.T) {
		calls := 0
		p := Policy{MaxAttempts: 3}
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("none policy runs exactly once", func(t *testing.T) {
		calls := 0
		err := None().Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 1, calls)
	})

	t.Run("honors context cancellation between attempts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		p := Policy{MaxAttempts: 10, Backoff: 50 * time.Millisecond}
		err := p.Do(ctx, func(ctx context.Context) error {
			calls++
			cancel()
			return errTransient
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero max attempts still runs once", func(t *testing.T) {
		calls := 0
		p := Policy{}
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}
