package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "evt_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkProcessed(ctx, "evt_1", time.Minute)
	require.NoError(t, err)
	assert.False(t, second, "redelivery of the same event must not win the mark")

	other, err := store.MarkProcessed(ctx, "evt_2", time.Minute)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestInMemoryIdempotencyStore_ExpiredMarkCanBeReclaimed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "evt_1", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	processed, err := store.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, processed)

	again, err := store.MarkProcessed(ctx, "evt_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "evt_1", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentMarkersSingleWinner(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	const goroutines = 32
	var wg sync.WaitGroup
	wins := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkProcessed(ctx, "evt_contended", time.Minute)
			assert.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for ok := range wins {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Close())
	}
}

func TestInMemoryIdempotencyStore_CleanupRemovesExpired(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := store.MarkProcessed(ctx, fmt.Sprintf("evt_%d", i), time.Nanosecond)
		require.NoError(t, err)
	}
	_, err := store.MarkProcessed(ctx, "evt_live", time.Hour)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}
