package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locoganga/storefront/internal/domain/catalog"
)

func testPage(page int) *catalog.CatalogPage {
	return &catalog.CatalogPage{
		PageNumber:          page,
		Items:               []catalog.CatalogItem{{SPU: "SPU-1", Title: "Widget", TotalInventory: 3}},
		TotalEstimatedCount: 42,
		FetchedAt:           time.Now(),
		Source:              catalog.PageSourceLive,
	}
}

func TestInMemoryCatalogCache(t *testing.T) {
	ctx := context.Background()

	t.Run("get miss on empty cache", func(t *testing.T) {
		c := NewInMemoryCatalogCache()
		defer c.Close()

		_, ok, err := c.GetPage(ctx, PageKey("UKGF", 1, 20))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		c := NewInMemoryCatalogCache()
		defer c.Close()

		key := PageKey("UKGF", 1, 20)
		require.NoError(t, c.SetPage(ctx, key, testPage(1), time.Minute))

		got, ok, err := c.GetPage(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, got.PageNumber)
		assert.Equal(t, int64(42), got.TotalEstimatedCount)
	})

	t.Run("get returns an independent copy", func(t *testing.T) {
		c := NewInMemoryCatalogCache()
		defer c.Close()

		key := PageKey("UKGF", 1, 20)
		require.NoError(t, c.SetPage(ctx, key, testPage(1), time.Minute))

		first, ok, err := c.GetPage(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		first.Source = catalog.PageSourceCache
		first.Items[0].Title = "mutated"

		second, ok, err := c.GetPage(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, catalog.PageSourceLive, second.Source, "stored page keeps its source tag")
		assert.Equal(t, "Widget", second.Items[0].Title)
	})

	t.Run("concurrent readers can tag their pages", func(t *testing.T) {
		c := NewInMemoryCatalogCache()
		defer c.Close()

		key := PageKey("UKGF", 1, 20)
		require.NoError(t, c.SetPage(ctx, key, testPage(1), time.Minute))

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, ok, err := c.GetPage(ctx, key)
				assert.NoError(t, err)
				if assert.True(t, ok) {
					got.Source = catalog.PageSourceCache
				}
			}()
		}
		wg.Wait()
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		c := NewInMemoryCatalogCache()
		defer c.Close()

		key := PageKey("UKGF", 1, 20)
		require.NoError(t, c.SetPage(ctx, key, testPage(1), time.Millisecond))
		time.Sleep(5 * time.Millisecond)

		_, ok, err := c.GetPage(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalidate prefix drops only matching keys", func(t *testing.T) {
		c := NewInMemoryCatalogCache()
		defer c.Close()

		require.NoError(t, c.SetPage(ctx, PageKey("UKGF", 1, 20), testPage(1), time.Minute))
		require.NoError(t, c.SetPage(ctx, PageKey("UKGF", 2, 20), testPage(2), time.Minute))
		require.NoError(t, c.SetPage(ctx, PageKey("USCA", 1, 20), testPage(1), time.Minute))

		require.NoError(t, c.InvalidatePrefix(ctx, PagePrefix("UKGF")))

		_, ok, _ := c.GetPage(ctx, PageKey("UKGF", 1, 20))
		assert.False(t, ok)
		_, ok, _ = c.GetPage(ctx, PageKey("UKGF", 2, 20))
		assert.False(t, ok)
		_, ok, _ = c.GetPage(ctx, PageKey("USCA", 1, 20))
		assert.True(t, ok)
	})

	t.Run("cleanup removes expired entries", func(t *testing.T) {
		c := NewInMemoryCatalogCache()
		defer c.Close()

		require.NoError(t, c.SetPage(ctx, "a", testPage(1), time.Millisecond))
		require.NoError(t, c.SetPage(ctx, "b", testPage(2), time.Minute))
		time.Sleep(5 * time.Millisecond)

		c.cleanup()
		assert.Equal(t, 1, c.Size())
	})
}

func TestPageKey(t *testing.T) {
	assert.Equal(t, "catalog:page:UKGF:3:20", PageKey("UKGF", 3, 20))
	assert.Equal(t, "catalog:page:UKGF:", PagePrefix("UKGF"))
}
