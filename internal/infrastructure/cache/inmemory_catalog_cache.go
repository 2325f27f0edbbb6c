package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/locoganga/storefront/internal/domain/catalog"
)

// pageEntry is a stored catalog page with expiration
type pageEntry struct {
	page      *catalog.CatalogPage
	expiresAt time.Time
}

// InMemoryCatalogCache implements CatalogCache using an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemoryCatalogCache struct {
	mu        sync.RWMutex
	entries   map[string]pageEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCatalogCache creates an in-memory catalog cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryCatalogCache() *InMemoryCatalogCache {
	c := &InMemoryCatalogCache{
		entries:  make(map[string]pageEntry),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// GetPage returns a cached page, or ok=false on a miss. Callers get their own
// copy; the stored page is never handed out for mutation.
func (c *InMemoryCatalogCache) GetPage(ctx context.Context, key string) (*catalog.CatalogPage, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return copyPage(e.page), true, nil
}

// SetPage stores a copy of the page with a TTL
func (c *InMemoryCatalogCache) SetPage(ctx context.Context, key string, page *catalog.CatalogPage, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = pageEntry{
		page:      copyPage(page),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func copyPage(page *catalog.CatalogPage) *catalog.CatalogPage {
	copied := *page
	copied.Items = append([]catalog.CatalogItem(nil), page.Items...)
	return &copied
}

// InvalidatePrefix drops every cached page under a key prefix
func (c *InMemoryCatalogCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryCatalogCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryCatalogCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries
func (c *InMemoryCatalogCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryCatalogCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryCatalogCache implements CatalogCache
var _ CatalogCache = (*InMemoryCatalogCache)(nil)
