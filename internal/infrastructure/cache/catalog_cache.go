package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/locoganga/storefront/internal/domain/catalog"
)

// CatalogCache is the fast tier for storefront catalog pages. A miss is not
// an error; callers fall through to the live upstream.
type CatalogCache interface {
	// GetPage returns a cached page, or ok=false on a miss
	GetPage(ctx context.Context, key string) (*catalog.CatalogPage, bool, error)

	// SetPage stores a page with a TTL
	SetPage(ctx context.Context, key string, page *catalog.CatalogPage, ttl time.Duration) error

	// InvalidatePrefix drops every cached page under a key prefix
	InvalidatePrefix(ctx context.Context, prefix string) error

	// Close releases resources
	Close() error
}

// PageKey builds the cache key for one catalog page view
func PageKey(warehouseCode string, page, pageSize int) string {
	return fmt.Sprintf("catalog:page:%s:%d:%d", warehouseCode, page, pageSize)
}

// PagePrefix is the key prefix covering all pages for a warehouse
func PagePrefix(warehouseCode string) string {
	return fmt.Sprintf("catalog:page:%s:", warehouseCode)
}
