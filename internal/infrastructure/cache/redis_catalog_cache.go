package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/locoganga/storefront/internal/domain/catalog"
)

// RedisCatalogCache implements CatalogCache on Redis. Suitable for
// multi-instance deployments where page views should be shared.
type RedisCatalogCache struct {
	client *redis.Client
}

// NewRedisCatalogCache creates a Redis-backed catalog cache
func NewRedisCatalogCache(cfg RedisConfig) (*RedisCatalogCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCatalogCache{client: client}, nil
}

// NewRedisCatalogCacheWithClient creates a cache with an existing Redis client
func NewRedisCatalogCacheWithClient(client *redis.Client) *RedisCatalogCache {
	return &RedisCatalogCache{client: client}
}

// GetPage returns a cached page, or ok=false on a miss
func (c *RedisCatalogCache) GetPage(ctx context.Context, key string) (*catalog.CatalogPage, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached page: %w", err)
	}

	var page catalog.CatalogPage
	if err := json.Unmarshal(raw, &page); err != nil {
		// A corrupt entry is treated as a miss and dropped
		_ = c.client.Del(ctx, key).Err()
		return nil, false, nil
	}
	return &page, true, nil
}

// SetPage stores a page with a TTL
func (c *RedisCatalogCache) SetPage(ctx context.Context, key string, page *catalog.CatalogPage, ttl time.Duration) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

// InvalidatePrefix drops every cached page under a key prefix
func (c *RedisCatalogCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCatalogCache implements CatalogCache
var _ CatalogCache = (*RedisCatalogCache)(nil)
