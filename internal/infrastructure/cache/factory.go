package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/locoganga/storefront/internal/domain/shared"
	"github.com/locoganga/storefront/internal/infrastructure/config"
)

// Factory creates cache-backed components based on configuration. Redis is
// preferred; single-instance deployments may fall back to in-memory stores.
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when
// Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new cache factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// redisCfg adapts the application Redis config to this package
func (f *Factory) redisCfg() RedisConfig {
	return RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}
}

// CreateIdempotencyStore creates an idempotency store, preferring Redis.
// In-memory stores do not share state across instances, which can lead to
// duplicate webhook processing in distributed deployments.
func (f *Factory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	if f.redisConfig.Enabled {
		store, err := NewRedisIdempotencyStore(f.redisCfg())
		if err == nil {
			f.logger.Info("using Redis idempotency store")
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
			zap.Error(err))
	}
	return NewInMemoryIdempotencyStore(), nil
}

// CreateCatalogCache creates a catalog page cache, preferring Redis
func (f *Factory) CreateCatalogCache() (CatalogCache, error) {
	if f.redisConfig.Enabled {
		c, err := NewRedisCatalogCache(f.redisCfg())
		if err == nil {
			f.logger.Info("using Redis catalog cache")
			return c, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for catalog cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory catalog cache",
			zap.Error(err))
	}
	return NewInMemoryCatalogCache(), nil
}
