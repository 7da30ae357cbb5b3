package cache

import (
	"context"
	"fmt"

	"github.com/housika/receipts/internal/infrastructure/config"
	"go.uber.org/zap"
)

// AssetStoreFactory creates the shared asset tier from configuration.
type AssetStoreFactory struct {
	redisConfig   config.RedisConfig
	logger        *zap.Logger
	allowFallback bool
}

// AssetStoreFactoryOption configures the factory.
type AssetStoreFactoryOption func(*AssetStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) AssetStoreFactoryOption {
	return func(f *AssetStoreFactory) {
		f.logger = logger
	}
}

// WithFallback controls whether an unreachable Redis degrades to the
// in-process tier only (default true).
func WithFallback(allow bool) AssetStoreFactoryOption {
	return func(f *AssetStoreFactory) {
		f.allowFallback = allow
	}
}

// NewAssetStoreFactory creates a new factory
func NewAssetStoreFactory(cfg config.RedisConfig, opts ...AssetStoreFactoryOption) *AssetStoreFactory {
	f := &AssetStoreFactory{
		redisConfig:   cfg,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// otherwise NopAssetStore.
func (f *AssetStoreFactory) CreateStore(ctx context.Context) (AssetStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Shared asset cache disabled, using in-process cache only")
		return NopAssetStore{}, nil
	}

	store, err := NewRedisAssetStore(ctx, RedisConfig{
		Addr:      f.redisConfig.Addr(),
		Password:  f.redisConfig.Password,
		DB:        f.redisConfig.DB,
		KeyPrefix: f.redisConfig.KeyPrefix,
	})
	if err == nil {
		f.logger.Info("Using Redis shared asset cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowFallback {
		return nil, fmt.Errorf("redis required for asset cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, using in-process asset cache only", zap.Error(err))
	return NopAssetStore{}, nil
}
