package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultAssetKeyPrefix namespaces asset keys in a shared Redis.
const DefaultAssetKeyPrefix = "housika:asset:"

// RedisAssetStore implements AssetStore on Redis. Keys carry no TTL: assets
// are a small fixed set and live as long as the deployment.
type RedisAssetStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisAssetStore connects to Redis and verifies the connection.
func NewRedisAssetStore(ctx context.Context, cfg RedisConfig) (*RedisAssetStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAssetStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisAssetStoreWithClient creates a store on an existing client.
func NewRedisAssetStoreWithClient(client redis.Cmdable, keyPrefix string) *RedisAssetStore {
	if keyPrefix == "" {
		keyPrefix = DefaultAssetKeyPrefix
	}
	return &RedisAssetStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the encoded asset stored for sourceID.
func (s *RedisAssetStore) Get(ctx context.Context, sourceID string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+sourceID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read asset %s: %w", sourceID, err)
	}
	return val, true, nil
}

// Set stores the encoded asset unless another instance stored it first.
// Entries are identical for the same source, so losing the race is harmless.
func (s *RedisAssetStore) Set(ctx context.Context, sourceID, encoded string) error {
	if err := s.client.SetNX(ctx, s.keyPrefix+sourceID, encoded, 0).Err(); err != nil {
		return fmt.Errorf("failed to store asset %s: %w", sourceID, err)
	}
	return nil
}

// Name identifies the tier in logs.
func (s *RedisAssetStore) Name() string { return "redis" }

// Ping checks the Redis connection.
func (s *RedisAssetStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
