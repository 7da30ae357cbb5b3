package asset

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/cache"
)

// Cache memoizes encoded assets for the life of the process. Entries are
// written once per key and never evicted; the key space is the small fixed
// set of configured assets.
type Cache struct {
	fetcher Fetcher
	shared  cache.AssetStore
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string]EncodedAsset
	group   singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithSharedStore adds a second tier consulted before fetching.
func WithSharedStore(store cache.AssetStore) CacheOption {
	return func(c *Cache) {
		if store != nil {
			c.shared = store
		}
	}
}

// WithLogger sets the logger for degrade warnings.
func WithLogger(logger *zap.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates an empty cache backed by fetcher.
func NewCache(fetcher Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: fetcher,
		shared:  cache.NopAssetStore{},
		logger:  zap.NewNop(),
		entries: make(map[string]EncodedAsset),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the encoded asset for sourceID, fetching it on first use.
// Failures are logged and reported as a degraded outcome, never an error.
func (c *Cache) Get(ctx context.Context, sourceID string) receipt.Outcome[EncodedAsset] {
	c.mu.RLock()
	entry, ok := c.entries[sourceID]
	c.mu.RUnlock()
	if ok {
		return receipt.Ok(entry)
	}

	v, err, _ := c.group.Do(sourceID, func() (any, error) {
		return c.load(ctx, sourceID)
	})
	if err != nil {
		c.logger.Warn("Asset unavailable, rendering without it",
			zap.String("source", sourceID),
			zap.Error(err),
		)
		return receipt.Degraded[EncodedAsset](err.Error())
	}
	return receipt.Ok(v.(EncodedAsset))
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load(ctx context.Context, sourceID string) (EncodedAsset, error) {
	c.mu.RLock()
	entry, ok := c.entries[sourceID]
	c.mu.RUnlock()
	if ok {
		return entry, nil
	}

	if dataURI, found, err := c.shared.Get(ctx, sourceID); err != nil {
		c.logger.Debug("Shared asset tier read failed", zap.String("source", sourceID), zap.Error(err))
	} else if found {
		if entry, err := Decode(sourceID, dataURI); err == nil {
			c.store(entry)
			return entry, nil
		}
		c.logger.Warn("Ignoring malformed shared asset entry", zap.String("source", sourceID))
	}

	raw, err := c.fetcher.Fetch(ctx, sourceID)
	if err != nil {
		return EncodedAsset{}, err
	}
	entry, err = Encode(sourceID, raw)
	if err != nil {
		return EncodedAsset{}, err
	}
	c.store(entry)

	if err := c.shared.Set(ctx, sourceID, entry.DataURI); err != nil {
		c.logger.Debug("Shared asset tier write failed", zap.String("source", sourceID), zap.Error(err))
	}
	return entry, nil
}

func (c *Cache) store(entry EncodedAsset) {
	c.mu.Lock()
	c.entries[entry.SourceID] = entry
	c.mu.Unlock()
}
