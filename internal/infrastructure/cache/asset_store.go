// Package cache provides the shared tier behind the in-process asset cache,
// so encoded assets survive restarts and are fetched once per deployment.
package cache

import (
	"context"
)

// AssetStore is a write-once key/value store for encoded assets.
// Get reports found=false for a miss; a miss is never an error.
type AssetStore interface {
	Get(ctx context.Context, sourceID string) (encoded string, found bool, err error)
	Set(ctx context.Context, sourceID, encoded string) error
	Name() string
}

// NopAssetStore never stores anything. It is used when no shared tier is
// configured or reachable.
type NopAssetStore struct{}

// Get always misses.
func (NopAssetStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }

// Set discards the value.
func (NopAssetStore) Set(context.Context, string, string) error { return nil }

// Name identifies the tier in logs.
func (NopAssetStore) Name() string { return "none" }
