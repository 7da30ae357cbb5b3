// Package storage provides object storage used to fetch receipt assets and
// to publish generated receipts.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of object storage the receipt pipeline needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// DownloadURL returns a time-limited link to key; expiresIn <= 0 uses
	// the store's default.
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
	Bucket() string
}
