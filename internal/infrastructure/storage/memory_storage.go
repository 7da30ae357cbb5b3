package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var _ ObjectStore = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage is an in-process ObjectStore for development and tests.
type MemoryObjectStorage struct {
	// BaseURL prefixes generated download URLs.
	BaseURL string

	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryObjectStorage creates an empty store for bucket.
func NewMemoryObjectStorage(bucket string) *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "memory://",
		bucket:  bucket,
		objects: make(map[string]memoryObject),
	}
}

// Get returns a copy of the stored object.
func (m *MemoryObjectStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return append([]byte(nil), obj.data...), nil
}

// Put stores a copy of data.
func (m *MemoryObjectStorage) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// DownloadURL returns BaseURL/bucket/key.
func (m *MemoryObjectStorage) DownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	return m.BaseURL + m.bucket + "/" + key, nil
}

// Bucket returns the bucket name.
func (m *MemoryObjectStorage) Bucket() string {
	return m.bucket
}

// ContentType returns the content type recorded for key.
func (m *MemoryObjectStorage) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}
