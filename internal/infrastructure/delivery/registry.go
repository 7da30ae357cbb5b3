// Package delivery hands generated receipts to their consumers. Bytes are
// parked behind short-lived handles until a sink has written them, after
// which the handle is released exactly once.
package delivery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/housika/receipts/internal/domain/receipt"
)

// URLPrefix prefixes every handle URL.
const URLPrefix = "blob:housika/"

// Blob is the content behind a live handle. Data must not be modified.
type Blob struct {
	Data          []byte
	FileName      string
	ReceiptNumber string
	CreatedAt     time.Time
}

type handle struct {
	blob       Blob
	once       sync.Once
	released   bool
	releasedAt time.Time
}

// Registry issues and tracks transient handles.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*handle
	logger  *zap.Logger
	now     func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handles: make(map[string]*handle),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Materialize parks data behind a fresh handle and describes it.
func (r *Registry) Materialize(data []byte, receiptNumber string) receipt.ReceiptDocument {
	id := uuid.NewString()
	now := r.now()
	buf := make([]byte, len(data))
	copy(buf, data)

	h := &handle{blob: Blob{
		Data:          buf,
		FileName:      receipt.FileName(receiptNumber),
		ReceiptNumber: receiptNumber,
		CreatedAt:     now,
	}}

	r.mu.Lock()
	r.handles[id] = h
	r.mu.Unlock()

	return receipt.ReceiptDocument{
		URL:           URLPrefix + id,
		FileName:      h.blob.FileName,
		Size:          len(buf),
		ReceiptNumber: receiptNumber,
		GeneratedAt:   now,
	}
}

// Resolve returns the content behind a handle URL or bare handle id.
func (r *Registry) Resolve(url string) (Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[handleID(url)]
	if !ok {
		return Blob{}, receipt.ErrHandleNotFound
	}
	if h.released {
		return Blob{}, receipt.ErrHandleReleased
	}
	return h.blob, nil
}

// Release frees the handle's bytes. Only the first call releases; later calls
// return receipt.ErrHandleReleased.
func (r *Registry) Release(url string) error {
	r.mu.Lock()
	h, ok := r.handles[handleID(url)]
	r.mu.Unlock()
	if !ok {
		return receipt.ErrHandleNotFound
	}

	released := false
	h.once.Do(func() {
		r.mu.Lock()
		h.released = true
		h.releasedAt = r.now()
		h.blob.Data = nil
		r.mu.Unlock()
		released = true
	})
	if !released {
		return receipt.ErrHandleReleased
	}
	return nil
}

// Save writes the handle's bytes to sink and then releases the handle,
// whether or not the write succeeded. The release happens only after the
// sink has returned. Release problems are logged, never reported as a
// failed save.
func (r *Registry) Save(ctx context.Context, url, fileName string, sink Sink) (ok bool) {
	blob, err := r.Resolve(url)
	if err != nil {
		r.logger.Warn("Receipt save skipped", zap.String("url", url), zap.Error(err))
		return false
	}
	if fileName == "" {
		fileName = blob.FileName
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Receipt sink panicked",
				zap.String("sink", sink.Name()),
				zap.Any("panic", rec))
			ok = false
		}
		if err := r.Release(url); err != nil {
			r.logger.Debug("Handle release after save", zap.String("url", url), zap.Error(err))
		}
	}()

	if err := sink.Save(ctx, fileName, blob.Data); err != nil {
		r.logger.Warn("Receipt save failed",
			zap.String("sink", sink.Name()),
			zap.String("file_name", fileName),
			zap.Error(err))
		return false
	}

	r.logger.Info("Receipt saved",
		zap.String("sink", sink.Name()),
		zap.String("file_name", fileName),
		zap.Int("size", len(blob.Data)))
	return true
}

// ReleaseOlderThan releases live handles created more than age ago and drops
// release records older than age. It returns how many live handles it released.
func (r *Registry) ReleaseOlderThan(age time.Duration) int {
	cutoff := r.now().Add(-age)

	var stale []string
	r.mu.Lock()
	for id, h := range r.handles {
		if h.released {
			if h.releasedAt.Before(cutoff) {
				delete(r.handles, id)
			}
			continue
		}
		if h.blob.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	released := 0
	for _, id := range stale {
		if err := r.Release(id); err == nil {
			released++
		}
	}
	if released > 0 {
		r.logger.Info("Released abandoned receipt handles",
			zap.Int("count", released),
			zap.Duration("age", age))
	}
	return released
}

// Live returns the number of handles that have not been released.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, h := range r.handles {
		if !h.released {
			n++
		}
	}
	return n
}

func handleID(url string) string {
	return strings.TrimPrefix(strings.TrimSpace(url), URLPrefix)
}
