package delivery

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/storage"
)

// ObjectStoreSink uploads receipts to object storage under a key prefix.
type ObjectStoreSink struct {
	store  storage.ObjectStore
	prefix string
	logger *zap.Logger
}

// NewObjectStoreSink creates a sink writing to store.
func NewObjectStoreSink(store storage.ObjectStore, prefix string, logger *zap.Logger) *ObjectStoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObjectStoreSink{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// Key returns the object key used for fileName.
func (s *ObjectStoreSink) Key(fileName string) string {
	if s.prefix == "" {
		return fileName
	}
	return path.Join(s.prefix, fileName)
}

// Save uploads data and returns once the store has accepted it.
func (s *ObjectStoreSink) Save(ctx context.Context, fileName string, data []byte) error {
	if err := receipt.ValidateFileName(fileName); err != nil {
		return err
	}
	key := s.Key(fileName)
	if err := s.store.Put(ctx, key, data, ContentTypePDF); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("Receipt uploaded",
		zap.String("bucket", s.store.Bucket()),
		zap.String("key", key))
	return nil
}

// Locate returns a presigned link to the uploaded receipt.
func (s *ObjectStoreSink) Locate(ctx context.Context, fileName string) (string, error) {
	return s.store.DownloadURL(ctx, s.Key(fileName), 0)
}

// Name identifies the sink in logs and metrics.
func (s *ObjectStoreSink) Name() string { return "s3" }

var (
	_ Sink    = (*ObjectStoreSink)(nil)
	_ Locator = (*ObjectStoreSink)(nil)
)
