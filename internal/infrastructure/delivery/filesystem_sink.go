package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/housika/receipts/internal/domain/receipt"
)

// FileSystemSinkConfig contains configuration for file system delivery
type FileSystemSinkConfig struct {
	// BasePath is the directory receipts are saved into
	// Default: ./receipts
	BasePath string
	// Logger for operations
	Logger *zap.Logger
}

// FileSystemSink saves receipts into a local directory, the equivalent of a
// device download folder.
type FileSystemSink struct {
	basePath string
	logger   *zap.Logger
}

// NewFileSystemSink creates the base directory if needed.
func NewFileSystemSink(cfg *FileSystemSinkConfig) (*FileSystemSink, error) {
	if cfg == nil {
		cfg = &FileSystemSinkConfig{}
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./receipts"
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipt directory %s: %w", basePath, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileSystemSink{basePath: basePath, logger: logger}, nil
}

// Save writes data to fileName under the base directory. The file appears
// atomically; a reader never sees a partial receipt.
func (s *FileSystemSink) Save(ctx context.Context, fileName string, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath, err := s.resolve(fileName)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".receipt-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set receipt permissions: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		return fmt.Errorf("failed to move receipt into place: %w", err)
	}

	s.logger.Debug("Receipt written", zap.String("path", fullPath), zap.Int("size", len(data)))
	return nil
}

// Name identifies the sink in logs and metrics.
func (s *FileSystemSink) Name() string { return "filesystem" }

// Locate returns the path fileName is saved under.
func (s *FileSystemSink) Locate(_ context.Context, fileName string) (string, error) {
	return s.resolve(fileName)
}

// CleanupOlderThan removes saved receipts older than age.
func (s *FileSystemSink) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	deleted := 0

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list receipts: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.basePath, entry.Name())); err == nil {
			deleted++
		}
	}

	s.logger.Info("Receipt cleanup completed", zap.Int("deleted", deleted), zap.Duration("age", age))
	return deleted, nil
}

// resolve maps fileName to a path directly inside the base directory.
func (s *FileSystemSink) resolve(fileName string) (string, error) {
	if err := receipt.ValidateFileName(fileName); err != nil {
		s.logger.Warn("blocked potentially malicious file name", zap.String("file_name", fileName))
		return "", err
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, fileName))
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	if filepath.Dir(absPath) != absBase {
		s.logger.Warn("path escape attempt blocked",
			zap.String("file_name", fileName),
			zap.String("absPath", absPath),
			zap.String("absBase", absBase))
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	return absPath, nil
}

var (
	_ Sink    = (*FileSystemSink)(nil)
	_ Locator = (*FileSystemSink)(nil)
)
