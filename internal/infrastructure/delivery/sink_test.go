package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/storage"
)

func TestResponseSink(t *testing.T) {
	rec := httptest.NewRecorder()
	err := ResponseSink{W: rec}.Save(context.Background(), "Housika_Receipt_PAY123.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypePDF, rec.Header().Get("Content-Type"))
	assert.Equal(t, "8", rec.Header().Get("Content-Length"))
	assert.Equal(t, `attachment; filename=Housika_Receipt_PAY123.pdf`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestFileSystemSink(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "receipts")

	sink, err := NewFileSystemSink(&FileSystemSinkConfig{BasePath: dir})
	require.NoError(t, err)
	assert.Equal(t, "filesystem", sink.Name())

	t.Run("saves into base directory", func(t *testing.T) {
		require.NoError(t, sink.Save(ctx, "Housika_Receipt_PAY123.pdf", []byte("%PDF-1.3")))

		data, err := os.ReadFile(filepath.Join(dir, "Housika_Receipt_PAY123.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.3", string(data))
	})

	t.Run("overwrites existing receipt", func(t *testing.T) {
		require.NoError(t, sink.Save(ctx, "again.pdf", []byte("one")))
		require.NoError(t, sink.Save(ctx, "again.pdf", []byte("two")))
		data, err := os.ReadFile(filepath.Join(dir, "again.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "two", string(data))
	})

	t.Run("rejects path escape", func(t *testing.T) {
		for _, name := range []string{
			"../evil.pdf",
			"nested/../../evil.pdf",
			"/etc/passwd",
			"sub/receipt.pdf",
			`..\evil.pdf`,
			"",
		} {
			assert.ErrorIs(t, sink.Save(ctx, name, []byte("x")), receipt.ErrInvalidFileName, name)
		}
		_, err := os.Stat(filepath.Join(filepath.Dir(dir), "evil.pdf"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("rejects names that are not pdf files", func(t *testing.T) {
		for _, name := range []string{".", "..", ".pdf", ".receipt-123.pdf", "receipt.txt", "receipt"} {
			assert.ErrorIs(t, sink.Save(ctx, name, []byte("x")), receipt.ErrInvalidFileName, name)
		}
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, e.IsDir(), e.Name())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, sink.Save(cctx, "x.pdf", []byte("x")), context.Canceled)
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.Equal(t, ".pdf", filepath.Ext(e.Name()))
		}
	})
}

func TestFileSystemSink_CleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSystemSink(&FileSystemSinkConfig{BasePath: dir})
	require.NoError(t, err)

	require.NoError(t, sink.Save(context.Background(), "old.pdf", []byte("old")))
	require.NoError(t, sink.Save(context.Background(), "new.pdf", []byte("new")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.pdf"), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "notes.txt"), past, past))

	deleted, err := sink.CleanupOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(filepath.Join(dir, "new.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}

func TestObjectStoreSink(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryObjectStorage("receipts")
	sink := NewObjectStoreSink(store, "/2024/", nil)

	require.NoError(t, sink.Save(ctx, "Housika_Receipt_PAY123.pdf", []byte("%PDF")))
	assert.Equal(t, "2024/Housika_Receipt_PAY123.pdf", sink.Key("Housika_Receipt_PAY123.pdf"))

	data, err := store.Get(ctx, "2024/Housika_Receipt_PAY123.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	assert.Equal(t, ContentTypePDF, store.ContentType("2024/Housika_Receipt_PAY123.pdf"))

	link, err := sink.Locate(ctx, "Housika_Receipt_PAY123.pdf")
	require.NoError(t, err)
	assert.Equal(t, "memory://receipts/2024/Housika_Receipt_PAY123.pdf", link)

	for _, name := range []string{"a/b.pdf", "../b.pdf", "..", "b.txt", ""} {
		assert.ErrorIs(t, sink.Save(ctx, name, []byte("x")), receipt.ErrInvalidFileName, name)
	}
	_, err = store.Get(ctx, "2024/b.txt")
	assert.Error(t, err)
	assert.Equal(t, "s3", sink.Name())
}
