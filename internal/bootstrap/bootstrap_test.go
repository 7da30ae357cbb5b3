package bootstrap

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/cache"
	"github.com/housika/receipts/internal/infrastructure/config"
	"github.com/housika/receipts/internal/infrastructure/delivery"
	"github.com/housika/receipts/internal/infrastructure/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Assets:   config.AssetsConfig{LogoSource: "bundled:logo.png"},
		QR:       config.QRConfig{Level: "highest", Size: 256, Margin: 2},
		Delivery: config.DeliveryConfig{Sink: "filesystem", OutputDir: t.TempDir()},
	}
}

func TestBuild_FilesystemDefault(t *testing.T) {
	cfg := testConfig(t)
	p, err := Build(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.IsType(t, cache.NopAssetStore{}, p.SharedStore)
	assert.Nil(t, p.Objects)
	fsSink, ok := p.DefaultSink.(*delivery.FileSystemSink)
	require.True(t, ok)

	result, err := p.Service.Generate(context.Background(), domain.BookingRecord{
		PaymentID:  "PAY-1",
		AmountPaid: decimal.NewFromInt(100),
		Currency:   "KES",
	})
	require.NoError(t, err)
	saved, err := p.Service.Deliver(context.Background(), result.Document.URL, "")
	require.NoError(t, err)

	path, err := fsSink.Locate(context.Background(), result.Document.FileName)
	require.NoError(t, err)
	assert.Equal(t, path, saved.Location)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestBuild_ObjectStoreSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Delivery.Sink = "s3"
	cfg.Delivery.S3Prefix = "receipts/"
	objects := storage.NewMemoryObjectStorage("housika")

	p, err := Build(context.Background(), cfg, zaptest.NewLogger(t), WithObjectStore(objects))
	require.NoError(t, err)
	assert.Equal(t, "s3", p.DefaultSink.Name())

	result, err := p.Service.Generate(context.Background(), domain.BookingRecord{PaymentID: "PAY-2"})
	require.NoError(t, err)
	saved, err := p.Service.Deliver(context.Background(), result.Document.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "memory://housika/receipts/"+result.Document.FileName, saved.Location)

	data, err := objects.Get(context.Background(), "receipts/"+result.Document.FileName)
	require.NoError(t, err)
	assert.Equal(t, result.Document.Size, len(data))
}

func TestNewSink(t *testing.T) {
	_, err := NewSink(config.DeliveryConfig{Sink: "s3"}, nil, nil)
	assert.Error(t, err)

	_, err = NewSink(config.DeliveryConfig{Sink: "ftp"}, nil, nil)
	assert.Error(t, err)

	sink, err := NewSink(config.DeliveryConfig{Sink: "filesystem", OutputDir: t.TempDir()}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "filesystem", sink.Name())
}
