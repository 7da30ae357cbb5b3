// Package bootstrap assembles the receipt pipeline from configuration. It is
// shared by the HTTP server and the command line generator.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	app "github.com/housika/receipts/internal/application/receipt"
	"github.com/housika/receipts/internal/infrastructure/asset"
	"github.com/housika/receipts/internal/infrastructure/cache"
	"github.com/housika/receipts/internal/infrastructure/config"
	"github.com/housika/receipts/internal/infrastructure/delivery"
	"github.com/housika/receipts/internal/infrastructure/printing"
	"github.com/housika/receipts/internal/infrastructure/qrcode"
	"github.com/housika/receipts/internal/infrastructure/storage"
	"github.com/housika/receipts/internal/infrastructure/telemetry"
)

// Pipeline is a fully wired receipt service and the parts callers may need
// directly.
type Pipeline struct {
	Service     *app.Service
	Registry    *delivery.Registry
	Assets      *asset.Cache
	SharedStore cache.AssetStore
	Objects     storage.ObjectStore
	DefaultSink delivery.Sink
}

// Option adjusts pipeline assembly.
type Option func(*options)

type options struct {
	metrics     *telemetry.ReceiptMetrics
	defaultSink delivery.Sink
	objects     storage.ObjectStore
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *telemetry.ReceiptMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDefaultSink overrides the sink selected by delivery.sink.
func WithDefaultSink(sink delivery.Sink) Option {
	return func(o *options) { o.defaultSink = sink }
}

// WithObjectStore uses store instead of connecting to S3.
func WithObjectStore(store storage.ObjectStore) Option {
	return func(o *options) { o.objects = store }
}

// Build wires the pipeline. Optional infrastructure that is unreachable
// (Redis) degrades; misconfiguration is an error.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	objects := o.objects
	if objects == nil && cfg.S3.Enabled {
		s3, err := storage.NewS3ObjectStorage(ctx, &cfg.S3,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.S3.LinkExpiry))
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		objects = s3
	}

	shared, err := cache.NewAssetStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("asset store: %w", err)
	}

	assets := asset.NewCache(
		asset.NewRouter(cfg.Assets, objects),
		asset.WithSharedStore(shared),
		asset.WithLogger(log),
	)

	encoder, err := qrcode.NewEncoder(cfg.QR, log)
	if err != nil {
		return nil, fmt.Errorf("qr encoder: %w", err)
	}

	sink := o.defaultSink
	if sink == nil {
		sink, err = NewSink(cfg.Delivery, objects, log)
		if err != nil {
			return nil, err
		}
	}

	registry := delivery.NewRegistry(delivery.WithLogger(log))
	service := app.NewService(
		assets,
		encoder,
		printing.NewEngine(cfg.Layout, log),
		printing.NewCompressor(log),
		registry,
		log,
		app.WithLogoSource(cfg.Assets.LogoSource),
		app.WithMetrics(o.metrics),
		app.WithDefaultSink(sink),
	)

	return &Pipeline{
		Service:     service,
		Registry:    registry,
		Assets:      assets,
		SharedStore: shared,
		Objects:     objects,
		DefaultSink: sink,
	}, nil
}

// NewSink returns the sink named by cfg.Sink.
func NewSink(cfg config.DeliveryConfig, objects storage.ObjectStore, log *zap.Logger) (delivery.Sink, error) {
	switch cfg.Sink {
	case "s3":
		if objects == nil {
			return nil, fmt.Errorf("delivery sink s3 requires object storage")
		}
		return delivery.NewObjectStoreSink(objects, cfg.S3Prefix, log), nil
	case "filesystem", "":
		sink, err := delivery.NewFileSystemSink(&delivery.FileSystemSinkConfig{
			BasePath: cfg.OutputDir,
			Logger:   log,
		})
		if err != nil {
			return nil, fmt.Errorf("filesystem sink: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown delivery sink %q", cfg.Sink)
	}
}
