// Package receipt runs the receipt pipeline: asset, QR code, layout,
// compression and delivery, strictly in that order for each call.
package receipt

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	domain "github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/asset"
	"github.com/housika/receipts/internal/infrastructure/delivery"
	"github.com/housika/receipts/internal/infrastructure/logger"
	"github.com/housika/receipts/internal/infrastructure/printing"
	"github.com/housika/receipts/internal/infrastructure/telemetry"
)

// AssetSource returns encoded assets; unavailable assets come back degraded.
type AssetSource interface {
	Get(ctx context.Context, sourceID string) domain.Outcome[asset.EncodedAsset]
}

// QREncoder renders QR code images.
type QREncoder interface {
	Encode(text string) domain.Outcome[[]byte]
}

// Compressor shrinks rendered documents, falling back to the input bytes.
type Compressor interface {
	Compress(ctx context.Context, raw []byte, receiptNumber string) domain.Outcome[[]byte]
}

// Service is the composition root of a receipt generation call. It owns
// the asset cache, so repeated generations share fetched assets.
type Service struct {
	assets      AssetSource
	qr          QREncoder
	renderer    printing.Renderer
	compressor  Compressor
	registry    *delivery.Registry
	defaultSink delivery.Sink
	logoSource  string
	metrics     *telemetry.ReceiptMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogoSource sets the asset source id of the header logo. An empty
// source renders receipts without a logo.
func WithLogoSource(sourceID string) Option {
	return func(s *Service) { s.logoSource = sourceID }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *telemetry.ReceiptMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDefaultSink sets the sink used by Deliver.
func WithDefaultSink(sink delivery.Sink) Option {
	return func(s *Service) { s.defaultSink = sink }
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a receipt service.
func NewService(
	assets AssetSource,
	qr QREncoder,
	renderer printing.Renderer,
	compressor Compressor,
	registry *delivery.Registry,
	log *zap.Logger,
	opts ...Option,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		assets:     assets,
		qr:         qr,
		renderer:   renderer,
		compressor: compressor,
		registry:   registry,
		logoSource: asset.DefaultLogoSource,
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate validates the booking, runs every stage and parks the final bytes
// behind a transient handle. Only validation and layout failures are
// returned as errors; every other stage degrades.
func (s *Service) Generate(ctx context.Context, booking domain.BookingRecord) (*GenerateResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "receipt.generate")
	defer span.End()

	if err := booking.Validate(); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordFailed(ctx, time.Since(start))
		return nil, err
	}

	now := s.now()
	number := booking.ReceiptNumber(now)
	ctx = logger.WithReceiptNumber(ctx, number)
	telemetry.SetAttributes(span, telemetry.SpanAttrReceiptNumber, number)
	log := logger.Enrich(ctx, s.logger)

	report := domain.StageReport{}
	logo := s.fetchLogo(ctx)
	if !logo.IsOk() {
		report.Notes = append(report.Notes, StageAsset+": "+logo.Reason())
	}
	qr := s.encodeQR(ctx, booking.QRPayload(number, now))
	if !qr.IsOk() {
		report.Notes = append(report.Notes, StageQR+": "+qr.Reason())
	}

	rendered, err := s.layout(ctx, printing.LayoutInput{
		Booking:       booking,
		ReceiptNumber: number,
		GeneratedAt:   now,
		Logo:          logo,
		QR:            qr,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordFailed(ctx, time.Since(start))
		log.Error("Receipt generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrRenderFailed, err)
	}
	report.LogoEmbedded = rendered.LogoEmbedded
	report.QREmbedded = rendered.QREmbedded
	report.RawSize = len(rendered.PDFData)

	final := s.compress(ctx, rendered.PDFData, number)
	report.Compressed = final.IsOk()
	if !final.IsOk() {
		report.Notes = append(report.Notes, StageCompress+": "+final.Reason())
	}

	doc := s.registry.Materialize(final.Value(), number)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrRawBytes, report.RawSize,
		telemetry.SpanAttrFinalBytes, doc.Size,
	)
	s.metrics.RecordGenerated(ctx, time.Since(start), report.RawSize, doc.Size)
	log.Info("Receipt generated",
		zap.String("file_name", doc.FileName),
		zap.Int("raw_bytes", report.RawSize),
		zap.Int("size", doc.Size),
		zap.Bool("logo", report.LogoEmbedded),
		zap.Bool("qr", report.QREmbedded),
		zap.Bool("compressed", report.Compressed),
		zap.Duration("duration", time.Since(start)))

	return &GenerateResult{Document: doc, Report: report}, nil
}

// Save hands the document behind url to sink and releases the handle once
// the sink is done. It reports whether the sink accepted the bytes.
func (s *Service) Save(ctx context.Context, url, fileName string, sink delivery.Sink) bool {
	ctx, span := telemetry.StartStageSpan(ctx, StageDeliver,
		telemetry.WithAttribute(telemetry.SpanAttrSink, sink.Name()))
	defer span.End()

	ok := s.registry.Save(ctx, url, fileName, sink)
	s.metrics.RecordSave(ctx, sink.Name(), ok)
	if !ok {
		telemetry.MarkDegraded(span, "save failed")
	}
	return ok
}

// Deliver saves to the configured default sink. fileName defaults to the
// document's own name.
func (s *Service) Deliver(ctx context.Context, url, fileName string) (*SaveResult, error) {
	if s.defaultSink == nil {
		return nil, ErrNoDefaultSink
	}
	return s.deliver(ctx, url, fileName, s.defaultSink)
}

// Download streams the document behind url into sink under its own file name.
func (s *Service) Download(ctx context.Context, url string, sink delivery.Sink) error {
	_, err := s.deliver(ctx, url, "", sink)
	return err
}

// deliver is Save with the reason a handle could not be used, so callers
// can map the error.
func (s *Service) deliver(ctx context.Context, url, fileName string, sink delivery.Sink) (*SaveResult, error) {
	blob, err := s.registry.Resolve(url)
	if err != nil {
		return nil, err
	}
	if fileName == "" {
		fileName = blob.FileName
	}
	if !s.Save(ctx, url, fileName, sink) {
		return nil, fmt.Errorf("%w: receipt %s via %s", ErrDeliveryFailed, blob.ReceiptNumber, sink.Name())
	}

	result := &SaveResult{FileName: fileName, Sink: sink.Name()}
	if loc, ok := sink.(delivery.Locator); ok {
		if result.Location, err = loc.Locate(ctx, fileName); err != nil {
			logger.Enrich(ctx, s.logger).Warn("Saved receipt has no location",
				zap.String("sink", sink.Name()),
				zap.String("file_name", fileName),
				zap.Error(err))
		}
	}
	return result, nil
}

// Release frees the handle without saving.
func (s *Service) Release(ctx context.Context, url string) error {
	if err := s.registry.Release(url); err != nil {
		return err
	}
	s.metrics.RecordReleased(ctx, 1)
	return nil
}

// Sweep releases handles older than ttl and returns how many it released.
func (s *Service) Sweep(ctx context.Context, ttl time.Duration) int {
	n := s.registry.ReleaseOlderThan(ttl)
	s.metrics.RecordReleased(ctx, n)
	return n
}

func (s *Service) fetchLogo(ctx context.Context) domain.Outcome[asset.EncodedAsset] {
	ctx, span := telemetry.StartStageSpan(ctx, StageAsset,
		telemetry.WithAttribute(telemetry.SpanAttrAssetSource, s.logoSource))
	defer span.End()

	var out domain.Outcome[asset.EncodedAsset]
	if s.logoSource == "" {
		out = domain.Degraded[asset.EncodedAsset]("no logo configured")
	} else {
		out = s.assets.Get(ctx, s.logoSource)
	}
	s.observe(ctx, span, StageAsset, out.IsOk(), out.Reason())
	return out
}

func (s *Service) encodeQR(ctx context.Context, payload string) domain.Outcome[[]byte] {
	ctx, span := telemetry.StartStageSpan(ctx, StageQR)
	defer span.End()

	out := s.qr.Encode(payload)
	s.observe(ctx, span, StageQR, out.IsOk(), out.Reason())
	return out
}

func (s *Service) layout(ctx context.Context, in printing.LayoutInput) (*printing.RenderResult, error) {
	ctx, span := telemetry.StartStageSpan(ctx, StageLayout)
	defer span.End()

	result, err := s.renderer.Build(ctx, in)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordStage(ctx, StageLayout, false)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrRawBytes, len(result.PDFData))
	s.metrics.RecordStage(ctx, StageLayout, true)
	return result, nil
}

func (s *Service) compress(ctx context.Context, raw []byte, number string) domain.Outcome[[]byte] {
	ctx, span := telemetry.StartStageSpan(ctx, StageCompress)
	defer span.End()

	out := s.compressor.Compress(ctx, raw, number)
	s.observe(ctx, span, StageCompress, out.IsOk(), out.Reason())
	telemetry.SetAttributes(span, telemetry.SpanAttrFinalBytes, len(out.Value()))
	return out
}

func (s *Service) observe(ctx context.Context, span trace.Span, stage string, ok bool, reason string) {
	s.metrics.RecordStage(ctx, stage, ok)
	if ok {
		return
	}
	telemetry.MarkDegraded(span, reason)
	logger.Enrich(ctx, s.logger).Info("Receipt stage degraded",
		zap.String("stage", stage),
		zap.String("reason", reason))
}
