package receipt_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	app "github.com/housika/receipts/internal/application/receipt"
	domain "github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/domain/shared"
	"github.com/housika/receipts/internal/infrastructure/asset"
	"github.com/housika/receipts/internal/infrastructure/config"
	"github.com/housika/receipts/internal/infrastructure/delivery"
	"github.com/housika/receipts/internal/infrastructure/printing"
	"github.com/housika/receipts/internal/infrastructure/qrcode"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type MockAssetSource struct {
	mock.Mock
}

func (m *MockAssetSource) Get(ctx context.Context, sourceID string) domain.Outcome[asset.EncodedAsset] {
	args := m.Called(ctx, sourceID)
	return args.Get(0).(domain.Outcome[asset.EncodedAsset])
}

type MockQREncoder struct {
	mock.Mock
}

func (m *MockQREncoder) Encode(text string) domain.Outcome[[]byte] {
	args := m.Called(text)
	return args.Get(0).(domain.Outcome[[]byte])
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Build(ctx context.Context, in printing.LayoutInput) (*printing.RenderResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*printing.RenderResult), args.Error(1)
}

type MockCompressor struct {
	mock.Mock
}

func (m *MockCompressor) Compress(ctx context.Context, raw []byte, receiptNumber string) domain.Outcome[[]byte] {
	args := m.Called(ctx, raw, receiptNumber)
	return args.Get(0).(domain.Outcome[[]byte])
}

type memorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newMemorySink() *memorySink {
	return &memorySink{files: make(map[string][]byte)}
}

func (s *memorySink) Save(_ context.Context, fileName string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fileName] = append([]byte(nil), data...)
	return nil
}

func (s *memorySink) Name() string { return "memory" }

// =============================================================================
// Helpers
// =============================================================================

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func testBooking() domain.BookingRecord {
	return domain.BookingRecord{
		PaymentID:     "PAY123",
		PropertyName:  "Sunrise Apartments",
		UserName:      "Jane Doe",
		LandlordName:  "John Mwangi",
		LandlordPhone: "+254 700 000 000",
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-31",
		Location:      "Kilimani, Nairobi",
		AmountPaid:    decimal.RequireFromString("15000"),
		Currency:      "KES",
		Status:        "Paid",
		PaymentDate:   "2024-03-01",
	}
}

type fixture struct {
	assets     *MockAssetSource
	qr         *MockQREncoder
	renderer   *MockRenderer
	compressor *MockCompressor
	registry   *delivery.Registry
	service    *app.Service
}

func newFixture(opts ...app.Option) *fixture {
	f := &fixture{
		assets:     new(MockAssetSource),
		qr:         new(MockQREncoder),
		renderer:   new(MockRenderer),
		compressor: new(MockCompressor),
		registry:   delivery.NewRegistry(),
	}
	opts = append([]app.Option{app.WithClock(func() time.Time { return fixedNow })}, opts...)
	f.service = app.NewService(f.assets, f.qr, f.renderer, f.compressor, f.registry, zap.NewNop(), opts...)
	return f
}

var (
	rawPDF        = []byte("%PDF-1.3 raw receipt bytes")
	compressedPDF = []byte("%PDF-1.7 small")
	logoAsset     = asset.EncodedAsset{SourceID: asset.DefaultLogoSource, MIMEType: asset.MIMETypePNG, DataURI: "data:image/png;base64,AA=="}
)

// =============================================================================
// Generate Tests
// =============================================================================

func TestService_Generate_AllStagesSucceed(t *testing.T) {
	f := newFixture()
	booking := testBooking()
	payload := booking.QRPayload("PAY123", fixedNow)

	f.assets.On("Get", mock.Anything, asset.DefaultLogoSource).Return(domain.Ok(logoAsset))
	f.qr.On("Encode", payload).Return(domain.Ok([]byte("qr-png")))
	f.renderer.On("Build", mock.Anything, mock.MatchedBy(func(in printing.LayoutInput) bool {
		return in.ReceiptNumber == "PAY123" && in.GeneratedAt.Equal(fixedNow) && in.Logo.IsOk() && in.QR.IsOk()
	})).Return(&printing.RenderResult{PDFData: rawPDF, PageCount: 1, LogoEmbedded: true, QREmbedded: true}, nil)
	f.compressor.On("Compress", mock.Anything, rawPDF, "PAY123").Return(domain.Ok(compressedPDF))

	result, err := f.service.Generate(context.Background(), booking)
	require.NoError(t, err)

	doc := result.Document
	assert.True(t, strings.HasPrefix(doc.URL, delivery.URLPrefix))
	assert.Equal(t, "Housika_Receipt_PAY123.pdf", doc.FileName)
	assert.Equal(t, "PAY123", doc.ReceiptNumber)
	assert.Equal(t, len(compressedPDF), doc.Size)

	assert.True(t, result.Report.LogoEmbedded)
	assert.True(t, result.Report.QREmbedded)
	assert.True(t, result.Report.Compressed)
	assert.Equal(t, len(rawPDF), result.Report.RawSize)
	assert.Empty(t, result.Report.Notes)

	blob, err := f.registry.Resolve(doc.URL)
	require.NoError(t, err)
	assert.Equal(t, compressedPDF, blob.Data)

	f.assets.AssertExpectations(t)
	f.qr.AssertExpectations(t)
	f.renderer.AssertExpectations(t)
	f.compressor.AssertExpectations(t)
}

func TestService_Generate_DegradedStagesStillProduceDocument(t *testing.T) {
	f := newFixture()

	f.assets.On("Get", mock.Anything, mock.Anything).Return(domain.Degraded[asset.EncodedAsset]("fetch failed"))
	f.qr.On("Encode", mock.Anything).Return(domain.Degraded[[]byte]("payload too long"))
	f.renderer.On("Build", mock.Anything, mock.MatchedBy(func(in printing.LayoutInput) bool {
		return !in.Logo.IsOk() && !in.QR.IsOk()
	})).Return(&printing.RenderResult{PDFData: rawPDF, PageCount: 1}, nil)
	f.compressor.On("Compress", mock.Anything, rawPDF, "PAY123").Return(domain.DegradedWith(rawPDF, "not smaller"))

	result, err := f.service.Generate(context.Background(), testBooking())
	require.NoError(t, err)

	assert.Equal(t, len(rawPDF), result.Document.Size)
	assert.False(t, result.Report.LogoEmbedded)
	assert.False(t, result.Report.QREmbedded)
	assert.False(t, result.Report.Compressed)
	assert.Equal(t, []string{
		"asset: fetch failed",
		"qr: payload too long",
		"compress: not smaller",
	}, result.Report.Notes)

	blob, err := f.registry.Resolve(result.Document.URL)
	require.NoError(t, err)
	assert.Equal(t, rawPDF, blob.Data)
}

func TestService_Generate_NoLogoSourceSkipsAssetFetch(t *testing.T) {
	f := newFixture(app.WithLogoSource(""))

	f.qr.On("Encode", mock.Anything).Return(domain.Ok([]byte("qr-png")))
	f.renderer.On("Build", mock.Anything, mock.Anything).
		Return(&printing.RenderResult{PDFData: rawPDF, QREmbedded: true}, nil)
	f.compressor.On("Compress", mock.Anything, rawPDF, mock.Anything).Return(domain.Ok(compressedPDF))

	result, err := f.service.Generate(context.Background(), testBooking())
	require.NoError(t, err)
	assert.False(t, result.Report.LogoEmbedded)
	assert.Contains(t, result.Report.Notes, "asset: no logo configured")
	f.assets.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestService_Generate_InvalidBooking(t *testing.T) {
	f := newFixture()
	booking := testBooking()
	booking.AmountPaid = decimal.RequireFromString("-1")

	result, err := f.service.Generate(context.Background(), booking)
	assert.Nil(t, result)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeInvalidBooking, domainErr.Code)

	f.assets.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	f.renderer.AssertNotCalled(t, "Build", mock.Anything, mock.Anything)
	assert.Zero(t, f.registry.Live())
}

func TestService_Generate_RenderFailure(t *testing.T) {
	f := newFixture()

	f.assets.On("Get", mock.Anything, mock.Anything).Return(domain.Ok(logoAsset))
	f.qr.On("Encode", mock.Anything).Return(domain.Ok([]byte("qr-png")))
	cause := printing.NewRenderError(printing.ErrCodeRenderFailed, "output failed", errors.New("boom"))
	f.renderer.On("Build", mock.Anything, mock.Anything).Return(nil, cause)

	result, err := f.service.Generate(context.Background(), testBooking())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrRenderFailed)

	var renderErr *printing.RenderError
	assert.True(t, errors.As(err, &renderErr))

	f.compressor.AssertNotCalled(t, "Compress", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, f.registry.Live())
}

func TestService_Generate_FallbackReceiptNumber(t *testing.T) {
	f := newFixture()
	booking := testBooking()
	booking.PaymentID = ""
	expected := booking.ReceiptNumber(fixedNow)

	f.assets.On("Get", mock.Anything, mock.Anything).Return(domain.Ok(logoAsset))
	f.qr.On("Encode", mock.Anything).Return(domain.Ok([]byte("qr-png")))
	f.renderer.On("Build", mock.Anything, mock.Anything).Return(&printing.RenderResult{PDFData: rawPDF}, nil)
	f.compressor.On("Compress", mock.Anything, rawPDF, expected).Return(domain.Ok(compressedPDF))

	result, err := f.service.Generate(context.Background(), booking)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Document.ReceiptNumber, "RCPT-"))
	assert.Equal(t, domain.FileName(expected), result.Document.FileName)
}

// =============================================================================
// Delivery Tests
// =============================================================================

func generated(t *testing.T, f *fixture) domain.ReceiptDocument {
	t.Helper()
	f.assets.On("Get", mock.Anything, mock.Anything).Return(domain.Ok(logoAsset))
	f.qr.On("Encode", mock.Anything).Return(domain.Ok([]byte("qr-png")))
	f.renderer.On("Build", mock.Anything, mock.Anything).Return(&printing.RenderResult{PDFData: rawPDF}, nil)
	f.compressor.On("Compress", mock.Anything, mock.Anything, mock.Anything).Return(domain.Ok(compressedPDF))

	result, err := f.service.Generate(context.Background(), testBooking())
	require.NoError(t, err)
	return result.Document
}

func TestService_Save(t *testing.T) {
	f := newFixture()
	doc := generated(t, f)
	sink := newMemorySink()

	assert.True(t, f.service.Save(context.Background(), doc.URL, "", sink))
	assert.Equal(t, compressedPDF, sink.files[doc.FileName])

	// The handle is spent after the first save.
	assert.False(t, f.service.Save(context.Background(), doc.URL, "again.pdf", sink))
	assert.Len(t, sink.files, 1)
}

func TestService_Save_SinkErrorStillReleases(t *testing.T) {
	f := newFixture()
	doc := generated(t, f)
	sink := newMemorySink()
	sink.err = errors.New("disk full")

	assert.False(t, f.service.Save(context.Background(), doc.URL, "", sink))
	_, err := f.registry.Resolve(doc.URL)
	assert.ErrorIs(t, err, domain.ErrHandleReleased)
}

func TestService_Deliver(t *testing.T) {
	t.Run("uses default sink", func(t *testing.T) {
		sink := newMemorySink()
		f := newFixture(app.WithDefaultSink(sink))
		doc := generated(t, f)

		saved, err := f.service.Deliver(context.Background(), doc.URL, "custom.pdf")
		require.NoError(t, err)
		assert.Contains(t, sink.files, "custom.pdf")
		assert.Equal(t, "custom.pdf", saved.FileName)
		assert.Empty(t, saved.Location)
	})

	t.Run("sink failure", func(t *testing.T) {
		sink := newMemorySink()
		sink.err = errors.New("bucket missing")
		f := newFixture(app.WithDefaultSink(sink))
		doc := generated(t, f)

		_, err := f.service.Deliver(context.Background(), doc.URL, "")
		assert.ErrorIs(t, err, app.ErrDeliveryFailed)
	})

	t.Run("unknown handle", func(t *testing.T) {
		f := newFixture(app.WithDefaultSink(newMemorySink()))

		_, err := f.service.Deliver(context.Background(), delivery.URLPrefix+"nope", "")
		assert.ErrorIs(t, err, domain.ErrHandleNotFound)
	})

	t.Run("no default sink", func(t *testing.T) {
		f := newFixture()
		doc := generated(t, f)

		_, err := f.service.Deliver(context.Background(), doc.URL, "")
		assert.ErrorIs(t, err, app.ErrNoDefaultSink)
		_, err = f.registry.Resolve(doc.URL)
		assert.NoError(t, err, "handle stays live when nothing was attempted")
	})
}

func TestService_Download(t *testing.T) {
	f := newFixture()
	doc := generated(t, f)
	sink := newMemorySink()

	require.NoError(t, f.service.Download(context.Background(), doc.URL, sink))
	assert.Equal(t, compressedPDF, sink.files[doc.FileName])

	err := f.service.Download(context.Background(), doc.URL, sink)
	assert.ErrorIs(t, err, domain.ErrHandleReleased)

	err = f.service.Download(context.Background(), delivery.URLPrefix+"missing", sink)
	assert.ErrorIs(t, err, domain.ErrHandleNotFound)
}

func TestService_Release(t *testing.T) {
	f := newFixture()
	doc := generated(t, f)

	require.NoError(t, f.service.Release(context.Background(), doc.URL))
	assert.ErrorIs(t, f.service.Release(context.Background(), doc.URL), domain.ErrHandleReleased)
	assert.Zero(t, f.registry.Live())
}

func TestService_Sweep(t *testing.T) {
	now := fixedNow
	registry := delivery.NewRegistry(delivery.WithClock(func() time.Time { return now }))
	service := app.NewService(nil, nil, nil, nil, registry, nil)

	first := registry.Materialize(rawPDF, "A")
	now = now.Add(20 * time.Minute)
	second := registry.Materialize(rawPDF, "B")

	assert.Equal(t, 1, service.Sweep(context.Background(), 10*time.Minute))

	_, err := registry.Resolve(first.URL)
	assert.ErrorIs(t, err, domain.ErrHandleReleased)
	_, err = registry.Resolve(second.URL)
	assert.NoError(t, err)
}

// =============================================================================
// End-to-end
// =============================================================================

func TestService_EndToEnd(t *testing.T) {
	logger := zap.NewNop()
	encoder, err := qrcode.NewEncoder(config.QRConfig{Level: qrcode.LevelHighest, Margin: qrcode.DefaultMargin}, logger)
	require.NoError(t, err)

	registry := delivery.NewRegistry(delivery.WithLogger(logger))
	service := app.NewService(
		asset.NewCache(asset.BundledFetcher{}, asset.WithLogger(logger)),
		encoder,
		printing.NewEngine(config.LayoutConfig{}, logger),
		printing.NewCompressor(logger),
		registry,
		logger,
	)

	result, err := service.Generate(context.Background(), testBooking())
	require.NoError(t, err)
	assert.True(t, result.Report.LogoEmbedded)
	assert.True(t, result.Report.QREmbedded)

	sink, err := delivery.NewFileSystemSink(&delivery.FileSystemSinkConfig{BasePath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	require.True(t, service.Save(context.Background(), result.Document.URL, "", sink))

	path, err := sink.Locate(context.Background(), result.Document.FileName)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
	assert.Equal(t, result.Document.Size, len(data))
	assert.Equal(t, "Housika_Receipt_PAY123.pdf", filepath.Base(path))
	assert.Zero(t, registry.Live())
}
