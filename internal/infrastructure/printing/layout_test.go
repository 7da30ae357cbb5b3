package printing

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/asset"
	"github.com/housika/receipts/internal/infrastructure/config"
	"github.com/housika/receipts/internal/infrastructure/qrcode"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func testBooking() receipt.BookingRecord {
	return receipt.BookingRecord{
		PaymentID:     "PAY123",
		PropertyName:  "Sunrise Apartments",
		UserName:      "Jane Doe",
		LandlordName:  "John Mwangi",
		LandlordPhone: "+254 700 000 000",
		RoomSelected:  "A2",
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-31",
		Location:      "Kilimani, Nairobi",
		AmountPaid:    decimal.RequireFromString("15000.5"),
		Currency:      "KES",
		Status:        "Paid",
		PaymentDate:   "2024-03-01T09:30:00Z",
	}
}

func testLogo(t *testing.T) receipt.Outcome[asset.EncodedAsset] {
	t.Helper()
	raw, err := asset.BundledFetcher{}.Fetch(context.Background(), asset.DefaultLogoSource)
	require.NoError(t, err)
	entry, err := asset.Encode(asset.DefaultLogoSource, raw)
	require.NoError(t, err)
	return receipt.Ok(entry)
}

func testQR(t *testing.T, b receipt.BookingRecord) receipt.Outcome[[]byte] {
	t.Helper()
	png, err := qrcode.Render(b.QRPayload(b.ReceiptNumber(fixedNow), fixedNow), qrcode.DefaultOptions())
	require.NoError(t, err)
	return receipt.Ok(png)
}

func fullInput(t *testing.T) LayoutInput {
	b := testBooking()
	return LayoutInput{
		Booking:       b,
		ReceiptNumber: b.ReceiptNumber(fixedNow),
		GeneratedAt:   fixedNow,
		Logo:          testLogo(t),
		QR:            testQR(t, b),
	}
}

func newTestEngine(t *testing.T) *Engine {
	return NewEngine(config.LayoutConfig{CompressStreams: false}, zaptest.NewLogger(t))
}

func TestEngine_Build(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Build(context.Background(), fullInput(t))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(result.PDFData, []byte("%PDF-")))
	assert.Greater(t, len(result.PDFData), 2000)
	assert.Equal(t, 1, result.PageCount)
	assert.True(t, result.LogoEmbedded)
	assert.True(t, result.QREmbedded)
	assert.Less(t, result.EndY, footerY)

	for _, want := range []string{
		"(Receipt Number: PAY123)",
		"(Date: 01 Mar 2024)",
		"(KES 15,000.5)",
		"(01 Mar 2024 to 31 Mar 2024)",
		"(Sunrise Apartments)",
		"(Landlord Information)",
		"(Scan to verify booking)",
	} {
		assert.Contains(t, string(result.PDFData), want)
	}
}

func TestEngine_Build_Deterministic(t *testing.T) {
	engine := newTestEngine(t)

	first, err := engine.Build(context.Background(), fullInput(t))
	require.NoError(t, err)
	second, err := engine.Build(context.Background(), fullInput(t))
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first.PDFData, second.PDFData))
}

func TestEngine_Build_MissingOptionalFields(t *testing.T) {
	engine := newTestEngine(t)

	b := testBooking()
	b.RoomSelected = ""
	b.StartDate = ""
	b.EndDate = "not a date"
	b.PaymentID = ""

	in := LayoutInput{
		Booking:       b,
		ReceiptNumber: b.ReceiptNumber(fixedNow),
		GeneratedAt:   fixedNow,
		Logo:          receipt.Degraded[asset.EncodedAsset]("offline"),
		QR:            receipt.Degraded[[]byte]("too long"),
	}
	result, err := engine.Build(context.Background(), in)
	require.NoError(t, err)

	pdf := string(result.PDFData)
	assert.Contains(t, pdf, "(N/A to N/A)")
	assert.Contains(t, pdf, "(Payment Ref)")
	assert.GreaterOrEqual(t, strings.Count(pdf, "(N/A)"), 2) // room and payment ref
	assert.Contains(t, pdf, "(Receipt Number: RCPT-")
	assert.False(t, result.LogoEmbedded)
	assert.False(t, result.QREmbedded)
	assert.NotContains(t, pdf, "(Scan to verify booking)")
}

func TestEngine_Build_TermsFollowQRSection(t *testing.T) {
	engine := newTestEngine(t)

	withQR := fullInput(t)
	withoutQR := fullInput(t)
	withoutQR.QR = receipt.Degraded[[]byte]("encoder failed")

	a, err := engine.Build(context.Background(), withQR)
	require.NoError(t, err)
	b, err := engine.Build(context.Background(), withoutQR)
	require.NoError(t, err)

	assert.InDelta(t, gapTermsWithQR-gapTerms, a.EndY-b.EndY, 0.001)
}

// textX returns the horizontal position, in millimetres, at which text was
// drawn in an uncompressed content stream.
func textX(t *testing.T, pdf []byte, text string) float64 {
	t.Helper()
	re := regexp.MustCompile(`BT (\d+\.\d+) \d+\.\d+ Td \(` + regexp.QuoteMeta(text) + `\)Tj ET`)
	m := re.FindSubmatch(pdf)
	require.NotNil(t, m, "text %q not drawn", text)
	pt, err := strconv.ParseFloat(string(m[1]), 64)
	require.NoError(t, err)
	return pt * 25.4 / 72
}

func TestEngine_Build_TermsAreIndented(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Build(context.Background(), fullInput(t))
	require.NoError(t, err)

	heading := textX(t, result.PDFData, receipt.TermsHeading)
	assert.InDelta(t, contentLeft, heading, 1.5)
	for _, line := range receipt.Terms {
		assert.InDelta(t, heading+termsIndent, textX(t, result.PDFData, line), 0.05)
	}
	assert.InDelta(t, contentLeft, textX(t, result.PDFData, "Receipt Number: PAY123"), 1.5)
}

func TestEngine_Build_RowsGrowWithContent(t *testing.T) {
	engine := newTestEngine(t)

	short, err := engine.Build(context.Background(), fullInput(t))
	require.NoError(t, err)

	long := fullInput(t)
	long.Booking.PropertyName = strings.Repeat("Sunrise Garden Executive Apartments ", 6)
	grown, err := engine.Build(context.Background(), long)
	require.NoError(t, err)

	assert.Greater(t, grown.EndY, short.EndY)
}

func TestEngine_Build_UnreadableImageIsSkipped(t *testing.T) {
	engine := newTestEngine(t)

	in := fullInput(t)
	in.QR = receipt.Ok([]byte("not a png"))

	result, err := engine.Build(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, result.QREmbedded)
	assert.True(t, result.LogoEmbedded)
}

func TestEngine_Build_Errors(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("missing receipt number", func(t *testing.T) {
		in := fullInput(t)
		in.ReceiptNumber = " "
		_, err := engine.Build(context.Background(), in)

		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, ErrCodeInvalidInput, renderErr.Code)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := engine.Build(ctx, fullInput(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRenderError(t *testing.T) {
	cause := errors.New("boom")
	err := NewRenderError(ErrCodeRenderFailed, "failed to lay out receipt", cause)
	assert.Equal(t, "failed to lay out receipt: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "no cause", NewRenderError(ErrCodeRenderFailed, "no cause", nil).Error())
}
