package printing

import (
	"context"
	"time"

	"github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/asset"
)

// LayoutInput is everything the layout engine needs for one receipt.
// Logo and QR are the outcomes of the earlier stages; a degraded outcome
// omits the corresponding section.
type LayoutInput struct {
	Booking       receipt.BookingRecord
	ReceiptNumber string
	// GeneratedAt is printed when the booking has no payment date and
	// pins the document's creation date.
	GeneratedAt time.Time
	Logo        receipt.Outcome[asset.EncodedAsset]
	QR          receipt.Outcome[[]byte]
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	// PDFData is the raw PDF file content
	PDFData []byte
	// PageCount is the number of pages in the PDF
	PageCount int
	// RenderDuration is how long the rendering took
	RenderDuration time.Duration
	// LogoEmbedded and QREmbedded report which optional sections were drawn.
	LogoEmbedded bool
	QREmbedded   bool
	// EndY is the cursor after the last flowing section, in millimetres.
	EndY float64
}

// Renderer lays out a receipt page.
type Renderer interface {
	Build(ctx context.Context, in LayoutInput) (*RenderResult, error)
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderFailed = receipt.CodeRenderFailed
	ErrCodeInvalidInput = receipt.CodeInvalidBooking
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
