package printing

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/asset"
	"github.com/housika/receipts/internal/infrastructure/config"
)

// Page geometry in millimetres on A4 portrait.
const (
	frameInset  = 5.0
	frameWidth  = 200.0
	frameHeight = 287.0
	frameRadius = 3.0

	contentLeft  = 15.0
	contentWidth = 180.0

	headerTop   = 10.0
	logoSize    = 25.0
	headerTextX = 50.0

	titleHeight     = 8.0
	metaLineHeight  = 5.0
	noticeLineH     = 5.0
	tableHeaderH    = 8.0
	rowLineHeight   = 7.0
	labelWidth      = 50.0
	valueWidth      = contentWidth - labelWidth
	termsLineHeight = 5.0
	termsIndent     = 5.0

	qrLeft          = 150.0
	qrSize          = 40.0
	qrCaptionOffset = 45.0

	footerY = 280.0
)

// Gaps between a section's measured end and the next section's start.
const (
	gapTitle       = 5.0
	gapMeta        = 2.0
	gapNotice      = 5.0
	gapBooking     = 5.0
	gapLandlord    = 10.0
	gapQR          = 10.0
	gapTermsWithQR = 65.0
	gapTerms       = 20.0
)

const (
	fontFamily = "Helvetica"
	logoImage  = "logo"
	qrImage    = "qr"
)

type rgb struct{ r, g, b int }

var (
	colorBrand    = rgb{46, 125, 50}
	colorNotice   = rgb{211, 47, 47}
	colorText     = rgb{33, 33, 33}
	colorMuted    = rgb{97, 97, 97}
	colorRowShade = rgb{245, 245, 245}
	colorBlack    = rgb{0, 0, 0}
	colorWhite    = rgb{255, 255, 255}
)

// Engine renders receipts with fpdf.
type Engine struct {
	compressStreams bool
	logger          *zap.Logger
}

var _ Renderer = (*Engine)(nil)

// NewEngine creates a layout engine.
func NewEngine(cfg config.LayoutConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{compressStreams: cfg.CompressStreams, logger: logger}
}

// Build lays out the receipt page and returns the serialized PDF.
// Degraded logo or QR outcomes omit those sections; any renderer error is
// fatal and no bytes are returned.
func (e *Engine) Build(ctx context.Context, in LayoutInput) (*RenderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "render cancelled", err)
	}
	if strings.TrimSpace(in.ReceiptNumber) == "" {
		return nil, NewRenderError(ErrCodeInvalidInput, "receipt number is required", nil)
	}
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}
	start := time.Now()

	pdf := e.newDocument(in)
	p := &page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), logger: e.logger}
	b := in.Booking

	p.frame()
	y := p.header(headerTop, in.Logo)
	y = p.title(y + gapTitle)
	y = p.meta(y+gapMeta, in.ReceiptNumber, b.PaidOn(in.GeneratedAt))
	y = p.notice(y + gapNotice)
	y = p.table(y+gapBooking, "Booking Details", colorBrand, []tableRow{
		{"Property", receipt.OrPlaceholder(b.PropertyName)},
		{"Tenant", receipt.OrPlaceholder(b.UserName)},
		{"Room Selected", b.RoomOrPlaceholder()},
		{"Booking Dates", b.BookingDates()},
		{"Amount Paid", b.Amount()},
		{"Payment Ref", receipt.OrPlaceholder(b.PaymentID)},
		{"Status", receipt.OrPlaceholder(b.Status)},
	})
	y = p.table(y+gapLandlord, "Landlord Information", colorBlack, []tableRow{
		{"Name", receipt.OrPlaceholder(b.LandlordName)},
		{"Phone", receipt.OrPlaceholder(b.LandlordPhone)},
		{"Property Location", receipt.OrPlaceholder(b.Location)},
	})

	qrDrawn := p.qr(y+gapQR, in.QR)
	if qrDrawn {
		y = p.terms(y + gapTermsWithQR)
	} else {
		y = p.terms(y + gapTerms)
	}
	if y > footerY {
		e.logger.Warn("Receipt content runs into the footer",
			zap.String("receipt_number", in.ReceiptNumber),
			zap.Float64("end_y", y))
	}
	p.footer()

	if pdf.Err() {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to lay out receipt", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to serialize receipt", err)
	}

	return &RenderResult{
		PDFData:        buf.Bytes(),
		PageCount:      pdf.PageCount(),
		RenderDuration: time.Since(start),
		LogoEmbedded:   p.logoDrawn,
		QREmbedded:     qrDrawn,
		EndY:           y,
	}, nil
}

func (e *Engine) newDocument(in LayoutInput) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.compressStreams)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(in.GeneratedAt)
	pdf.SetModificationDate(in.GeneratedAt)
	pdf.SetTitle("Housika Receipt "+in.ReceiptNumber, true)
	pdf.SetAuthor(receipt.MetaAuthor, true)
	pdf.SetSubject(receipt.MetaSubject, true)
	pdf.SetKeywords(strings.Join(receipt.MetaKeywords, ", "), true)
	pdf.SetCreator(receipt.MetaCreator, true)
	pdf.SetProducer(receipt.MetaProducer, true)
	pdf.SetLang(receipt.MetaLanguage)
	pdf.SetDisplayMode("fullwidth", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(contentLeft, headerTop, contentLeft)
	pdf.AddPage()
	return pdf
}

// page draws sections onto a single fpdf page. Section methods take the Y
// they start at and return the Y they end at.
type page struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	logger    *zap.Logger
	logoDrawn bool
}

type tableRow struct {
	label string
	value string
}

func (p *page) font(style string, size float64, c rgb) {
	p.pdf.SetFont(fontFamily, style, size)
	p.pdf.SetTextColor(c.r, c.g, c.b)
}

func (p *page) frame() {
	p.pdf.SetDrawColor(colorBlack.r, colorBlack.g, colorBlack.b)
	p.pdf.SetLineWidth(0.2)
	p.pdf.RoundedRect(frameInset, frameInset, frameWidth, frameHeight, frameRadius, "1234", "D")
}

func (p *page) header(y float64, logo receipt.Outcome[asset.EncodedAsset]) float64 {
	if entry, ok := logo.Get(); ok {
		if data, err := entry.Bytes(); err == nil && p.register(logoImage, entry.ImageType(), data) {
			p.pdf.ImageOptions(logoImage, contentLeft, y, logoSize, logoSize, false,
				fpdf.ImageOptions{ImageType: entry.ImageType()}, 0, "")
			p.logoDrawn = true
		}
	}

	p.font("B", 16, colorBrand)
	p.pdf.Text(headerTextX, y+10, p.tr(receipt.CompanyName))
	p.font("", 10, colorMuted)
	p.pdf.Text(headerTextX, y+16, p.tr(receipt.CompanyContact))

	return y + logoSize
}

func (p *page) title(y float64) float64 {
	p.font("B", 14, colorBlack)
	p.pdf.SetXY(contentLeft, y)
	p.pdf.CellFormat(contentWidth, titleHeight, p.tr(receipt.DocumentTitle), "", 0, "C", false, 0, "")
	return y + titleHeight
}

func (p *page) meta(y float64, receiptNumber, date string) float64 {
	p.font("", 10, colorText)
	p.pdf.SetXY(contentLeft, y)
	p.pdf.CellFormat(contentWidth, metaLineHeight, p.tr("Receipt Number: "+receiptNumber), "", 0, "L", false, 0, "")
	p.pdf.SetXY(contentLeft, y+metaLineHeight)
	p.pdf.CellFormat(contentWidth, metaLineHeight, p.tr("Date: "+date), "", 0, "L", false, 0, "")
	return y + 2*metaLineHeight
}

func (p *page) notice(y float64) float64 {
	p.font("BI", 9, colorNotice)
	p.pdf.SetXY(contentLeft, y)
	p.pdf.MultiCell(contentWidth, noticeLineH, p.tr(receipt.SecurityNotice), "", "C", false)
	return p.pdf.GetY()
}

// table draws a titled two-column table. Values wrap inside their column and
// the row grows to fit, so the returned Y is measured, not assumed.
func (p *page) table(y float64, title string, headerColor rgb, rows []tableRow) float64 {
	pdf := p.pdf

	pdf.SetFillColor(headerColor.r, headerColor.g, headerColor.b)
	pdf.SetDrawColor(224, 224, 224)
	p.font("B", 11, colorWhite)
	pdf.SetXY(contentLeft, y)
	pdf.CellFormat(contentWidth, tableHeaderH, p.tr(title), "1", 0, "L", true, 0, "")
	y += tableHeaderH

	for i, row := range rows {
		shaded := i%2 == 1
		if shaded {
			pdf.SetFillColor(colorRowShade.r, colorRowShade.g, colorRowShade.b)
		} else {
			pdf.SetFillColor(colorWhite.r, colorWhite.g, colorWhite.b)
		}

		value := p.tr(row.value)
		p.font("", 10, colorText)
		lines := len(pdf.SplitLines([]byte(value), valueWidth))
		if lines < 1 {
			lines = 1
		}
		height := float64(lines) * rowLineHeight

		p.font("B", 10, colorText)
		pdf.SetXY(contentLeft, y)
		pdf.CellFormat(labelWidth, height, p.tr(row.label), "1", 0, "L", shaded, 0, "")

		p.font("", 10, colorText)
		pdf.SetXY(contentLeft+labelWidth, y)
		pdf.MultiCell(valueWidth, rowLineHeight, value, "1", "L", shaded)

		y = max(y+height, pdf.GetY())
	}
	return y
}

// qr places the code at the right margin. It reports whether it was drawn.
func (p *page) qr(y float64, code receipt.Outcome[[]byte]) bool {
	data, ok := code.Get()
	if !ok || !p.register(qrImage, "PNG", data) {
		return false
	}
	p.pdf.ImageOptions(qrImage, qrLeft, y, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	p.font("", 8, colorMuted)
	p.pdf.SetXY(qrLeft, y+qrCaptionOffset)
	p.pdf.CellFormat(qrSize, 4, p.tr(receipt.QRCaption), "", 0, "C", false, 0, "")
	return true
}

// terms prints the heading at the content margin and indents each clause.
func (p *page) terms(y float64) float64 {
	p.font("I", 8, colorText)
	p.pdf.SetXY(contentLeft, y)
	p.pdf.CellFormat(contentWidth, termsLineHeight, p.tr(receipt.TermsHeading), "", 0, "L", false, 0, "")
	y += termsLineHeight

	for _, line := range receipt.Terms {
		p.pdf.SetXY(contentLeft+termsIndent, y)
		p.pdf.CellFormat(contentWidth-termsIndent, termsLineHeight, p.tr(line), "", 0, "L", false, 0, "")
		y += termsLineHeight
	}
	return y
}

// footer sits at a fixed position regardless of the content above it.
func (p *page) footer() {
	p.font("", 8, colorBlack)
	p.pdf.SetXY(contentLeft, footerY)
	p.pdf.CellFormat(contentWidth, 6, p.tr(receipt.FooterLine), "", 0, "C", false, 0, "")
}

// register adds an image to the document. A rejected image is logged and the
// renderer's error state cleared so the section is skipped, not the receipt.
func (p *page) register(name, imageType string, data []byte) bool {
	p.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if p.pdf.Err() {
		p.logger.Warn("Image could not be embedded, omitting it",
			zap.String("image", name),
			zap.Error(p.pdf.Error()))
		p.pdf.ClearError()
		return false
	}
	return true
}
