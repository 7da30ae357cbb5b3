package printing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/housika/receipts/internal/domain/receipt"
)

func TestCompressor_Compress(t *testing.T) {
	raw, err := newTestEngine(t).Build(context.Background(), fullInput(t))
	require.NoError(t, err)

	c := NewCompressor(zaptest.NewLogger(t))
	out := c.Compress(context.Background(), raw.PDFData, "PAY123")

	require.True(t, out.IsOk(), out.Reason())
	compressed := out.Value()
	assert.Less(t, len(compressed), len(raw.PDFData))
	assert.True(t, bytes.HasPrefix(compressed, []byte("%PDF-")))

	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.VALIDATE
	pctx, err := api.ReadAndValidate(bytes.NewReader(compressed), conf)
	require.NoError(t, err)
	require.NoError(t, pctx.XRefTable.EnsurePageCount())

	assert.Equal(t, 1, pctx.XRefTable.PageCount)
	assert.Equal(t, receipt.MetaTitle, pctx.XRefTable.Title)
	assert.Equal(t, receipt.MetaAuthor, pctx.XRefTable.Author)
	assert.Equal(t, receipt.MetaSubject, pctx.XRefTable.Subject)
	assert.Equal(t, "PAY123", pctx.XRefTable.Properties[PropertyReceiptNumber])
}

func TestCompressor_KeepsProducerAndDates(t *testing.T) {
	raw, err := newTestEngine(t).Build(context.Background(), fullInput(t))
	require.NoError(t, err)

	out := NewCompressor(zaptest.NewLogger(t)).Compress(context.Background(), raw.PDFData, "PAY123")
	require.True(t, out.IsOk(), out.Reason())

	read := func(data []byte) *model.Context {
		conf := model.NewDefaultConfiguration()
		conf.Cmd = model.VALIDATE
		pctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
		require.NoError(t, err)
		return pctx
	}
	before := read(raw.PDFData)
	after := read(out.Value())

	assert.Equal(t, receipt.MetaProducer, after.XRefTable.Producer)
	assert.Equal(t, receipt.MetaCreator, after.XRefTable.Creator)
	assert.Equal(t, strings.Join(receipt.MetaKeywords, ", "), after.XRefTable.Keywords)
	require.NotEmpty(t, before.XRefTable.CreationDate)
	assert.Equal(t, before.XRefTable.CreationDate, after.XRefTable.CreationDate)
	assert.Less(t, len(out.Value()), len(raw.PDFData))
}

func TestCompressor_FallsBackToOriginal(t *testing.T) {
	c := NewCompressor(zaptest.NewLogger(t))

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "not a pdf", raw: []byte("definitely not a pdf document")},
		{name: "truncated pdf", raw: []byte("%PDF-1.3\n1 0 obj\n<< /Type /Catalog")},
		{name: "empty", raw: []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Compress(context.Background(), tt.raw, "PAY123")
			assert.False(t, out.IsOk())
			assert.NotEmpty(t, out.Reason())
			assert.Equal(t, tt.raw, out.Value())
		})
	}
}

func TestCompressor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := []byte("%PDF-1.3")
	out := NewCompressor(nil).Compress(ctx, raw, "PAY123")
	assert.False(t, out.IsOk())
	assert.Equal(t, raw, out.Value())
}

func TestProperties(t *testing.T) {
	props := Properties("RCPT-456789")
	assert.Equal(t, "RCPT-456789", props[PropertyReceiptNumber])
	assert.Equal(t, "housika, booking, receipt, property", props["Keywords"])
	assert.Equal(t, receipt.MetaCreator, props["Creator"])
}
