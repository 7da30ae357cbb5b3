package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"github.com/housika/receipts/internal/domain/receipt"
)

// PropertyReceiptNumber is the custom info dictionary entry carrying the
// receipt number.
const PropertyReceiptNumber = "ReceiptNumber"

var disablePDFConfigDir sync.Once

// Compressor shrinks rendered receipts and annotates their properties.
type Compressor struct {
	logger *zap.Logger
}

// NewCompressor creates a compressor. pdfcpu's on-disk configuration
// directory is disabled; built-in defaults are used.
func NewCompressor(logger *zap.Logger) *Compressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	disablePDFConfigDir.Do(api.DisableConfigDir)
	return &Compressor{logger: logger}
}

// Properties returns the document properties written for receiptNumber.
func Properties(receiptNumber string) map[string]string {
	return map[string]string{
		"Title":               receipt.MetaTitle,
		"Author":              receipt.MetaAuthor,
		"Subject":             receipt.MetaSubject,
		"Keywords":            strings.Join(receipt.MetaKeywords, ", "),
		"Creator":             receipt.MetaCreator,
		PropertyReceiptNumber: receiptNumber,
	}
}

// Compress deflates page content, packs objects into object streams and
// annotates document properties. It returns the raw bytes unchanged, as a
// degraded outcome, when anything fails or the result is not smaller.
func (c *Compressor) Compress(ctx context.Context, raw []byte, receiptNumber string) receipt.Outcome[[]byte] {
	out, err := c.compress(ctx, raw, receiptNumber)
	if err != nil {
		c.logger.Warn("Compression failed, delivering uncompressed receipt",
			zap.String("receipt_number", receiptNumber),
			zap.Int("raw_bytes", len(raw)),
			zap.Error(err))
		return receipt.DegradedWith(raw, err.Error())
	}
	if len(out) >= len(raw) {
		c.logger.Debug("Compression did not shrink receipt, keeping original",
			zap.Int("raw_bytes", len(raw)),
			zap.Int("compressed_bytes", len(out)))
		return receipt.DegradedWith(raw, fmt.Sprintf("compressed size %d not below original %d", len(out), len(raw)))
	}
	return receipt.Ok(out)
}

func (c *Compressor) compress(ctx context.Context, raw []byte, receiptNumber string) (out []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("no document bytes")
	}

	// pdfcpu panics on some malformed input; a panic here is a compression
	// failure like any other.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("pdf processor panic: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.OPTIMIZE
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true

	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(raw), conf)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	if err := deflatePageContent(pctx); err != nil {
		return nil, fmt.Errorf("compress page content: %w", err)
	}

	if err := pdfcpu.PropertiesAdd(pctx, Properties(receiptNumber)); err != nil {
		return nil, fmt.Errorf("annotate properties: %w", err)
	}
	stamp, err := documentStamp(pctx)
	if err != nil {
		return nil, fmt.Errorf("read document dates: %w", err)
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}
	return restamp(buf.Bytes(), stamp)
}

// documentStamp returns the producer and the dates the layout pinned. A full
// pdfcpu write replaces all three with its own.
func documentStamp(pctx *model.Context) (types.Dict, error) {
	stamp := types.NewDict()
	stamp.InsertString("Producer", receipt.MetaProducer)
	if pctx.Info == nil {
		return stamp, nil
	}
	info, err := pctx.DereferenceDict(*pctx.Info)
	if err != nil || info == nil {
		return stamp, err
	}
	for _, key := range []string{"CreationDate", "ModDate"} {
		if v, ok := info.Find(key); ok {
			o, err := pctx.Dereference(v)
			if err != nil {
				return nil, err
			}
			stamp.Update(key, o)
		}
	}
	return stamp, nil
}

// restamp appends an incremental update rewriting the info dictionary of
// written with stamp. Incremental writes leave the info dictionary alone.
func restamp(written []byte, stamp types.Dict) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.ADDPROPERTIES
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadAndValidate(bytes.NewReader(written), conf)
	if err != nil {
		return nil, fmt.Errorf("reread document: %w", err)
	}
	if pctx.Info == nil {
		return nil, errors.New("written document has no info dictionary")
	}
	info, err := pctx.DereferenceDict(*pctx.Info)
	if err != nil {
		return nil, fmt.Errorf("reread info dictionary: %w", err)
	}
	if info == nil {
		return nil, errors.New("written document has an empty info reference")
	}
	for key, v := range stamp {
		info.Update(key, v)
	}

	pctx.Write.Increment = true
	pctx.Write.Offset = pctx.Read.FileSize
	pctx.Write.IncrementWithObjNr(int(pctx.Info.ObjectNumber))

	out := bytes.NewBuffer(make([]byte, 0, len(written)+512))
	out.Write(written)
	if err := api.WriteIncrement(pctx, out); err != nil {
		return nil, fmt.Errorf("write info update: %w", err)
	}
	return out.Bytes(), nil
}

// deflatePageContent applies Flate to every unfiltered content stream of every page.
func deflatePageContent(pctx *model.Context) error {
	xrt := pctx.XRefTable
	if err := xrt.EnsurePageCount(); err != nil {
		return err
	}

	for pageNr := 1; pageNr <= xrt.PageCount; pageNr++ {
		d, _, _, err := xrt.PageDict(pageNr, false)
		if err != nil {
			return err
		}
		obj, found := d.Find("Contents")
		if !found || obj == nil {
			continue
		}

		var refs []types.IndirectRef
		switch o := obj.(type) {
		case types.IndirectRef:
			if arr, err := xrt.DereferenceArray(o); err == nil && arr != nil {
				refs = append(refs, indirectRefs(arr)...)
			} else {
				refs = append(refs, o)
			}
		case types.Array:
			refs = indirectRefs(o)
		}

		for _, ref := range refs {
			if err := deflateStream(xrt, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func indirectRefs(arr types.Array) []types.IndirectRef {
	refs := make([]types.IndirectRef, 0, len(arr))
	for _, o := range arr {
		if ir, ok := o.(types.IndirectRef); ok {
			refs = append(refs, ir)
		}
	}
	return refs
}

func deflateStream(xrt *model.XRefTable, ref types.IndirectRef) error {
	entry, found := xrt.FindTableEntryForIndRef(&ref)
	if !found || entry == nil || entry.Object == nil {
		return nil
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok || sd.FilterPipeline != nil {
		return nil
	}

	if err := sd.Decode(); err != nil {
		return err
	}
	sd.InsertName("Filter", filter.Flate)
	sd.FilterPipeline = []types.PDFFilter{{Name: filter.Flate}}
	if err := sd.Encode(); err != nil {
		return err
	}
	entry.Object = sd
	return nil
}
