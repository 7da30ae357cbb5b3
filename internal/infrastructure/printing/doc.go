// Package printing turns a booking record into receipt PDF bytes.
//
// Engine lays out a single A4 page with fpdf. Sections are drawn top to
// bottom and every section builder takes the current cursor Y and returns
// the Y where it ended, so a section that grows (a long property name, a
// wrapped notice) pushes everything below it down.
//
// Compressor post-processes the raw bytes with pdfcpu: page content is
// deflated, objects are packed into object streams and the document
// properties are annotated. It never fails a receipt; on any error the raw
// bytes are passed through.
//
//	engine := printing.NewEngine(cfg.Layout, logger)
//	result, err := engine.Build(ctx, printing.LayoutInput{...})
//	if err != nil {
//	    return err
//	}
//	final := printing.NewCompressor(logger).Compress(ctx, result.PDFData, receiptNumber)
package printing
