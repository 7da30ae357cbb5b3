package receipt

import (
	"strings"
	"time"
	"unicode"
)

// FileNamePrefix prefixes every downloaded receipt file.
const FileNamePrefix = "Housika_Receipt_"

// FileName derives the download file name from the receipt number.
func FileName(receiptNumber string) string {
	return FileNamePrefix + receiptNumber + ".pdf"
}

// ValidateFileName reports whether name can be used as a saved receipt's
// file name: a single visible path element ending in ".pdf".
func ValidateFileName(name string) error {
	stem, ok := strings.CutSuffix(strings.ToLower(name), ".pdf")
	switch {
	case !ok, stem == "", name != strings.TrimSpace(name):
		return ErrInvalidFileName.WithFields("fileName")
	case strings.HasPrefix(name, "."), strings.ContainsAny(name, `/\`):
		return ErrInvalidFileName.WithFields("fileName")
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return ErrInvalidFileName.WithFields("fileName")
	}
	return nil
}

// ReceiptDocument is a generated receipt ready for delivery.
// The bytes are owned by the delivery registry behind URL; the document only
// carries the metadata a client needs to fetch and save it.
type ReceiptDocument struct {
	URL           string    `json:"url"`
	FileName      string    `json:"fileName"`
	Size          int       `json:"size"`
	ReceiptNumber string    `json:"receiptNumber"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// StageReport lists which best-effort stages degraded during generation.
type StageReport struct {
	LogoEmbedded bool     `json:"logoEmbedded"`
	QREmbedded   bool     `json:"qrEmbedded"`
	Compressed   bool     `json:"compressed"`
	RawSize      int      `json:"rawSize"`
	Notes        []string `json:"notes,omitempty"`
}
