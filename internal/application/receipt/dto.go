package receipt

import (
	"errors"

	domain "github.com/housika/receipts/internal/domain/receipt"
)

// Pipeline stage names used in spans, metrics and stage reports.
const (
	StageAsset    = "asset"
	StageQR       = "qr"
	StageLayout   = "layout"
	StageCompress = "compress"
	StageDeliver  = "deliver"
)

// GenerateResult is a generated receipt plus what happened along the way.
type GenerateResult struct {
	Document domain.ReceiptDocument `json:"document"`
	Report   domain.StageReport     `json:"report"`
}

// SaveResult describes a receipt a sink accepted.
type SaveResult struct {
	FileName string `json:"fileName"`
	Sink     string `json:"sink"`
	// Location is where the receipt can be fetched from, when the sink knows.
	Location string `json:"location,omitempty"`
}

var (
	// ErrDeliveryFailed is returned when a sink did not accept a receipt.
	ErrDeliveryFailed = errors.New("receipt delivery failed")
	// ErrNoDefaultSink is returned by Deliver when no default sink is configured.
	ErrNoDefaultSink = errors.New("no default receipt sink configured")
)
