package dto

import (
	domain "github.com/housika/receipts/internal/domain/receipt"
)

// GenerateReceiptResponse is returned by POST /receipts.
type GenerateReceiptResponse struct {
	Document domain.ReceiptDocument `json:"document"`
	Report   domain.StageReport     `json:"report"`
	// Saved is set only when the caller asked for the default sink.
	Saved *bool `json:"saved,omitempty"`
}

// SaveReceiptRequest is the body of POST /receipts/:handle/save.
type SaveReceiptRequest struct {
	FileName string `json:"fileName" binding:"omitempty,max=200"`
}

// SaveReceiptResponse reports whether the default sink accepted the receipt
// and where it went.
type SaveReceiptResponse struct {
	Saved    bool   `json:"saved"`
	FileName string `json:"fileName,omitempty"`
	Location string `json:"location,omitempty"`
}
