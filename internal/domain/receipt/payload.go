package receipt

import (
	"strings"
	"time"
)

// QRPayload is the multi-line text encoded into the verification QR code.
func (b BookingRecord) QRPayload(receiptNumber string, now time.Time) string {
	lines := []string{
		QRHeading,
		"Receipt: " + receiptNumber,
		"Property: " + OrPlaceholder(b.PropertyName),
		"Tenant: " + OrPlaceholder(b.UserName),
		"Amount: " + b.AmountPaid.String() + " " + strings.ToUpper(b.Currency),
		"Paid: " + b.PaidOn(now),
	}
	return strings.Join(lines, "\n")
}
