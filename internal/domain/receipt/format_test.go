package receipt

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"iso date", "2024-03-01", "01 Mar 2024"},
		{"rfc3339", "2024-12-25T18:30:00Z", "25 Dec 2024"},
		{"rfc3339 with offset", "2024-07-04T08:00:00+03:00", "04 Jul 2024"},
		{"date time with space", "2024-01-09 12:00:00", "09 Jan 2024"},
		{"surrounding whitespace", "  2024-03-01 ", "01 Mar 2024"},
		{"empty", "", "N/A"},
		{"garbage", "next tuesday", "N/A"},
		{"impossible date", "2024-02-31", "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDate(tt.input))
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "N/A", FormatTime(time.Time{}))
	assert.Equal(t, "05 Nov 2023", FormatTime(time.Date(2023, time.November, 5, 0, 0, 0, 0, time.UTC)))
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		expected string
	}{
		{"grouped with fraction", "15000.5", "KES", "KES 15,000.5"},
		{"whole number", "15000", "KES", "KES 15,000"},
		{"small amount", "950", "USD", "USD 950"},
		{"millions", "1234567", "KES", "KES 1,234,567"},
		{"zero", "0", "KES", "KES 0"},
		{"lowercase currency", "2500", "kes", "KES 2,500"},
		{"no currency", "2500", "", "2,500"},
		{"beyond float precision", "12345678901234567.89", "KES", "KES 12,345,678,901,234,567.89"},
		{"rounded to three places", "1000.98765", "USD", "USD 1,000.988"},
		{"trailing zeros dropped", "1000.500", "USD", "USD 1,000.5"},
		{"unknown code kept", "10", "zzq", "ZZQ 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMoney(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestOrPlaceholder(t *testing.T) {
	assert.Equal(t, "N/A", OrPlaceholder(""))
	assert.Equal(t, "N/A", OrPlaceholder("  "))
	assert.Equal(t, "Room 4", OrPlaceholder("Room 4"))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Housika_Receipt_PAY123.pdf", FileName("PAY123"))
	assert.Regexp(t, `^Housika_Receipt_RCPT-\d{6}\.pdf$`, FileName(BookingRecord{}.ReceiptNumber(time.Now())))
}
