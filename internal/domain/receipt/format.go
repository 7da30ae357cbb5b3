package receipt

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Placeholder is rendered wherever an optional value is missing or unparsable.
const Placeholder = "N/A"

// DisplayDateLayout renders dates as "02 Jan 2006".
const DisplayDateLayout = "02 Jan 2006"

// maxAmountFractionDigits matches the grouping rule used on printed receipts.
const maxAmountFractionDigits = 3

var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the date formats accepted on booking records.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a date-like string as DD Mon YYYY, or "N/A" when it is
// missing or cannot be parsed.
func FormatDate(value string) string {
	t, ok := ParseDate(value)
	if !ok {
		return Placeholder
	}
	return FormatTime(t)
}

// FormatTime renders t as DD Mon YYYY.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Format(DisplayDateLayout)
}

// FormatAmount renders a non-negative amount with English digit grouping and
// at most three fraction digits: 15000.5 becomes "15,000.5". Digits are taken
// from the decimal itself so large amounts print exactly.
func FormatAmount(amount decimal.Decimal) string {
	s := amount.Round(maxAmountFractionDigits).String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatMoney prefixes the grouped amount with the currency code. ISO 4217
// codes are printed canonically; anything else is upper-cased as given.
func FormatMoney(amount decimal.Decimal, code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return FormatAmount(amount)
	}
	if unit, err := currency.ParseISO(code); err == nil && unit != (currency.Unit{}) {
		code = unit.String()
	}
	return strings.ToUpper(code) + " " + FormatAmount(amount)
}

// OrPlaceholder returns value, or "N/A" when it is blank.
func OrPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return Placeholder
	}
	return value
}
