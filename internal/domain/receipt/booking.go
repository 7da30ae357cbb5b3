package receipt

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// BookingRecord is the completed booking a receipt is generated from.
// It is supplied by the caller and never modified by the pipeline.
type BookingRecord struct {
	PaymentID     string          `json:"paymentId" validate:"max=64"`
	PropertyName  string          `json:"propertyName" validate:"max=200"`
	UserName      string          `json:"userName" validate:"max=200"`
	LandlordName  string          `json:"landlordName" validate:"max=200"`
	LandlordPhone string          `json:"landlordPhone" validate:"max=32"`
	RoomSelected  string          `json:"roomSelected,omitempty" validate:"max=200"`
	StartDate     string          `json:"startDate,omitempty"`
	EndDate       string          `json:"endDate,omitempty"`
	Location      string          `json:"location" validate:"max=300"`
	AmountPaid    decimal.Decimal `json:"amountPaid" validate:"gte=0"`
	Currency      string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Status        string          `json:"status" validate:"max=64"`
	PaymentDate   string          `json:"paymentDate,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func bookingValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Amounts are compared numerically so gte/lte apply to decimals.
		validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

// Validate checks the record can be assembled into a receipt.
// Optional fields are never required; a negative amount or a malformed
// currency code is rejected.
func (b BookingRecord) Validate() error {
	err := bookingValidator().Struct(b)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return ErrInvalidBooking.WithFields(fields...)
	}
	return fmt.Errorf("%w: %w", ErrInvalidBooking, err)
}

// ReceiptNumber derives the receipt number for the booking.
// The payment id is used when present, otherwise "RCPT-" followed by the last
// six digits of now in epoch milliseconds.
func (b BookingRecord) ReceiptNumber(now time.Time) string {
	if id := strings.TrimSpace(b.PaymentID); id != "" {
		return id
	}
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	return "RCPT-" + millis
}

// RoomOrPlaceholder returns the selected room or "N/A".
func (b BookingRecord) RoomOrPlaceholder() string {
	return OrPlaceholder(b.RoomSelected)
}

// BookingDates renders the stay as "<start> to <end>", each end formatted
// independently.
func (b BookingRecord) BookingDates() string {
	return FormatDate(b.StartDate) + " to " + FormatDate(b.EndDate)
}

// PaidOn renders the payment date, falling back to now when the record has none.
func (b BookingRecord) PaidOn(now time.Time) string {
	if strings.TrimSpace(b.PaymentDate) == "" {
		return FormatTime(now)
	}
	return FormatDate(b.PaymentDate)
}

// Amount renders the amount with its currency code, e.g. "KES 15,000.5".
func (b BookingRecord) Amount() string {
	return FormatMoney(b.AmountPaid, b.Currency)
}
