package receipt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/housika/receipts/internal/domain/shared"
)

func TestValidateFileName(t *testing.T) {
	for _, name := range []string{
		"Housika_Receipt_PAY123.pdf",
		"march rent.PDF",
		FileName("RCPT-123456"),
	} {
		assert.NoError(t, ValidateFileName(name), name)
	}

	for _, name := range []string{
		"",
		".",
		"..",
		".pdf",
		".hidden.pdf",
		"receipt",
		"receipt.txt",
		"receipt.pdf.exe",
		"../receipt.pdf",
		"sub/receipt.pdf",
		`sub\receipt.pdf`,
		" receipt.pdf",
		"receipt.pdf\n",
		"rec\x00eipt.pdf",
	} {
		err := ValidateFileName(name)
		require.Error(t, err, "%q", name)

		var derr *shared.DomainError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, CodeInvalidBooking, derr.Code)
		assert.Equal(t, []string{"fileName"}, derr.Fields)
	}
}
