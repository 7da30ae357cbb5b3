package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	sentinel := NewDomainError("INVALID_INPUT", "Invalid booking record")

	t.Run("message without fields", func(t *testing.T) {
		assert.Equal(t, "Invalid booking record", sentinel.Error())
	})

	t.Run("fields are appended to the message", func(t *testing.T) {
		err := sentinel.WithFields("amountPaid", "currency")
		assert.Equal(t, "Invalid booking record: amountPaid, currency", err.Error())
		assert.Empty(t, sentinel.Fields)
	})

	t.Run("matches by code through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("generate: %w", sentinel.WithFields("currency"))
		assert.ErrorIs(t, wrapped, sentinel)
		assert.NotErrorIs(t, wrapped, NewDomainError("NOT_FOUND", "Invalid booking record"))
		assert.False(t, errors.Is(sentinel, errors.New("Invalid booking record")))
	})
}
