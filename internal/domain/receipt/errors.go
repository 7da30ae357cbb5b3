package receipt

import "github.com/housika/receipts/internal/domain/shared"

// Error codes raised by the receipt pipeline.
const (
	CodeInvalidBooking = "INVALID_INPUT"
	CodeRenderFailed   = "RENDER_FAILED"
	CodeHandleNotFound = "NOT_FOUND"
	CodeHandleReleased = "HANDLE_RELEASED"
)

var (
	// ErrInvalidBooking is returned when a booking record fails validation.
	ErrInvalidBooking = shared.NewDomainError(CodeInvalidBooking, "Invalid booking record")
	// ErrInvalidFileName is returned for a save name that is not a plain PDF file name.
	ErrInvalidFileName = shared.NewDomainError(CodeInvalidBooking, "Invalid file name")
	// ErrRenderFailed is returned when the document could not be assembled.
	ErrRenderFailed = shared.NewDomainError(CodeRenderFailed, "Receipt document could not be generated")
	// ErrHandleNotFound is returned for handles that were never issued.
	ErrHandleNotFound = shared.NewDomainError(CodeHandleNotFound, "Receipt handle not found")
	// ErrHandleReleased is returned when a handle is used after release.
	ErrHandleReleased = shared.NewDomainError(CodeHandleReleased, "Receipt handle has been released")
)
