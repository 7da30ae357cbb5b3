package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeValidation    = "ERR_VALIDATION"
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput  = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeBodyTooLarge  = "ERR_BODY_TOO_LARGE"
	ErrCodeRenderFailed  = "ERR_RENDER_FAILED"
	ErrCodeDeliverFailed = "ERR_DELIVER_FAILED"
)

// Handle error codes
const (
	// ErrCodeNotFound is used when a handle was never issued
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeHandleReleased is used when a handle has already been consumed
	ErrCodeHandleReleased = "ERR_HANDLE_RELEASED"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeBodyTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeRenderFailed:  http.StatusInternalServerError,
	ErrCodeDeliverFailed: http.StatusBadGateway,

	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeHandleReleased: http.StatusGone,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":       ErrCodeNotFound,
	"INVALID_INPUT":   ErrCodeInvalidInput,
	"RENDER_FAILED":   ErrCodeRenderFailed,
	"HANDLE_RELEASED": ErrCodeHandleReleased,
	"INTERNAL_ERROR":  ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
