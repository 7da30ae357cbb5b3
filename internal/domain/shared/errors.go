// Package shared holds error types used across the receipt domain.
package shared

import "strings"

// DomainError is a failure the caller can act on. Code is stable and maps to
// an API error code; Message is for humans.
type DomainError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *DomainError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// Is matches any DomainError carrying the same code, so a sentinel matches
// copies that add fields.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithFields returns a copy of e naming the offending input fields.
func (e *DomainError) WithFields(fields ...string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Fields:  append(append([]string(nil), e.Fields...), fields...),
	}
}
