package dto

// Response is the envelope of every JSON response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request. Fields names offending input fields
// when the failure was a validation error.
type ErrorInfo struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// Meta carries request-scoped context.
type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

func metaFor(requestID string) *Meta {
	if requestID == "" {
		return nil
	}
	return &Meta{RequestID: requestID}
}

// OK wraps data in a success envelope.
func OK(data any, requestID string) Response {
	return Response{Success: true, Data: data, Meta: metaFor(requestID)}
}

// Fail builds an error envelope.
func Fail(code, message, requestID string, fields ...string) Response {
	return Response{
		Error: &ErrorInfo{Code: code, Message: message, Fields: fields},
		Meta:  metaFor(requestID),
	}
}
