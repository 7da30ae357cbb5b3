// Package handler implements the receipt service HTTP API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/housika/receipts/internal/application/receipt"
	"github.com/housika/receipts/internal/domain/shared"
	"github.com/housika/receipts/internal/interfaces/http/dto"
	"github.com/housika/receipts/internal/interfaces/http/middleware"
)

// BaseHandler writes dto envelopes. Handlers embed it.
type BaseHandler struct{}

// Respond writes data in a success envelope.
func (h *BaseHandler) Respond(c *gin.Context, status int, data any) {
	c.JSON(status, dto.OK(data, middleware.GetRequestID(c)))
}

// Fail writes an error envelope with the status mapped from code.
func (h *BaseHandler) Fail(c *gin.Context, code, message string, fields ...string) {
	c.JSON(dto.GetHTTPStatus(code), dto.Fail(code, message, middleware.GetRequestID(c), fields...))
}

// BindError reports a request body that could not be decoded.
func (h *BaseHandler) BindError(c *gin.Context, what string, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Fail(c, dto.ErrCodeBodyTooLarge, "Request body too large")
		return
	}
	h.Fail(c, dto.ErrCodeInvalidJSON, "Invalid "+what+": "+err.Error())
}

// HandleError maps service errors to envelopes; anything unrecognised is a 500
// and its detail stays in the gin error log.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &domainErr):
		h.Fail(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message, domainErr.Fields...)
	case errors.Is(err, app.ErrDeliveryFailed), errors.Is(err, app.ErrNoDefaultSink):
		h.Fail(c, dto.ErrCodeDeliverFailed, "Receipt could not be saved")
	default:
		h.Fail(c, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}
