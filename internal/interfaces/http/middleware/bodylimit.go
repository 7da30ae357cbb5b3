package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/housika/receipts/internal/interfaces/http/dto"
)

// DefaultMaxBodySize bounds booking payloads.
const DefaultMaxBodySize int64 = 1 << 20

// BodyLimit rejects requests whose declared body exceeds maxBytes and caps
// reads for the rest.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.Fail(
				dto.ErrCodeBodyTooLarge,
				"Request body too large",
				GetRequestID(c),
			))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
