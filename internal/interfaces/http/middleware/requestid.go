package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeaderKey is the header a client or gateway may use to
// supply its own correlation id
const RequestIDHeaderKey = "X-Request-ID"

// RequestID attaches a correlation id to every request. An id supplied
// by the caller is kept so a POS terminal retrying a posting keeps the
// same id across attempts; otherwise a fresh one is generated. The id
// is echoed back in the response and stored in the gin context for the
// request logger and tracer.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeaderKey)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(RequestIDHeaderKey, requestID)
		c.Next()
	}
}
