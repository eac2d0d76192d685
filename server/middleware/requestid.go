package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID is the correlation header honored on the way in and
	// echoed on the way out.
	HeaderRequestID = "X-Request-Id"
	// ContextKeyRequestID is the Gin context key holding the request id.
	ContextKeyRequestID = "request_id"
)

// RequestID propagates the caller's correlation id, minting one when the
// request arrives without it. The id lands in the Gin context for the request
// logger and on the response for the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
