// Package middleware holds cross-cutting gin middleware for the ingestion HTTP surface.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/breakpointhq/breakpoint/internal/logging"
)

const correlationHeader = "X-Correlation-ID"

// CorrelationID propagates or mints a request correlation id, echoing it in
// the response header and attaching it to the request context for logging.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(correlationHeader, id)

		ctx := context.WithValue(c.Request.Context(), logging.CorrelationIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(logging.CorrelationIDKey), id)
		c.Next()
	}
}
