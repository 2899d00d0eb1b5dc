package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gopherai-workshop/internal/pkg/trace"
)

const ContextTraceIDKey = "trace_id"

// Trace reuses an incoming X-Trace-Id or mints one, echoes it on the response
// and stores it on the request context for advisor logs.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(trace.HeaderName))
		if id == "" || len(id) > 64 {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		c.Set(ContextTraceIDKey, id)
		c.Header(trace.HeaderName, id)
		c.Request = c.Request.WithContext(trace.WithID(c.Request.Context(), id))
		c.Next()
	}
}
