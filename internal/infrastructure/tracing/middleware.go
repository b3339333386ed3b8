package tracing

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPMiddleware opens a span per request, named after the matched route.
// An incoming X-Trace-ID is honoured; the ids in use are echoed back.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := Extract(c.Request.Header); incoming.Valid() {
			ctx = ContextWith(ctx, incoming)
		}

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+name)
		span.SetAttributes(
			zap.String("http.path", c.Request.URL.Path),
			zap.String("http.client_ip", c.ClientIP()),
		)

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, span.TraceID)
		c.Header(HeaderSpanID, span.SpanID)

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
		span.End()
	}
}
