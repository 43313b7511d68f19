package tracing

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/fedfs/internal/shared/id"
)

// Middleware creates Gin middleware that adopts or mints a request id and
// records a span for the request.
func Middleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if rid := c.GetHeader(RequestIDHeader); rid != "" {
			ctx = WithRequestID(ctx, id.RequestID(rid))
		}
		if parent := c.GetHeader(SpanIDHeader); parent != "" {
			ctx = context.WithValue(ctx, spanIDKey, parent)
		}

		name := c.FullPath()
		if method := c.Param("method"); method != "" {
			name = method
		}
		span, ctx := tracer.StartSpan(ctx, name)
		span.SetTag("http.method", c.Request.Method)

		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, span.RequestID.String())

		c.Next()

		span.StatusCode = c.Writer.Status()
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}
