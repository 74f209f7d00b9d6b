package httpmiddleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// InjectLogger places lg in the request context, tagged with the request ID
// when RequestID ran earlier in the chain.
func InjectLogger(lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		reqLg := lg
		if id := RequestIDFromContext(ctx); id != "" {
			reqLg = lg.With(zap.String("request_id", id))
		}
		c.Request = c.Request.WithContext(zctx.Base(ctx, reqLg))
		c.Next()
	}
}

// LogRequests logs every completed request with its matched route.
func LogRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
		}

		lg := zctx.From(c.Request.Context())
		switch status := c.Writer.Status(); {
		case status >= 500:
			lg.Warn("Request failed", fields...)
		default:
			lg.Info("Request", fields...)
		}
	}
}
