package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/partysheet/pkg/logger"
)

// Logger 适配 pkg/logger 的 Gin 访问日志中间件
func Logger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if sheetID := c.Param("id"); sheetID != "" {
			c.Request = c.Request.WithContext(logger.WithSheetID(c.Request.Context(), sheetID))
		}

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"ip", c.ClientIP(),
			"latency", time.Since(start).String(),
		}

		ctx := c.Request.Context()
		switch {
		case len(c.Errors) > 0:
			for _, e := range c.Errors.Errors() {
				l.ErrorContext(ctx, e, fields...)
			}
		case status >= 500:
			l.ErrorContext(ctx, "http request", fields...)
		case status >= 400:
			l.WarnContext(ctx, "http request", fields...)
		default:
			l.DebugContext(ctx, "http request", fields...)
		}
	}
}
