package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/otel"
)

// Tracing 分布式追踪中间件，未启用 TracerProvider 时使用全局 noop 实现
func Tracing(serviceName string) gin.HandlerFunc {
	tracer := otel.GetTracerProvider().Tracer("web")
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), otel.HeaderCarrier(c.Request.Header))

		spanName := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())
		if c.FullPath() == "" {
			spanName = fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
		}

		ctx, span := tracer.Start(
			ctx,
			spanName,
			otel.WithSpanKind(otel.SpanKindServer),
			otel.WithAttributes(
				otel.String("http.method", c.Request.Method),
				otel.String("http.route", c.FullPath()),
				otel.String("service.name", serviceName),
			),
		)
		defer span.End()

		// 未启用追踪时 span 无效，退回请求头或随机 id
		traceID := c.GetHeader("X-Request-Id")
		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx = logger.WithTraceID(ctx, traceID)
		c.Header("X-Trace-Id", traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(otel.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(otel.CodeError, fmt.Sprintf("HTTP status %d", status))
		} else {
			span.SetStatus(otel.CodeOk, "")
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last().Err)
		}
	}
}
