package kafka

import (
	"context"
	"time"

	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/otel"
)

// ProducerLoggingMiddleware 记录发布耗时与失败
func ProducerLoggingMiddleware(log logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			log.ErrorContext(ctx, "message publish failed",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"duration", time.Since(start),
				"error", err,
			)
			return err
		}
		log.DebugContext(ctx, "message published",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"duration", time.Since(start),
		)
		return nil
	}
}

// ProducerTracingMiddleware 创建 producer span 并把追踪上下文注入消息头
func ProducerTracingMiddleware(tracerName string) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		ctx, span := otel.Tracer(tracerName).Start(ctx, "kafka.publish",
			otel.WithSpanKind(otel.SpanKindProducer),
			otel.WithAttributes(
				otel.String(otel.MessagingSystemKey, "kafka"),
				otel.String(otel.MessagingDestinationKey, msg.Topic),
				otel.String(otel.MessagingKafkaMessageKeyKey, string(msg.Key)),
			),
		)
		defer span.End()

		if msg.Headers == nil {
			msg.Headers = make(map[string]string)
		}
		otel.GetTextMapPropagator().Inject(ctx, otel.MapCarrier(msg.Headers))
		if id := logger.TraceIDFrom(ctx); id != "" {
			msg.Headers["x-trace-id"] = id
		}

		err := next(ctx, msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otel.CodeError, err.Error())
		}
		return err
	}
}

// ProducerRecoveryMiddleware 捕获 panic 转为 ErrProducerPanic
func ProducerRecoveryMiddleware(log logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("producer panic recovered", "topic", msg.Topic, "panic", r)
				err = ErrProducerPanic
			}
		}()
		return next(ctx, msg)
	}
}
