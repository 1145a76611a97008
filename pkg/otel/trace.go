package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// 重导出常用类型，调用方不直接依赖 go.opentelemetry.io/otel
type (
	Span            = trace.Span
	SpanKind        = trace.SpanKind
	SpanStartOption = trace.SpanStartOption
	Attribute       = attribute.KeyValue

	// MapCarrier map[string]string 载体，用于 kafka 消息头
	MapCarrier = propagation.MapCarrier
	// HeaderCarrier http.Header 载体
	HeaderCarrier = propagation.HeaderCarrier
)

const (
	SpanKindInternal = trace.SpanKindInternal
	SpanKindServer   = trace.SpanKindServer
	SpanKindClient   = trace.SpanKindClient
	SpanKindProducer = trace.SpanKindProducer
)

const (
	CodeError = codes.Error
	CodeOk    = codes.Ok
)

var (
	String = attribute.String
	Int    = attribute.Int
	Int64  = attribute.Int64
	Bool   = attribute.Bool
)

// Tracer 全局 Tracer
func Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return otel.Tracer(name, opts...)
}

// GetTracerProvider 全局 TracerProvider
func GetTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

// GetTextMapPropagator 全局传播器
func GetTextMapPropagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// WithSpanKind 设置 span 类型
func WithSpanKind(kind SpanKind) SpanStartOption {
	return trace.WithSpanKind(kind)
}

// WithAttributes 设置 span 属性
func WithAttributes(attrs ...Attribute) SpanStartOption {
	return trace.WithAttributes(attrs...)
}

// 消息相关属性键
const (
	MessagingSystemKey          = "messaging.system"
	MessagingDestinationKey     = "messaging.destination"
	MessagingKafkaMessageKeyKey = "messaging.kafka.message_key"
)

// sheet 相关属性键
const (
	SheetIDKey    = "sheet.id"
	ActionTypeKey = "sheet.action_type"
	ActionIDKey   = "sheet.action_id"
)
