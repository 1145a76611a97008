package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取字段的函数类型
type ContextFieldExtractor func(ctx context.Context) []zap.Field

type ctxKey int

const (
	traceIDKey ctxKey = iota
	sheetIDKey
	actionIDKey
)

// WithTraceID 在 context 中记录 trace_id
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithSheetID 在 context 中记录 sheet_id
func WithSheetID(ctx context.Context, sheetID string) context.Context {
	return context.WithValue(ctx, sheetIDKey, sheetID)
}

// WithActionID 在 context 中记录 action_id
func WithActionID(ctx context.Context, actionID string) context.Context {
	return context.WithValue(ctx, actionIDKey, actionID)
}

// TraceIDFrom 读取 context 中的 trace_id
func TraceIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// SheetIDFrom 读取 context 中的 sheet_id
func SheetIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(sheetIDKey).(string)
	return v
}

// ActionIDFrom 读取 context 中的 action_id
func ActionIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(actionIDKey).(string)
	return v
}

// DefaultContextExtractor 不提取任何字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	return nil
}

// SheetContextExtractor 提取 trace_id / sheet_id / action_id
func SheetContextExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}

	var fields []zap.Field
	if v, ok := ctx.Value(traceIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("trace_id", v))
	}
	if v, ok := ctx.Value(sheetIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("sheet_id", v))
	}
	if v, ok := ctx.Value(actionIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("action_id", v))
	}
	return fields
}
