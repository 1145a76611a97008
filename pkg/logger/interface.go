package logger

import "context"

// Logger 各模块依赖的日志接口，键值对形式传字段
//
//	l.InfoContext(ctx, "action applied", "action_type", a.Type, "revision", rev)
//
// *Context 版本会从 ctx 取 trace_id、sheet_id、action_id 附加到日志
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	DebugContext(ctx context.Context, msg string, keysAndValues ...interface{})
	InfoContext(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnContext(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{})

	// Named 派生子 logger，名字以 "." 连接
	Named(name string) Logger
	WithFields(keysAndValues ...interface{}) Logger

	Sync() error
}

var _ Logger = (*NoopLogger)(nil)

// NoopLogger 丢弃所有日志，测试和未注入 logger 时使用
type NoopLogger struct{}

// NewNoop 创建空日志记录器
func NewNoop() *NoopLogger { return &NoopLogger{} }

func (*NoopLogger) Debug(string, ...interface{}) {}
func (*NoopLogger) Info(string, ...interface{}) {}
func (*NoopLogger) Warn(string, ...interface{}) {}
func (*NoopLogger) Error(string, ...interface{}) {}

func (*NoopLogger) DebugContext(context.Context, string, ...interface{}) {}
func (*NoopLogger) InfoContext(context.Context, string, ...interface{}) {}
func (*NoopLogger) WarnContext(context.Context, string, ...interface{}) {}
func (*NoopLogger) ErrorContext(context.Context, string, ...interface{}) {}

func (l *NoopLogger) Named(string) Logger { return l }
func (l *NoopLogger) WithFields(...interface{}) Logger { return l }
func (*NoopLogger) Sync() error { return nil }
