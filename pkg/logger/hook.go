package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Hook 在日志写入 core 之前调用，返回 false 丢弃该条日志
type Hook interface {
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

// HookFunc 函数式 Hook
type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

type hookedCore struct {
	zapcore.Core
	hooks []Hook
}

// NewHookedCore 给 core 挂上钩子，钩子按注册顺序执行
func NewHookedCore(core zapcore.Core, hooks ...Hook) zapcore.Core {
	if len(hooks) == 0 {
		return core
	}
	return &hookedCore{Core: core, hooks: hooks}
}

func (h *hookedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !h.Enabled(entry.Level) {
		return ce
	}
	return ce.AddCore(entry, h)
}

func (h *hookedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	for _, hook := range h.hooks {
		if !hook.OnWrite(entry, fields) {
			return nil
		}
	}
	return h.Core.Write(entry, fields)
}

func (h *hookedCore) With(fields []zapcore.Field) zapcore.Core {
	return &hookedCore{Core: h.Core.With(fields), hooks: h.hooks}
}

// Redacted 脱敏后的占位值
const Redacted = "***"

// RedactHook 按字段名脱敏，忽略大小写
// 只处理写入时携带的字段，WithFields 预先绑定的字段已编码进 core，不受影响
func RedactHook(keys ...string) Hook {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}

	return HookFunc(func(_ zapcore.Entry, fields []zapcore.Field) bool {
		for i := range fields {
			if _, ok := set[strings.ToLower(fields[i].Key)]; !ok {
				continue
			}
			fields[i] = zapcore.Field{Key: fields[i].Key, Type: zapcore.StringType, String: Redacted}
		}
		return true
	})
}
