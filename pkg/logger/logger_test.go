package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newBufferedLogger 创建写入缓冲区的 logger，便于断言输出
func newBufferedLogger(t *testing.T, level Level) (*BaseLogger, *bytes.Buffer) {
	t.Helper()

	l, err := New(&Config{Level: level, Format: JSONFormat})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			MessageKey:  "msg",
			LevelKey:    "level",
			NameKey:     "logger",
			EncodeLevel: zapcore.LowercaseLevelEncoder,
		}),
		zapcore.AddSync(buf),
		l.level,
	)
	l.Logger = zap.New(core)
	return l, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

// TestNew 测试创建 Logger
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{name: "nil config uses default", config: nil},
		{name: "partial config", config: &Config{Level: DebugLevel, Format: JSONFormat}},
		{name: "file enabled without path", config: &Config{EnableFile: true}, wantErr: ErrInvalidOutputPath},
		{name: "unknown level", config: &Config{Level: "verbose"}, wantErr: ErrInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

// TestDefaultConfig 测试默认配置
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, InfoLevel, cfg.Level)
	assert.Equal(t, ConsoleFormat, cfg.Format)
	assert.True(t, cfg.EnableConsole)
	assert.False(t, cfg.EnableFile)
	assert.Equal(t, RotationBySize, cfg.Rotation.Type)
	assert.NoError(t, cfg.Validate())

	cfg.EnableConsole = false
	assert.ErrorIs(t, cfg.Validate(), ErrNoOutputEnabled)
}

// TestKeyValueFields 测试 key-value 与 zap.Field 两种写法
func TestKeyValueFields(t *testing.T) {
	l, buf := newBufferedLogger(t, DebugLevel)

	l.Info("action applied", "sheet_id", "s1", "revision", 3)
	entry := decodeLine(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "action applied", entry["msg"])
	assert.Equal(t, "s1", entry["sheet_id"])
	assert.Equal(t, float64(3), entry["revision"])

	buf.Reset()
	l.Warn("mixed", zap.String("action_type", "item_add"), "count", 2)
	entry = decodeLine(t, buf)
	assert.Equal(t, "item_add", entry["action_type"])
	assert.Equal(t, float64(2), entry["count"])

	buf.Reset()
	l.Error("dangling", "orphan")
	entry = decodeLine(t, buf)
	assert.Equal(t, "orphan", entry["!BADKEY"])
}

// TestContextFields 测试从 context 提取 sheet/action 字段
func TestContextFields(t *testing.T) {
	l, buf := newBufferedLogger(t, DebugLevel)

	ctx := WithSheetID(context.Background(), "sheet-1")
	ctx = WithActionID(ctx, "act-9")
	ctx = WithTraceID(ctx, "trace-3")

	l.ErrorContext(ctx, "forward failed", "error", "boom")
	entry := decodeLine(t, buf)
	assert.Equal(t, "sheet-1", entry["sheet_id"])
	assert.Equal(t, "act-9", entry["action_id"])
	assert.Equal(t, "trace-3", entry["trace_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "trace-3", TraceIDFrom(ctx))

	assert.Empty(t, SheetContextExtractor(context.Background()))
	assert.Nil(t, DefaultContextExtractor(ctx))
}

// TestSetLevel 测试运行时调整等级对派生 logger 生效
func TestSetLevel(t *testing.T) {
	l, buf := newBufferedLogger(t, InfoLevel)
	child := l.Named("dao.sheet")

	child.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
	child.Debug("visible")
	assert.NotZero(t, buf.Len())
}

// TestNamedAndWithFields 测试派生 logger
func TestNamedAndWithFields(t *testing.T) {
	l, buf := newBufferedLogger(t, InfoLevel)

	named := l.Named("service.sheet")
	assert.NotSame(t, l, named)

	same := l.WithFields()
	assert.Same(t, l, same)

	named.WithFields("sheet_id", "s2").Info("loaded")
	entry := decodeLine(t, buf)
	assert.Equal(t, "service.sheet", entry["logger"])
	assert.Equal(t, "s2", entry["sheet_id"])
}

// TestRedactHook 测试脱敏钩子
func TestRedactHook(t *testing.T) {
	hook := RedactHook("dsn", "Secret")
	fields := []zapcore.Field{
		zap.String("DSN", "postgres://u:p@h/db"),
		zap.String("sheet_id", "s1"),
		zap.Int("secret", 42),
	}
	assert.True(t, hook.OnWrite(zapcore.Entry{}, fields))
	assert.Equal(t, Redacted, fields[0].String)
	assert.Equal(t, "s1", fields[1].String)
	assert.Equal(t, zapcore.StringType, fields[2].Type)
	assert.Equal(t, Redacted, fields[2].String)
}

// TestHookedCoreDrops 测试钩子丢弃日志
func TestHookedCoreDrops(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := NewHookedCore(
		zapcore.NewCore(enc, zapcore.AddSync(buf), zapcore.DebugLevel),
		HookFunc(func(e zapcore.Entry, _ []zapcore.Field) bool { return e.Message != "drop me" }),
	)
	zl := zap.New(core)

	zl.Info("drop me")
	assert.Zero(t, buf.Len())
	zl.Info("keep me")
	assert.Contains(t, buf.String(), "keep me")
}

// TestRotationWriterBadDuration 测试无效的轮换间隔
func TestRotationWriterBadDuration(t *testing.T) {
	cfg := DefaultConfig().Rotation
	cfg.Type = RotationByTime
	cfg.RotationTime = "daily"
	_, err := NewRotationWriter(&cfg, filepath.Join(t.TempDir(), "x.log"))
	assert.Error(t, err)

	cfg.RotationTime = "-1h"
	_, err = NewRotationWriter(&cfg, filepath.Join(t.TempDir(), "y.log"))
	assert.Error(t, err)
}

// TestRotationWriter 测试按大小、按时间轮换的文件输出
func TestRotationWriter(t *testing.T) {
	dir := t.TempDir()

	for _, typ := range []RotationType{RotationBySize, RotationByTime} {
		t.Run(string(typ), func(t *testing.T) {
			cfg := DefaultConfig().Rotation
			cfg.Type = typ
			path := filepath.Join(dir, string(typ)+".log")

			w, err := NewRotationWriter(&cfg, path)
			require.NoError(t, err)

			_, err = w.Write([]byte("hello\n"))
			require.NoError(t, err)

			_, err = os.Stat(path)
			assert.NoError(t, err)
		})
	}
}

// TestDefaultLogger 测试全局 logger
func TestDefaultLogger(t *testing.T) {
	old := Default()
	require.NotNil(t, old)
	t.Cleanup(func() { SetDefault(old) })

	noop := NewNoop()
	SetDefault(noop)
	assert.Same(t, noop, Default())
	assert.Same(t, noop, Named("x"))
	assert.NoError(t, Sync())
}
