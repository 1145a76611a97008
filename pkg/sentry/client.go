package sentry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"

	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/logger"
)

// Level 事件级别
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

func (l Level) toSentryLevel() sentry.Level {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelFatal:
		return sentry.Level(l)
	default:
		return sentry.LevelError
	}
}

// Stats 上报计数
type Stats struct {
	EventsTotal    uint64
	EventsCaptured uint64
	// EventsDropped 被采样或 DSN 为空时丢弃
	EventsDropped uint64
}

// Client Sentry 客户端，每个实例持有独立的 Hub
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	stats struct {
		eventsTotal    atomic.Uint64
		eventsCaptured atomic.Uint64
		eventsDropped  atomic.Uint64
	}
}

// New 创建 Sentry 客户端
func New(cfg *Config) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	client, err := sentry.NewClient(merged.toClientOptions())
	if err != nil {
		return nil, errors.Wrap(err, "create sentry client")
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range merged.Tags {
			scope.SetTag(key, value)
		}
	})

	return &Client{
		hub:    hub,
		config: merged,
	}, nil
}

// CaptureError 上报错误，context 中的 trace/sheet/action 会作为标签附带
func (c *Client) CaptureError(ctx context.Context, err error, tags map[string]string) string {
	if c.closed.Load() || err == nil {
		return ""
	}
	c.stats.eventsTotal.Add(1)

	var eventID *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		applyContextTags(ctx, scope)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		eventID = c.hub.CaptureException(err)
	})

	return c.record(eventID)
}

// CaptureMessage 上报消息
func (c *Client) CaptureMessage(message string, level Level) string {
	if c.closed.Load() {
		return ""
	}
	c.stats.eventsTotal.Add(1)

	var eventID *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level.toSentryLevel())
		eventID = c.hub.CaptureMessage(message)
	})

	return c.record(eventID)
}

// RecoverWithContext 上报 recover 得到的值，不重新抛出
func (c *Client) RecoverWithContext(recovered interface{}) string {
	if c.closed.Load() {
		return ""
	}
	c.stats.eventsTotal.Add(1)

	eventID := c.hub.RecoverWithContext(context.Background(), recovered)
	return c.record(eventID)
}

// Recover 用于 defer，上报后重新抛出
func (c *Client) Recover() {
	if r := recover(); r != nil {
		c.RecoverWithContext(r)
		panic(r)
	}
}

// WrapGoroutine 包装 goroutine 入口
func (c *Client) WrapGoroutine(f func()) func() {
	return func() {
		defer c.Recover()
		f()
	}
}

func (c *Client) record(eventID *sentry.EventID) string {
	if eventID == nil || *eventID == "" {
		c.stats.eventsDropped.Add(1)
		return ""
	}
	c.stats.eventsCaptured.Add(1)
	return string(*eventID)
}

func applyContextTags(ctx context.Context, scope *sentry.Scope) {
	if ctx == nil {
		return
	}
	if id := logger.TraceIDFrom(ctx); id != "" {
		scope.SetTag("trace_id", id)
	}
	if id := logger.SheetIDFrom(ctx); id != "" {
		scope.SetTag("sheet_id", id)
	}
	if id := logger.ActionIDFrom(ctx); id != "" {
		scope.SetTag("action_id", id)
	}
}

// Hub 底层 Hub
func (c *Client) Hub() *sentry.Hub {
	return c.hub
}

// Flush 等待事件上报完成
func (c *Client) Flush(timeout time.Duration) bool {
	return c.hub.Flush(timeout)
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}

// Stats 统计信息
func (c *Client) Stats() Stats {
	return Stats{
		EventsTotal:    c.stats.eventsTotal.Load(),
		EventsCaptured: c.stats.eventsCaptured.Load(),
		EventsDropped:  c.stats.eventsDropped.Load(),
	}
}

// Enabled 是否配置了 DSN
func (c *Client) Enabled() bool {
	return c.config.Enabled()
}
