// Package notify 运维告警的统一抽象
package notify

import "context"

// Notifier 通知器
type Notifier interface {
	// Send 发送告警
	Send(ctx context.Context, alert *Alert) error
	// Name 通知器名称，用于日志
	Name() string
}

// Noop 丢弃所有告警
func Noop() Notifier { return noop{} }

type noop struct{}

func (noop) Send(context.Context, *Alert) error { return nil }
func (noop) Name() string                       { return "noop" }
