package feishu

import (
	"context"
	"fmt"
	"slices"

	"github.com/lk2023060901/partysheet/pkg/notify"
)

// Adapter 把 notify.Alert 转成飞书富文本
type Adapter struct {
	client *Client
}

var _ notify.Notifier = (*Adapter)(nil)

// NewAdapter 创建飞书适配器
func NewAdapter(cfg *Config) (*Adapter, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client}, nil
}

func (a *Adapter) Send(ctx context.Context, alert *notify.Alert) error {
	return a.client.Send(ctx, convertToPost(alert))
}

func (a *Adapter) Name() string {
	return "feishu"
}

func convertToPost(alert *notify.Alert) *PostMessage {
	msg := NewPostMessage(fmt.Sprintf("[%s] %s", levelText(alert.Level), alert.Service))
	msg.AddLine(Text("摘要: " + alert.Summary))

	if alert.Description != "" {
		msg.AddLine(Text("详情: " + alert.Description))
	}

	// 标签按 key 排序，同一告警每次渲染一致
	if len(alert.Labels) > 0 {
		keys := make([]string, 0, len(alert.Labels))
		for k := range alert.Labels {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			msg.AddLine(Text(fmt.Sprintf("%s: %s", k, alert.Labels[k])))
		}
	}

	if !alert.StartsAt.IsZero() {
		msg.AddLine(Text("时间: " + alert.StartsAt.Format("2006-01-02 15:04:05")))
	}
	if alert.RunbookURL != "" {
		msg.AddLine(Link("处理手册", alert.RunbookURL))
	}
	if alert.AtAll {
		msg.AddLine(AtAll())
	}
	return msg
}

func levelText(level notify.AlertLevel) string {
	switch level {
	case notify.AlertLevelCritical:
		return "严重"
	case notify.AlertLevelWarning:
		return "警告"
	case notify.AlertLevelInfo:
		return "信息"
	default:
		return "未知"
	}
}
