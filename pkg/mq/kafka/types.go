package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Message 待发送的消息
type Message struct {
	Topic string
	// Key 同一 Key 路由到同一分区
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// PublishFunc 发布函数
type PublishFunc func(ctx context.Context, msg *Message) error

// ProducerMiddleware 生产者中间件
type ProducerMiddleware func(ctx context.Context, msg *Message, next PublishFunc) error

// ProducerStats 生产者统计
type ProducerStats struct {
	MessagesProduced  int64
	MessagesSucceeded int64
	MessagesFailed    int64
	LastMessageTime   time.Time
}

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
