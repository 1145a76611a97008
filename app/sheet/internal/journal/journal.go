// Package journal 把成功应用的动作发布到 kafka 变更流
package journal

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/app/sheet/internal/model"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/mq/kafka"
)

// Config 变更流配置，Kafka.Enabled 为 false 时不发布
type Config struct {
	Kafka kafka.Config `mapstructure:"kafka" json:"kafka"`
	Topic string       `mapstructure:"topic" json:"topic"`
}

// DefaultTopic 默认 topic
const DefaultTopic = "partysheet.actions"

// Publisher 变更流发布者
type Publisher interface {
	Publish(ctx context.Context, ev *model.JournalEvent) error
	Close() error
}

type producer interface {
	PublishWithKey(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
	Close() error
}

// New 按配置创建发布者
func New(cfg *Config, l logger.Logger) (Publisher, error) {
	if cfg == nil || !cfg.Kafka.Enabled {
		return Noop(), nil
	}

	l = l.Named("journal")
	client, err := kafka.New(&cfg.Kafka,
		kafka.WithLogger(l),
		kafka.WithProducerMiddleware(
			kafka.ProducerRecoveryMiddleware(l),
			kafka.ProducerTracingMiddleware("partysheet.journal"),
			kafka.ProducerLoggingMiddleware(l),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka client")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return newKafkaPublisher(client, topic), nil
}

type kafkaPublisher struct {
	producer producer
	topic    string
}

func newKafkaPublisher(p producer, topic string) *kafkaPublisher {
	return &kafkaPublisher{producer: p, topic: topic}
}

// Publish 以 sheet id 为分区键，同一张表的事件保持顺序
func (p *kafkaPublisher) Publish(ctx context.Context, ev *model.JournalEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode journal event")
	}
	headers := map[string]string{
		"action_type": string(ev.ActionType),
		"revision":    strconv.FormatInt(ev.Revision, 10),
	}
	return p.producer.PublishWithKey(ctx, p.topic, ev.SheetID, value, headers)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

// Noop 不发布任何事件
func Noop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, *model.JournalEvent) error { return nil }
func (noopPublisher) Close() error                                       { return nil }
