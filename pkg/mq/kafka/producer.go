package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer 单个 topic 的生产者
type Producer struct {
	client *Client
	topic  string
	writer messageWriter

	produced  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	lastMu    sync.Mutex
	last      time.Time

	closed atomic.Bool
}

func newProducer(c *Client, topic string) (*Producer, error) {
	if c.writerFactory != nil {
		return &Producer{client: c, topic: topic, writer: c.writerFactory(topic)}, nil
	}

	cfg := c.config.Producer
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(c.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		MaxAttempts:            cfg.MaxRetries + 1,
		WriteTimeout:           cfg.WriteTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Async:                  cfg.Async,
		Compression:            parseCompression(cfg.Compression),
		AllowAutoTopicCreation: true,
	}

	if c.config.TLS != nil || c.config.SASL != nil {
		transport, err := newTransport(c.config)
		if err != nil {
			return nil, err
		}
		writer.Transport = transport
	}

	return &Producer{client: c, topic: topic, writer: writer}, nil
}

// Publish 经过中间件链发布单条消息
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	msg.Topic = p.topic
	p.produced.Add(1)

	publish := PublishFunc(p.write)
	mws := p.client.middlewares
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], publish
		publish = func(ctx context.Context, msg *Message) error {
			return mw(ctx, msg, next)
		}
	}

	if err := publish(ctx, msg); err != nil {
		p.failed.Add(1)
		return err
	}

	p.succeeded.Add(1)
	p.lastMu.Lock()
	p.last = time.Now()
	p.lastMu.Unlock()
	return nil
}

func (p *Producer) write(ctx context.Context, msg *Message) error {
	km := kafka.Message{Key: msg.Key, Value: msg.Value}
	if len(msg.Headers) > 0 {
		km.Headers = make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}
	return p.writer.WriteMessages(ctx, km)
}

// Topic topic 名称
func (p *Producer) Topic() string {
	return p.topic
}

// Stats 统计信息
func (p *Producer) Stats() ProducerStats {
	p.lastMu.Lock()
	last := p.last
	p.lastMu.Unlock()

	return ProducerStats{
		MessagesProduced:  p.produced.Load(),
		MessagesSucceeded: p.succeeded.Load(),
		MessagesFailed:    p.failed.Load(),
		LastMessageTime:   last,
	}
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}
