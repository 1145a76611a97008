package kafka

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/logger"
)

// Client Kafka 客户端，按 topic 缓存生产者
type Client struct {
	config      *Config
	logger      logger.Logger
	middlewares []ProducerMiddleware

	// writerFactory 测试注入
	writerFactory func(topic string) messageWriter

	producers  map[string]*Producer
	producerMu sync.Mutex

	closed atomic.Bool
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 设置日志
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProducerMiddleware 添加生产者中间件，按添加顺序由外到内执行
func WithProducerMiddleware(mw ...ProducerMiddleware) ClientOption {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, mw...)
	}
}

func withWriterFactory(f func(topic string) messageWriter) ClientOption {
	return func(c *Client) {
		c.writerFactory = f
	}
}

// New 创建 Kafka 客户端
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    newCfg,
		logger:    logger.NewNoop(),
		producers: make(map[string]*Producer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Producer 获取或创建 topic 的生产者
func (c *Client) Producer(topic string) (*Producer, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	c.producerMu.Lock()
	defer c.producerMu.Unlock()

	if p, ok := c.producers[topic]; ok {
		return p, nil
	}
	p, err := newProducer(c, topic)
	if err != nil {
		return nil, err
	}
	c.producers[topic] = p
	c.logger.Debug("producer created", "topic", topic)
	return p, nil
}

// Publish 发布消息
func (c *Client) Publish(ctx context.Context, topic string, msg *Message) error {
	p, err := c.Producer(topic)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

// PublishWithKey 发布带 Key 的消息
func (c *Client) PublishWithKey(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	return c.Publish(ctx, topic, &Message{Key: []byte(key), Value: value, Headers: headers})
}

// Close 关闭全部生产者
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}

	c.producerMu.Lock()
	defer c.producerMu.Unlock()

	var firstErr error
	for topic, p := range c.producers {
		if err := p.Close(); err != nil {
			c.logger.Error("failed to close producer", "topic", topic, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.producers = nil
	c.logger.Info("kafka client closed")
	return firstErr
}

// Config 配置
func (c *Client) Config() *Config {
	return c.config
}
