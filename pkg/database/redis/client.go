package redis

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lk2023060901/partysheet/pkg/logger"
)

// PoolStats 连接池统计信息
type PoolStats struct {
	Hits       uint32
	Misses     uint32
	Timeouts   uint32
	TotalConns uint32
	IdleConns  uint32
	StaleConns uint32
}

// Client Redis 客户端，单机与集群共用 UniversalClient
type Client struct {
	rdb    goredis.UniversalClient
	cfg    *Config
	logger logger.Logger
	closed atomic.Bool
}

// NewClient 创建 Redis 客户端，不主动建立连接，调用 Ping 检查可用性
func NewClient(cfg *Config, l logger.Logger) (*Client, error) {
	newCfg, err := MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge config")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNoop()
	}

	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:           newCfg.Addrs,
		Password:        newCfg.Password,
		DB:              newCfg.DB,
		IsClusterMode:   newCfg.IsCluster(),
		MaxIdleConns:    newCfg.Pool.MaxIdleConns,
		MaxActiveConns:  newCfg.Pool.MaxActiveConns,
		ConnMaxLifetime: newCfg.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: newCfg.Pool.ConnMaxIdleTime,
		DialTimeout:     newCfg.Pool.DialTimeout,
		ReadTimeout:     newCfg.Pool.ReadTimeout,
		WriteTimeout:    newCfg.Pool.WriteTimeout,
		PoolTimeout:     newCfg.Pool.PoolTimeout,
	})

	return &Client{rdb: rdb, cfg: newCfg, logger: l}, nil
}

// Key 拼接键前缀
func (c *Client) Key(parts ...string) string {
	n := len(c.cfg.KeyPrefix)
	for _, p := range parts {
		n += len(p) + 1
	}
	buf := make([]byte, 0, n)
	buf = append(buf, c.cfg.KeyPrefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, p...)
	}
	return string(buf)
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return errors.Wrap(c.rdb.Ping(ctx).Err(), "redis ping failed")
}

// PoolStats 获取连接池统计信息
func (c *Client) PoolStats() PoolStats {
	stats := c.rdb.PoolStats()
	return PoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

// Close 关闭客户端，可重复调用
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Wrap(c.rdb.Close(), "failed to close redis")
}

func wrapNil(err error) error {
	if errors.Is(err, goredis.Nil) {
		return ErrNil
	}
	return err
}
