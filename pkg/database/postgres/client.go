package postgres

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lk2023060901/partysheet/pkg/logger"
)

// Client PostgreSQL 客户端
type Client struct {
	pool   *pgxpool.Pool
	cfg    *Config
	logger logger.Logger
	closed atomic.Bool
}

// New 创建 PostgreSQL 客户端，连接失败立即返回错误
func New(cfg *Config, l logger.Logger) (*Client, error) {
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

	pool, err := createPool(newCfg)
	if err != nil {
		return nil, err
	}

	l.Info("postgres connected",
		"host", newCfg.Host,
		"db", newCfg.DBName,
		"max_conns", newCfg.Pool.MaxConns,
	)

	return &Client{pool: pool, cfg: newCfg, logger: l}, nil
}

// Pool 底层连接池
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Config 当前配置
func (c *Client) Config() *Config {
	return c.cfg
}

// Close 关闭客户端
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.pool.Close()
	c.logger.Info("postgres closed")
}

// Ping 检查数据库连接
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if err := c.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, "postgres ping failed")
	}
	return nil
}

// Stats 连接池状态
func (c *Client) Stats() *PoolStats {
	stat := c.pool.Stat()
	return &PoolStats{
		AcquireCount:         stat.AcquireCount(),
		AcquireDuration:      stat.AcquireDuration(),
		AcquiredConns:        stat.AcquiredConns(),
		CanceledAcquireCount: stat.CanceledAcquireCount(),
		IdleConns:            stat.IdleConns(),
		MaxConns:             stat.MaxConns(),
		TotalConns:           stat.TotalConns(),
	}
}

func createPool(cfg *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse pool config")
	}

	poolConfig.MaxConns = cfg.Pool.MaxConns
	poolConfig.MinConns = cfg.Pool.MinConns
	poolConfig.MaxConnLifetime = cfg.Pool.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Pool.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.Pool.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return pool, nil
}
