package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Get 读取字符串值，键不存在返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", wrapNil(err)
	}
	return val, nil
}

// GetBytes 读取二进制值，键不存在返回 ErrNil
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, wrapNil(err)
	}
	return val, nil
}

// Set 写入值，expiration 为 0 表示不过期
func (c *Client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return errors.Wrapf(c.rdb.Set(ctx, key, value, expiration).Err(), "set %s", key)
}

// SetNX 键不存在时写入，返回是否写入成功
func (c *Client) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return false, errors.Wrapf(err, "setnx %s", key)
	}
	return ok, nil
}

// Del 删除键，返回删除数量
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "del")
	}
	return n, nil
}

// Exists 返回存在的键数量
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Exists(ctx, keys...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "exists")
	}
	return n, nil
}

// Expire 设置过期时间
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	ok, err := c.rdb.Expire(ctx, key, expiration).Result()
	if err != nil {
		return false, errors.Wrapf(err, "expire %s", key)
	}
	return ok, nil
}

// TTL 剩余过期时间，键不存在返回 ErrNil
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "ttl %s", key)
	}
	if d == -2 {
		return 0, ErrNil
	}
	return d, nil
}

// Incr 自增
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "incr %s", key)
	}
	return n, nil
}

// Eval 执行 Lua 脚本
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	res, err := c.rdb.Eval(ctx, script, keys, args...).Result()
	if err != nil {
		return nil, wrapNil(err)
	}
	return res, nil
}
