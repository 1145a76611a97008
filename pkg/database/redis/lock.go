package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Second

// 只有持有者才能释放或续期
var (
	unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

	refreshScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// Lock 单节点分布式锁
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// NewLock 创建锁，value 为随机 uuid
func NewLock(client *Client, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{
		client: client,
		key:    key,
		value:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Key 锁键
func (l *Lock) Key() string {
	return l.key
}

// TryLock 尝试获取锁，立即返回
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "try lock %s", l.key)
	}
	return ok, nil
}

// LockWithRetry 按间隔重试获取锁，超过次数返回 ErrLockFailed
func (l *Lock) LockWithRetry(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		timer.Reset(retryInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
func (l *Lock) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, l.client.rdb, []string{l.key}, l.value).Int64()
	if err != nil {
		return errors.Wrapf(err, "unlock %s", l.key)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Refresh 续期
func (l *Lock) Refresh(ctx context.Context) error {
	n, err := refreshScript.Run(ctx, l.client.rdb, []string{l.key}, l.value, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return errors.Wrapf(err, "refresh %s", l.key)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// WithLock 持锁执行 fn，获取失败时按 retryInterval 重试 maxRetries 次
func (c *Client) WithLock(ctx context.Context, key string, ttl, retryInterval time.Duration, maxRetries int, fn func() error) error {
	lock := NewLock(c, key, ttl)
	if err := lock.LockWithRetry(ctx, retryInterval, maxRetries); err != nil {
		return err
	}

	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			c.logger.WarnContext(ctx, "release lock failed", "key", key, "error", err)
		}
	}()

	return fn()
}
