package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Pipeline 批量命令，Exec 时一次性发送
type Pipeline struct {
	p goredis.Pipeliner
	n int
}

// Pipeline 创建 Pipeline
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{p: c.rdb.Pipeline()}
}

// Set 追加 SET
func (p *Pipeline) Set(ctx context.Context, key string, value any, expiration time.Duration) *Pipeline {
	p.p.Set(ctx, key, value, expiration)
	p.n++
	return p
}

// Del 追加 DEL
func (p *Pipeline) Del(ctx context.Context, keys ...string) *Pipeline {
	if len(keys) == 0 {
		return p
	}
	p.p.Del(ctx, keys...)
	p.n++
	return p
}

// Expire 追加 EXPIRE
func (p *Pipeline) Expire(ctx context.Context, key string, expiration time.Duration) *Pipeline {
	p.p.Expire(ctx, key, expiration)
	p.n++
	return p
}

// Len 已追加的命令数
func (p *Pipeline) Len() int {
	return p.n
}

// Exec 发送所有命令，返回第一个失败命令的错误
func (p *Pipeline) Exec(ctx context.Context) error {
	if p.n == 0 {
		return nil
	}
	cmds, err := p.p.Exec(ctx)
	if err != nil && !errors.Is(err, goredis.Nil) {
		for _, cmd := range cmds {
			if cmdErr := cmd.Err(); cmdErr != nil && !errors.Is(cmdErr, goredis.Nil) {
				return errors.Wrapf(cmdErr, "pipeline %s", cmd.Name())
			}
		}
		return errors.Wrap(err, "pipeline exec")
	}
	return nil
}
