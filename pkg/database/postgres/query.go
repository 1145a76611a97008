package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// Querier 连接池与事务的公共查询接口
type Querier interface {
	// Exec 执行写操作，返回影响行数
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	withTimeout(ctx context.Context) (context.Context, context.CancelFunc)
}

var (
	_ Querier = (*Client)(nil)
	_ Querier = (*txWrapper)(nil)
)

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}

// Exec 执行写操作（INSERT/UPDATE/DELETE）
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

// Query 原始查询，调用方负责关闭 rows
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.pool.Query(ctx, sql, args...)
}

// QueryRow 查询单行
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.pool.QueryRow(ctx, sql, args...)
}

// QueryOne 查询单条记录并按 db tag 扫描到 T，无结果返回 ErrNoRows
func QueryOne[T any](ctx context.Context, q Querier, sql string, args ...any) (*T, error) {
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()

	return scanOne[T](rows)
}

// QueryAll 查询多条记录
func QueryAll[T any](ctx context.Context, q Querier, sql string, args ...any) ([]*T, error) {
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()

	return scanAll[T](rows)
}

// Get 使用 squirrel 构建器查询单条记录
func Get[T any](ctx context.Context, q Querier, b squirrel.Sqlizer) (*T, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}
	return QueryOne[T](ctx, q, sql, args...)
}

// Select 使用 squirrel 构建器查询多条记录
func Select[T any](ctx context.Context, q Querier, b squirrel.Sqlizer) ([]*T, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}
	return QueryAll[T](ctx, q, sql, args...)
}

// ExecBuilder 使用 squirrel 构建器执行写操作
func ExecBuilder(ctx context.Context, q Querier, b squirrel.Sqlizer) (int64, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build statement")
	}
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()
	return q.Exec(ctx, sql, args...)
}

// Exists 执行 SELECT EXISTS(...) 形式的查询
func Exists(ctx context.Context, q Querier, sql string, args ...any) (bool, error) {
	ctx, cancel := q.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "exists query failed")
	}
	return exists, nil
}

// ExecBatch 使用 pipeline 批量执行同一语句
func (c *Client) ExecBatch(ctx context.Context, sql string, argsList [][]any) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	batch := &pgx.Batch{}
	for _, args := range argsList {
		batch.Queue(sql, args...)
	}

	results := c.pool.SendBatch(ctx, batch)
	defer results.Close()

	var total int64
	for i := range argsList {
		tag, err := results.Exec()
		if err != nil {
			return total, errors.Wrapf(err, "batch exec failed at index %d", i)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}
