package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// Tx 事务
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type txWrapper struct {
	tx pgx.Tx
}

func (t *txWrapper) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return ctx, func() {}
}

func (t *txWrapper) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

func (t *txWrapper) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}

func (t *txWrapper) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *txWrapper) Commit(ctx context.Context) error {
	return errors.Wrap(t.tx.Commit(ctx), "failed to commit transaction")
}

func (t *txWrapper) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return errors.Wrap(err, "failed to rollback transaction")
}

// TxIsolationLevel 事务隔离级别
type TxIsolationLevel string

const (
	TxIsolationLevelDefault        TxIsolationLevel = ""
	TxIsolationLevelReadCommitted  TxIsolationLevel = "read committed"
	TxIsolationLevelRepeatableRead TxIsolationLevel = "repeatable read"
	TxIsolationLevelSerializable   TxIsolationLevel = "serializable"
)

// TxOptions 事务选项
type TxOptions struct {
	IsoLevel TxIsolationLevel
	ReadOnly bool
}

func (o TxOptions) toPgx() pgx.TxOptions {
	opts := pgx.TxOptions{IsoLevel: pgx.TxIsoLevel(o.IsoLevel)}
	if o.ReadOnly {
		opts.AccessMode = pgx.ReadOnly
	}
	return opts
}

// BeginTx 开启事务
func (c *Client) BeginTx(ctx context.Context, opts TxOptions) (Tx, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	tx, err := c.pool.BeginTx(ctx, opts.toPgx())
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &txWrapper{tx: tx}, nil
}

// WithTx 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (c *Client) WithTx(ctx context.Context, fn func(Tx) error) error {
	return c.WithTxOptions(ctx, TxOptions{}, fn)
}

// WithTxOptions 使用选项在事务中执行 fn
func (c *Client) WithTxOptions(ctx context.Context, opts TxOptions, fn func(Tx) error) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tx, err := c.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}
