package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/app/sheet/internal/model"
	"github.com/lk2023060901/partysheet/pkg/database/postgres"
	"github.com/lk2023060901/partysheet/pkg/logger"
)

const sheetTable = "sheets"

var sheetColumns = []string{"id", "name", "items", "characters", "revision", "created_at", "updated_at"}

// Schema sheets 表结构
const Schema = `
CREATE TABLE IF NOT EXISTS sheets (
    id         TEXT PRIMARY KEY,
    name       TEXT        NOT NULL DEFAULT '',
    items      JSONB       NOT NULL DEFAULT '[]'::jsonb,
    characters JSONB       NOT NULL DEFAULT '[]'::jsonb,
    revision   BIGINT      NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sheets_updated_at ON sheets (updated_at);
`

// SheetDAO 物品表数据访问对象
type SheetDAO struct {
	db     *postgres.Client
	logger logger.Logger
}

// NewSheetDAO 创建物品表 DAO
func NewSheetDAO(db *postgres.Client, l logger.Logger) *SheetDAO {
	return &SheetDAO{
		db:     db,
		logger: l.Named("dao.sheet"),
	}
}

// Migrate 建表
func (d *SheetDAO) Migrate(ctx context.Context) error {
	if _, err := d.db.Exec(ctx, Schema); err != nil {
		return errors.Wrap(err, "migrate sheets")
	}
	return nil
}

// Create 插入新表
func (d *SheetDAO) Create(ctx context.Context, rec *model.SheetRecord) error {
	b := postgres.QueryBuilder.Insert(sheetTable).
		Columns(sheetColumns...).
		Values(rec.ID, rec.Name, rec.Items, rec.Characters, rec.Revision, rec.CreatedAt, rec.UpdatedAt)

	if _, err := postgres.ExecBuilder(ctx, d.db, b); err != nil {
		d.logger.ErrorContext(ctx, "failed to create sheet", "sheet_id", rec.ID, "error", err)
		return errors.Wrapf(err, "create sheet %s", rec.ID)
	}
	return nil
}

// Get 按 id 读取
func (d *SheetDAO) Get(ctx context.Context, id string) (*model.SheetRecord, error) {
	return d.get(ctx, d.db, id, false)
}

func (d *SheetDAO) get(ctx context.Context, q postgres.Querier, id string, forUpdate bool) (*model.SheetRecord, error) {
	b := postgres.QueryBuilder.Select(sheetColumns...).From(sheetTable).Where(squirrel.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}

	rec, err := postgres.Get[model.SheetRecord](ctx, q, b)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, errors.Wrapf(ErrSheetNotFound, "sheet %s", id)
		}
		d.logger.ErrorContext(ctx, "failed to get sheet", "sheet_id", id, "error", err)
		return nil, errors.Wrapf(err, "get sheet %s", id)
	}
	return rec, nil
}

// Mutate 在事务内锁行、调用 fn 修改记录并写回，fn 返回错误时回滚
func (d *SheetDAO) Mutate(ctx context.Context, id string, fn func(rec *model.SheetRecord) error) (*model.SheetRecord, error) {
	var out *model.SheetRecord
	err := d.db.WithTx(ctx, func(tx postgres.Tx) error {
		rec, err := d.get(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}

		b := postgres.QueryBuilder.Update(sheetTable).
			Set("name", rec.Name).
			Set("items", rec.Items).
			Set("characters", rec.Characters).
			Set("revision", rec.Revision).
			Set("updated_at", rec.UpdatedAt).
			Where(squirrel.Eq{"id": id})
		if _, err := postgres.ExecBuilder(ctx, tx, b); err != nil {
			return errors.Wrapf(err, "update sheet %s", id)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type purgedRow struct {
	ID string `db:"id"`
}

// PurgeEmpty 删除 before 之前未更新且没有物品的表，返回被删除的 id
func (d *SheetDAO) PurgeEmpty(ctx context.Context, before time.Time) ([]string, error) {
	return d.purge(ctx, squirrel.And{
		squirrel.Lt{"updated_at": before},
		squirrel.Expr("jsonb_array_length(items) = 0"),
	})
}

// PurgeStale 删除 before 之前未更新的表
func (d *SheetDAO) PurgeStale(ctx context.Context, before time.Time) ([]string, error) {
	return d.purge(ctx, squirrel.Lt{"updated_at": before})
}

func (d *SheetDAO) purge(ctx context.Context, where squirrel.Sqlizer) ([]string, error) {
	b := postgres.QueryBuilder.Delete(sheetTable).Where(where).Suffix("RETURNING id")

	rows, err := postgres.Select[purgedRow](ctx, d.db, b)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to purge sheets", "error", err)
		return nil, errors.Wrap(err, "purge sheets")
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}
