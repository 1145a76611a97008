package model

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// SheetRecord 物品表存储记录，对应 sheets 表
type SheetRecord struct {
	ID   string `db:"id"`
	Name string `db:"name"`

	// 实体列表（JSONB 字段），保存客户端可见的原始 JSON
	Items      json.RawMessage `db:"items"`
	Characters json.RawMessage `db:"characters"`

	// Revision 每次成功应用动作后加一
	Revision int64 `db:"revision"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewSheetRecord 为新建的物品表创建记录
func NewSheetRecord(s sheet.Sheet, now time.Time) (*SheetRecord, error) {
	r := &SheetRecord{ID: s.ID, CreatedAt: now}
	if err := r.SetSheet(s, now); err != nil {
		return nil, err
	}
	r.Revision = 0
	return r, nil
}

// Sheet 解码为实体
func (r *SheetRecord) Sheet() (sheet.Sheet, error) {
	s := sheet.Sheet{ID: r.ID, Name: r.Name}
	if err := json.Unmarshal(r.Items, &s.Items); err != nil {
		return sheet.Sheet{}, errors.Wrapf(err, "decode items of sheet %s", r.ID)
	}
	if err := json.Unmarshal(r.Characters, &s.Characters); err != nil {
		return sheet.Sheet{}, errors.Wrapf(err, "decode characters of sheet %s", r.ID)
	}
	return s.Normalize(), nil
}

// SetSheet 写入新内容并推进 revision
func (r *SheetRecord) SetSheet(s sheet.Sheet, now time.Time) error {
	s = s.Normalize()
	items, err := json.Marshal(s.Items)
	if err != nil {
		return errors.Wrap(err, "encode items")
	}
	characters, err := json.Marshal(s.Characters)
	if err != nil {
		return errors.Wrap(err, "encode characters")
	}

	r.Name = s.Name
	r.Items = items
	r.Characters = characters
	r.Revision++
	r.UpdatedAt = now
	return nil
}

type snapshotBody struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Items      json.RawMessage `json:"items"`
	Characters json.RawMessage `json:"characters"`
}

// SnapshotJSON GET /sheets/{id} 返回的快照正文，不重新编码实体
func (r *SheetRecord) SnapshotJSON() ([]byte, error) {
	items, characters := r.Items, r.Characters
	if len(items) == 0 {
		items = json.RawMessage("[]")
	}
	if len(characters) == 0 {
		characters = json.RawMessage("[]")
	}
	return json.Marshal(snapshotBody{
		ID:         r.ID,
		Name:       r.Name,
		Items:      items,
		Characters: characters,
	})
}
