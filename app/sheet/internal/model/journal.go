package model

import (
	"encoding/json"
	"time"

	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// JournalEvent 变更流事件，每个成功应用的动作一条
type JournalEvent struct {
	SheetID    string          `json:"sheetId"`
	ActionID   string          `json:"actionId"`
	ActionType sheet.Type      `json:"actionType"`
	Revision   int64           `json:"revision"`
	Action     json.RawMessage `json:"action"`
	AppliedAt  int64           `json:"appliedAt"` // unix 毫秒
}

// NewJournalEvent 由已应用的动作构造事件
func NewJournalEvent(sheetID string, a sheet.Action, revision int64, at time.Time) (*JournalEvent, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return &JournalEvent{
		SheetID:    sheetID,
		ActionID:   a.ID,
		ActionType: a.Type,
		Revision:   revision,
		Action:     body,
		AppliedAt:  at.UnixMilli(),
	}, nil
}
