package sheetsync

import (
	"time"

	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// Clock 时间源，测试中注入假时钟
type Clock func() time.Time

// Window 抑制窗口：From 起 For 时长内跳过轮询覆盖
type Window struct {
	From time.Time
	For  time.Duration
}

// Active now-From <= For 时窗口仍然有效
func (w Window) Active(now time.Time) bool {
	return now.Sub(w.From) <= w.For
}

// UIState 仅存在于本地的界面状态，快照替换时保留
type UIState struct {
	SelectedItemID string
	CategoryFilter string
	Dialog         string
}

// State 单个表在客户端的完整状态
type State struct {
	Sheet        sheet.Sheet
	BlockRefetch *Window
	UI           UIState
}

// Suppressed 当前时刻是否处于抑制窗口内
func (s State) Suppressed(now time.Time) bool {
	return s.BlockRefetch != nil && s.BlockRefetch.Active(now)
}

// suppresses 动作是否开启抑制窗口
func suppresses(t sheet.Type, cfg *Config) bool {
	switch t {
	case sheet.TypeItemRemove, sheet.TypeItemUpdate,
		sheet.TypeCharacterUpdate, sheet.TypeCharacterRemove,
		sheet.TypeMetadataUpdate:
		return true
	case sheet.TypeItemAdd, sheet.TypeCharacterAdd:
		return cfg.SuppressOnAdd
	}
	return false
}

// Reduce 纯函数：把动作应用到 state，返回新状态
// sheet_update 整体替换表内容，保留 UI 与抑制窗口；其余动作按类型决定是否开启抑制窗口
func Reduce(state State, a sheet.Action, now time.Time, cfg *Config) (State, error) {
	next, err := sheet.Apply(state.Sheet, a)
	if err != nil {
		return state, err
	}

	out := State{Sheet: next, BlockRefetch: state.BlockRefetch, UI: state.UI}
	if suppresses(a.Type, cfg) {
		out.BlockRefetch = &Window{From: now, For: cfg.SuppressionWindow()}
	}
	return out, nil
}
