package service

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/app/sheet/internal/dao"
)

var (
	// ErrNotFound 物品表不存在
	ErrNotFound = dao.ErrSheetNotFound

	// ErrInvalidAction 动作格式错误或对当前表不合法
	ErrInvalidAction = errors.New("invalid action")

	// ErrSnapshotAction sheet_update 只能由服务端下发
	ErrSnapshotAction = errors.New("sheet_update is not accepted from clients")

	// ErrInvariant 应用后的表违反不变量
	ErrInvariant = errors.New("sheet invariant violated")

	// ErrStaleSnapshot 动作已持久化但快照缓存未能失效
	ErrStaleSnapshot = errors.New("snapshot cache not invalidated")
)
