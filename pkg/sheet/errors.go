package sheet

import "github.com/cockroachdb/errors"

var (
	// ErrUnknownType 未知动作类型
	ErrUnknownType = errors.New("sheet: unknown action type")

	// ErrUnknownStrategy 未知角色移除策略
	ErrUnknownStrategy = errors.New("sheet: unknown removal strategy")

	// ErrMissingTarget pass/give 策略的目标角色缺失或在动作之后不存在
	ErrMissingTarget = errors.New("sheet: removal target does not exist")

	// ErrUnknownCarrier 携带者不是本表的角色
	ErrUnknownCarrier = errors.New("sheet: unknown carrier")

	// ErrDuplicateID 新增实体 id 已存在
	ErrDuplicateID = errors.New("sheet: duplicate id")

	// ErrMissingID 实体缺少 id
	ErrMissingID = errors.New("sheet: missing id")

	// ErrInvalidEntity 实体字段不合法
	ErrInvalidEntity = errors.New("sheet: invalid entity")

	// ErrMalformedSnapshot 服务端快照缺少必需字段或违反不变量
	ErrMalformedSnapshot = errors.New("sheet: malformed snapshot")
)
