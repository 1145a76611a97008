package sheet

import "github.com/cockroachdb/errors"

// StrategyKind 角色移除时其携带物品的处理方式
type StrategyKind string

const (
	// StrategyDelete 删除其携带的物品
	StrategyDelete StrategyKind = "delete"
	// StrategyPass 转交给 TargetID
	StrategyPass StrategyKind = "pass"
	// StrategyGive 同 pass
	StrategyGive StrategyKind = "give"
	// StrategyToNobody 改为无人携带
	StrategyToNobody StrategyKind = "to-nobody"
)

// Strategy 移除策略
type Strategy struct {
	Kind     StrategyKind `json:"kind"`
	TargetID string       `json:"targetId,omitempty"`
}

// DeleteItems 删除物品策略
func DeleteItems() Strategy { return Strategy{Kind: StrategyDelete} }

// PassTo 转交策略
func PassTo(target string) Strategy { return Strategy{Kind: StrategyPass, TargetID: target} }

// GiveTo 赠予策略
func GiveTo(target string) Strategy { return Strategy{Kind: StrategyGive, TargetID: target} }

// ToNobody 无人携带策略
func ToNobody() Strategy { return Strategy{Kind: StrategyToNobody} }

// Transfers 是否需要目标角色
func (s Strategy) Transfers() bool {
	return s.Kind == StrategyPass || s.Kind == StrategyGive
}

// Validate 校验策略本身，不检查目标是否存在
func (s Strategy) Validate() error {
	switch s.Kind {
	case StrategyDelete, StrategyToNobody:
		return nil
	case StrategyPass, StrategyGive:
		if s.TargetID == "" {
			return errors.Wrapf(ErrMissingTarget, "%s without targetId", s.Kind)
		}
		return nil
	}
	return errors.Wrapf(ErrUnknownStrategy, "%q", s.Kind)
}

// CharacterRemoval 待移除的角色及其策略
type CharacterRemoval struct {
	ID       string   `json:"id"`
	Strategy Strategy `json:"strategy"`
}
