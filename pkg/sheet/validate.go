package sheet

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return errors.Wrap(ErrInvalidEntity, strings.Join(fields, ", "))
		}
		return errors.Wrap(ErrInvalidEntity, err.Error())
	}
	return nil
}

func nonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return errors.Wrapf(ErrInvalidEntity, "%s must not be negative", field)
	}
	return nil
}

// Validate 校验物品字段，不检查 id 与携带者
func (it Item) Validate() error {
	if err := validateStruct(it); err != nil {
		return err
	}
	if err := nonNegative("weight", it.Weight); err != nil {
		return err
	}
	return nonNegative("value", it.Value)
}

// Validate 校验角色字段
func (c Character) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	return nonNegative("carryCapacity", c.CarryCapacity)
}

// CheckInvariants 检查 id 唯一且非空、携带者引用存在
// 违反时返回 assertion failure，表示程序缺陷而不是输入错误
func (s Sheet) CheckInvariants() error {
	chars := make(map[string]struct{}, len(s.Characters))
	for _, c := range s.Characters {
		if c.ID == "" {
			return errors.AssertionFailedf("sheet %s: character with empty id", s.ID)
		}
		if _, dup := chars[c.ID]; dup {
			return errors.AssertionFailedf("sheet %s: duplicate character id %s", s.ID, c.ID)
		}
		chars[c.ID] = struct{}{}
	}

	items := make(map[string]struct{}, len(s.Items))
	for _, it := range s.Items {
		if it.ID == "" {
			return errors.AssertionFailedf("sheet %s: item with empty id", s.ID)
		}
		if _, dup := items[it.ID]; dup {
			return errors.AssertionFailedf("sheet %s: duplicate item id %s", s.ID, it.ID)
		}
		items[it.ID] = struct{}{}

		if it.CarriedByCharacterID != nil {
			if _, ok := chars[*it.CarriedByCharacterID]; !ok {
				return errors.AssertionFailedf("sheet %s: item %s carried by missing character %s",
					s.ID, it.ID, *it.CarriedByCharacterID)
			}
		}
	}
	return nil
}

// ValidateSnapshot 校验服务端快照：字段合法且满足不变量
func ValidateSnapshot(s Sheet) error {
	if s.ID == "" {
		return errors.Wrap(ErrMalformedSnapshot, "missing id")
	}
	for _, it := range s.Items {
		if err := it.Validate(); err != nil {
			return errors.Mark(errors.Wrapf(err, "item %s", it.ID), ErrMalformedSnapshot)
		}
	}
	for _, c := range s.Characters {
		if err := c.Validate(); err != nil {
			return errors.Mark(errors.Wrapf(err, "character %s", c.ID), ErrMalformedSnapshot)
		}
	}
	if err := s.CheckInvariants(); err != nil {
		return errors.Mark(err, ErrMalformedSnapshot)
	}
	return nil
}

type snapshotWire struct {
	ID         *string      `json:"id"`
	Name       *string      `json:"name"`
	Items      *[]Item      `json:"items"`
	Characters *[]Character `json:"characters"`
}

// DecodeSnapshot 解析 GET /sheets/{id} 的快照，缺少 id/name/items/characters 任一字段时返回 ErrMalformedSnapshot
func DecodeSnapshot(data []byte) (Sheet, error) {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Sheet{}, errors.Mark(errors.Wrap(err, "decode snapshot"), ErrMalformedSnapshot)
	}

	var missing []string
	if w.ID == nil {
		missing = append(missing, "id")
	}
	if w.Name == nil {
		missing = append(missing, "name")
	}
	if w.Items == nil {
		missing = append(missing, "items")
	}
	if w.Characters == nil {
		missing = append(missing, "characters")
	}
	if len(missing) > 0 {
		return Sheet{}, errors.Wrapf(ErrMalformedSnapshot, "missing %s", strings.Join(missing, ", "))
	}

	s := Sheet{ID: *w.ID, Name: *w.Name, Items: *w.Items, Characters: *w.Characters}
	if err := ValidateSnapshot(s); err != nil {
		return Sheet{}, err
	}
	return s, nil
}
