// Package sheet 定义队伍物品表的实体、动作协议以及客户端与服务端共用的纯函数式动作应用
package sheet

import (
	"slices"

	"github.com/shopspring/decimal"
)

const (
	ItemNameMaxLen      = 120
	CharacterNameMaxLen = 60
	CategoryMaxLen      = 60
	DescriptionMaxLen   = 4000
	ReferenceLinkMaxLen = 2048
	SheetNameMaxLen     = 120
)

func init() {
	// 重量与价值以 JSON 数字输出
	decimal.MarshalJSONWithoutQuotes = true
}

// Sheet 一个队伍的物品表
type Sheet struct {
	ID         string      `json:"id"`
	Name       string      `json:"name" validate:"max=120"`
	Items      []Item      `json:"items"`
	Characters []Character `json:"characters"`
}

// Character 可以携带物品的队伍成员
type Character struct {
	ID            string          `json:"id"`
	Name          string          `json:"name" validate:"required,max=60"`
	CarryCapacity decimal.Decimal `json:"carryCapacity"`
}

// Item 物品，CarriedByCharacterID 为 nil 表示无人携带
type Item struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name" validate:"required,max=120"`
	Quantity             int             `json:"quantity" validate:"gte=0"`
	Weight               decimal.Decimal `json:"weight"`
	Value                decimal.Decimal `json:"value"`
	Category             string          `json:"category,omitempty" validate:"max=60"`
	CarriedByCharacterID *string         `json:"carriedByCharacterId"`
	Description          string          `json:"description,omitempty" validate:"max=4000"`
	ReferenceLink        string          `json:"referenceLink,omitempty" validate:"max=2048"`
}

// NewItem 带默认值的物品：数量 1，重量与价值 0，无人携带
func NewItem(name string) Item {
	return Item{Name: name, Quantity: 1}
}

// Ref 返回字符串指针，用于设置携带者
func Ref(id string) *string {
	return &id
}

// CarrierID 携带者 id，无人携带时为空串
func (it Item) CarrierID() string {
	if it.CarriedByCharacterID == nil {
		return ""
	}
	return *it.CarriedByCharacterID
}

// IsCarriedBy 是否由指定角色携带
func (it Item) IsCarriedBy(characterID string) bool {
	return it.CarriedByCharacterID != nil && *it.CarriedByCharacterID == characterID
}

func (it Item) clone() Item {
	if it.CarriedByCharacterID != nil {
		it.CarriedByCharacterID = Ref(*it.CarriedByCharacterID)
	}
	return it
}

// Clone 深拷贝，结果与原值不共享任何可变内存
func (s Sheet) Clone() Sheet {
	out := Sheet{ID: s.ID, Name: s.Name}
	if s.Items != nil {
		out.Items = make([]Item, len(s.Items))
		for i, it := range s.Items {
			out.Items[i] = it.clone()
		}
	}
	out.Characters = slices.Clone(s.Characters)
	return out
}

// FindItem 按 id 查找物品
func (s Sheet) FindItem(id string) (Item, bool) {
	i := s.itemIndex(id)
	if i < 0 {
		return Item{}, false
	}
	return s.Items[i], true
}

// FindCharacter 按 id 查找角色
func (s Sheet) FindCharacter(id string) (Character, bool) {
	i := s.characterIndex(id)
	if i < 0 {
		return Character{}, false
	}
	return s.Characters[i], true
}

// HasCharacter 角色是否存在
func (s Sheet) HasCharacter(id string) bool {
	return s.characterIndex(id) >= 0
}

// ItemsCarriedBy 指定角色携带的物品
func (s Sheet) ItemsCarriedBy(characterID string) []Item {
	var out []Item
	for _, it := range s.Items {
		if it.IsCarriedBy(characterID) {
			out = append(out, it)
		}
	}
	return out
}

func (s Sheet) itemIndex(id string) int {
	return slices.IndexFunc(s.Items, func(it Item) bool { return it.ID == id })
}

func (s Sheet) characterIndex(id string) int {
	return slices.IndexFunc(s.Characters, func(c Character) bool { return c.ID == id })
}
