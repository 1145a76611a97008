package sheet

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Type 动作类型标签
type Type string

const (
	TypeItemAdd         Type = "item_add"
	TypeItemRemove      Type = "item_remove"
	TypeItemUpdate      Type = "item_update"
	TypeCharacterAdd    Type = "character_add"
	TypeCharacterUpdate Type = "character_update"
	TypeCharacterRemove Type = "character_remove"
	TypeMetadataUpdate  Type = "sheet_metadataUpdate"
	TypeSheetUpdate     Type = "sheet_update"
)

// Types 全部动作类型
var Types = []Type{
	TypeItemAdd, TypeItemRemove, TypeItemUpdate,
	TypeCharacterAdd, TypeCharacterUpdate, TypeCharacterRemove,
	TypeMetadataUpdate, TypeSheetUpdate,
}

// Valid 是否为已知类型
func (t Type) Valid() bool {
	switch t {
	case TypeItemAdd, TypeItemRemove, TypeItemUpdate,
		TypeCharacterAdd, TypeCharacterUpdate, TypeCharacterRemove,
		TypeMetadataUpdate, TypeSheetUpdate:
		return true
	}
	return false
}

// IsAdd 是否为新增类动作
func (t Type) IsAdd() bool {
	return t == TypeItemAdd || t == TypeCharacterAdd
}

// Payload 动作负载，仅由本包类型实现
type Payload interface {
	ActionType() Type
	isPayload()
}

// Action 线上传输的动作，回调不属于线上类型
type Action struct {
	// ID 去重键
	ID           string
	Type         Type
	Payload      Payload
	SendToServer bool
}

// NewAction 由负载构造动作
func NewAction(p Payload) Action {
	return Action{Type: p.ActionType(), Payload: p}
}

// WithSend 返回需要转发到服务端的副本
func (a Action) WithSend() Action {
	a.SendToServer = true
	return a
}

// Validate 检查类型与负载一致
func (a Action) Validate() error {
	if !a.Type.Valid() {
		return errors.Wrapf(ErrUnknownType, "%q", a.Type)
	}
	if a.Payload == nil {
		return errors.Wrapf(ErrInvalidEntity, "%s: missing data", a.Type)
	}
	if a.Payload.ActionType() != a.Type {
		return errors.Wrapf(ErrInvalidEntity, "type %s does not match data %s", a.Type, a.Payload.ActionType())
	}
	return nil
}

type actionWire struct {
	ActionID     string          `json:"actionId,omitempty"`
	Type         Type            `json:"type"`
	Data         json.RawMessage `json:"data"`
	SendToServer bool            `json:"sendToServer"`
}

// MarshalJSON {"actionId","type","data","sendToServer"}
func (a Action) MarshalJSON() ([]byte, error) {
	t := a.Type
	if t == "" && a.Payload != nil {
		t = a.Payload.ActionType()
	}
	var data []byte
	if a.Payload != nil {
		var err error
		if data, err = json.Marshal(a.Payload); err != nil {
			return nil, err
		}
	}
	return json.Marshal(actionWire{
		ActionID:     a.ID,
		Type:         t,
		Data:         data,
		SendToServer: a.SendToServer,
	})
}

// UnmarshalJSON 按 type 解析 data，未知类型返回 ErrUnknownType
func (a *Action) UnmarshalJSON(b []byte) error {
	var w actionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p, err := decodePayload(w.Type, w.Data)
	if err != nil {
		return err
	}
	*a = Action{ID: w.ActionID, Type: w.Type, Payload: p, SendToServer: w.SendToServer}
	return nil
}

func decodePayload(t Type, data json.RawMessage) (Payload, error) {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		if t.Valid() {
			return nil, errors.Wrapf(ErrInvalidEntity, "%s: missing data", t)
		}
		return nil, errors.Wrapf(ErrUnknownType, "%q", t)
	}

	var (
		p   Payload
		err error
	)
	switch t {
	case TypeItemAdd:
		var v ItemAdd
		err = json.Unmarshal(data, &v)
		p = v
	case TypeItemRemove:
		var v ItemRemove
		err = json.Unmarshal(data, &v)
		p = v
	case TypeItemUpdate:
		var v ItemPatch
		err = json.Unmarshal(data, &v)
		p = v
	case TypeCharacterAdd:
		var v CharacterAdd
		err = json.Unmarshal(data, &v)
		p = v
	case TypeCharacterUpdate:
		var v CharacterPatch
		err = json.Unmarshal(data, &v)
		p = v
	case TypeCharacterRemove:
		var v CharacterRemove
		err = json.Unmarshal(data, &v)
		p = v
	case TypeMetadataUpdate:
		var v MetadataUpdate
		err = json.Unmarshal(data, &v)
		p = v
	case TypeSheetUpdate:
		var v SheetUpdate
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, errors.Wrapf(ErrUnknownType, "%q", t)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode %s data", t), ErrInvalidEntity)
	}
	return p, nil
}

// ItemAdd 新增物品，id 可为空由分配方填充
// 只有 JSON 解码会把缺省的 quantity 补成 1；在 Go 中构造时应使用 AddItem 或 NewItem，
// 直接写 Item{} 的 Quantity 为 0
type ItemAdd struct {
	Item Item
}

// AddItem 以 NewItem 的默认值构造新增物品负载
func AddItem(name string) ItemAdd {
	return ItemAdd{Item: NewItem(name)}
}

func (ItemAdd) ActionType() Type { return TypeItemAdd }
func (ItemAdd) isPayload()       {}

func (p ItemAdd) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Item)
}

// UnmarshalJSON 缺省 quantity 为 1
func (p *ItemAdd) UnmarshalJSON(b []byte) error {
	type plain Item
	aux := struct {
		*plain
		Quantity *int `json:"quantity"`
	}{plain: (*plain)(&p.Item)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.Item.Quantity = 1
	if aux.Quantity != nil {
		p.Item.Quantity = *aux.Quantity
	}
	return nil
}

// ItemRemove 删除物品，不存在时无操作
type ItemRemove struct {
	ID string `json:"id"`
}

func (ItemRemove) ActionType() Type { return TypeItemRemove }
func (ItemRemove) isPayload()       {}

// UnmarshalJSON 同时接受 {"id":"x"} 与 "x"
func (p *ItemRemove) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &p.ID)
	}
	type plain ItemRemove
	return json.Unmarshal(b, (*plain)(p))
}

// OptionalRef 三态引用：未设置、设置为 nil、设置为某个 id
type OptionalRef struct {
	Set bool
	ID  *string
}

// SetCarrier 设置携带者
func SetCarrier(id string) OptionalRef {
	return OptionalRef{Set: true, ID: Ref(id)}
}

// ClearCarrier 改为无人携带
func ClearCarrier() OptionalRef {
	return OptionalRef{Set: true}
}

// ItemPatch 部分更新物品，nil 字段保持不变
type ItemPatch struct {
	ID            string
	Name          *string
	Quantity      *int
	Weight        *decimal.Decimal
	Value         *decimal.Decimal
	Category      *string
	Carrier       OptionalRef
	Description   *string
	ReferenceLink *string
}

func (ItemPatch) ActionType() Type { return TypeItemUpdate }
func (ItemPatch) isPayload()       {}

type itemPatchWire struct {
	ID            string           `json:"id"`
	Name          *string          `json:"name,omitempty"`
	Quantity      *int             `json:"quantity,omitempty"`
	Weight        *decimal.Decimal `json:"weight,omitempty"`
	Value         *decimal.Decimal `json:"value,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Carrier       json.RawMessage  `json:"carriedByCharacterId,omitempty"`
	Description   *string          `json:"description,omitempty"`
	ReferenceLink *string          `json:"referenceLink,omitempty"`
}

func (p ItemPatch) MarshalJSON() ([]byte, error) {
	w := itemPatchWire{
		ID:            p.ID,
		Name:          p.Name,
		Quantity:      p.Quantity,
		Weight:        p.Weight,
		Value:         p.Value,
		Category:      p.Category,
		Description:   p.Description,
		ReferenceLink: p.ReferenceLink,
	}
	if p.Carrier.Set {
		raw, err := json.Marshal(p.Carrier.ID)
		if err != nil {
			return nil, err
		}
		w.Carrier = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON 区分缺省的 carriedByCharacterId 与显式 null
func (p *ItemPatch) UnmarshalJSON(b []byte) error {
	var w itemPatchWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = ItemPatch{
		ID:            w.ID,
		Name:          w.Name,
		Quantity:      w.Quantity,
		Weight:        w.Weight,
		Value:         w.Value,
		Category:      w.Category,
		Description:   w.Description,
		ReferenceLink: w.ReferenceLink,
	}
	if w.Carrier != nil {
		p.Carrier.Set = true
		if err := json.Unmarshal(w.Carrier, &p.Carrier.ID); err != nil {
			return errors.Wrap(err, "carriedByCharacterId")
		}
	}
	return nil
}

// CharacterAdd 新增角色
type CharacterAdd struct {
	Character Character
}

func (CharacterAdd) ActionType() Type { return TypeCharacterAdd }
func (CharacterAdd) isPayload()       {}

func (p CharacterAdd) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Character)
}

func (p *CharacterAdd) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &p.Character)
}

// CharacterPatch 部分更新角色
type CharacterPatch struct {
	ID            string           `json:"id"`
	Name          *string          `json:"name,omitempty"`
	CarryCapacity *decimal.Decimal `json:"carryCapacity,omitempty"`
}

func (CharacterPatch) ActionType() Type { return TypeCharacterUpdate }
func (CharacterPatch) isPayload()       {}

// CharacterRemove 按策略删除单个角色
type CharacterRemove struct {
	Removal CharacterRemoval
}

func (CharacterRemove) ActionType() Type { return TypeCharacterRemove }
func (CharacterRemove) isPayload()       {}

func (p CharacterRemove) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Removal)
}

func (p *CharacterRemove) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &p.Removal)
}

// MetadataUpdate 重命名并批量增删改角色，按 add、update、remove、rename 顺序应用
type MetadataUpdate struct {
	Name       *string          `json:"name,omitempty"`
	Characters CharacterChanges `json:"characters"`
}

// CharacterChanges 角色变更队列
type CharacterChanges struct {
	Add    []Character        `json:"add,omitempty"`
	Remove []CharacterRemoval `json:"remove,omitempty"`
	Update []CharacterPatch   `json:"update,omitempty"`
}

func (MetadataUpdate) ActionType() Type { return TypeMetadataUpdate }
func (MetadataUpdate) isPayload()       {}

// SheetUpdate 服务端快照整体替换
type SheetUpdate struct {
	Sheet Sheet
}

func (SheetUpdate) ActionType() Type { return TypeSheetUpdate }
func (SheetUpdate) isPayload()       {}

func (p SheetUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Sheet)
}

func (p *SheetUpdate) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &p.Sheet)
}
