package sheet

import (
	"github.com/cockroachdb/errors"
)

// Apply 把动作结构化地应用到 s 上，返回新的 Sheet，不修改输入
// 仅在动作本身不合法时返回错误：未知类型或策略、目标缺失、未知携带者、重复 id
func Apply(s Sheet, a Action) (Sheet, error) {
	if err := a.Validate(); err != nil {
		return s, err
	}

	out := s.Clone()
	var err error
	switch p := a.Payload.(type) {
	case ItemAdd:
		err = out.addItem(p.Item)
	case ItemRemove:
		out.removeItem(p.ID)
	case ItemPatch:
		err = out.patchItem(p)
	case CharacterAdd:
		err = out.addCharacter(p.Character)
	case CharacterPatch:
		err = out.patchCharacter(p)
	case CharacterRemove:
		err = out.removeCharacters([]CharacterRemoval{p.Removal})
	case MetadataUpdate:
		err = out.applyMetadata(p)
	case SheetUpdate:
		out = p.Sheet.Clone()
	default:
		err = errors.Wrapf(ErrUnknownType, "%T", a.Payload)
	}
	if err != nil {
		return s, errors.Wrapf(err, "apply %s", a.Type)
	}
	return out, nil
}

func (s *Sheet) addItem(it Item) error {
	if it.ID == "" {
		return errors.Wrap(ErrMissingID, "item")
	}
	if s.itemIndex(it.ID) >= 0 {
		return errors.Wrapf(ErrDuplicateID, "item %s", it.ID)
	}
	if err := it.Validate(); err != nil {
		return err
	}
	if it.CarriedByCharacterID != nil && !s.HasCharacter(*it.CarriedByCharacterID) {
		return errors.Wrapf(ErrUnknownCarrier, "%s", *it.CarriedByCharacterID)
	}
	s.Items = append(s.Items, it.clone())
	return nil
}

func (s *Sheet) removeItem(id string) {
	i := s.itemIndex(id)
	if i < 0 {
		return
	}
	s.Items = append(s.Items[:i:i], s.Items[i+1:]...)
}

func (s *Sheet) patchItem(p ItemPatch) error {
	i := s.itemIndex(p.ID)
	if i < 0 {
		return nil
	}

	it := s.Items[i].clone()
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Weight != nil {
		it.Weight = *p.Weight
	}
	if p.Value != nil {
		it.Value = *p.Value
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.ReferenceLink != nil {
		it.ReferenceLink = *p.ReferenceLink
	}
	if p.Carrier.Set {
		if p.Carrier.ID != nil && !s.HasCharacter(*p.Carrier.ID) {
			return errors.Wrapf(ErrUnknownCarrier, "%s", *p.Carrier.ID)
		}
		it.CarriedByCharacterID = nil
		if p.Carrier.ID != nil {
			it.CarriedByCharacterID = Ref(*p.Carrier.ID)
		}
	}
	if err := it.Validate(); err != nil {
		return err
	}

	s.Items[i] = it
	return nil
}

func (s *Sheet) addCharacter(c Character) error {
	if c.ID == "" {
		return errors.Wrap(ErrMissingID, "character")
	}
	if s.HasCharacter(c.ID) {
		return errors.Wrapf(ErrDuplicateID, "character %s", c.ID)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	s.Characters = append(s.Characters, c)
	return nil
}

func (s *Sheet) patchCharacter(p CharacterPatch) error {
	i := s.characterIndex(p.ID)
	if i < 0 {
		return nil
	}

	c := s.Characters[i]
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.CarryCapacity != nil {
		c.CarryCapacity = *p.CarryCapacity
	}
	if err := c.Validate(); err != nil {
		return err
	}

	s.Characters[i] = c
	return nil
}

// removeCharacters 每个角色只处理自己携带的物品，结果与顺序无关
// pass/give 的目标必须在动作完成后仍然存在
func (s *Sheet) removeCharacters(removals []CharacterRemoval) error {
	byID := make(map[string]Strategy, len(removals))
	for _, r := range removals {
		if err := r.Strategy.Validate(); err != nil {
			return errors.Wrapf(err, "character %s", r.ID)
		}
		if _, dup := byID[r.ID]; dup {
			return errors.Wrapf(ErrInvalidEntity, "character %s removed twice", r.ID)
		}
		if s.HasCharacter(r.ID) {
			byID[r.ID] = r.Strategy
		}
	}
	if len(byID) == 0 {
		return nil
	}

	for id, st := range byID {
		if !st.Transfers() {
			continue
		}
		if _, removed := byID[st.TargetID]; removed || !s.HasCharacter(st.TargetID) {
			return errors.Wrapf(ErrMissingTarget, "character %s %s to %s", id, st.Kind, st.TargetID)
		}
	}

	chars := make([]Character, 0, len(s.Characters)-len(byID))
	for _, c := range s.Characters {
		if _, removed := byID[c.ID]; !removed {
			chars = append(chars, c)
		}
	}
	s.Characters = chars

	items := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		st, affected := byID[it.CarrierID()]
		if !affected || it.CarriedByCharacterID == nil {
			items = append(items, it)
			continue
		}
		switch st.Kind {
		case StrategyDelete:
			continue
		case StrategyPass, StrategyGive:
			it.CarriedByCharacterID = Ref(st.TargetID)
		case StrategyToNobody:
			it.CarriedByCharacterID = nil
		}
		items = append(items, it)
	}
	s.Items = items
	return nil
}

func (s *Sheet) applyMetadata(p MetadataUpdate) error {
	for _, c := range p.Characters.Add {
		if err := s.addCharacter(c); err != nil {
			return err
		}
	}
	for _, c := range p.Characters.Update {
		if err := s.patchCharacter(c); err != nil {
			return err
		}
	}
	if err := s.removeCharacters(p.Characters.Remove); err != nil {
		return err
	}
	if p.Name != nil {
		if err := validate.Var(*p.Name, "max=120"); err != nil {
			return errors.Wrap(ErrInvalidEntity, "sheet name too long")
		}
		s.Name = *p.Name
	}
	return nil
}
