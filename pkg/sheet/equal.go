package sheet

import "slices"

// ContentEqual 比较 name、items、characters，数值按十进制比较（0.15 等于 0.150）
// 不比较 sheet id，也不关心服务端修订号
func (s Sheet) ContentEqual(other Sheet) bool {
	return s.Name == other.Name &&
		slices.EqualFunc(s.Items, other.Items, itemEqual) &&
		slices.EqualFunc(s.Characters, other.Characters, characterEqual)
}

func itemEqual(a, b Item) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Quantity == b.Quantity &&
		a.Weight.Equal(b.Weight) &&
		a.Value.Equal(b.Value) &&
		a.Category == b.Category &&
		refEqual(a.CarriedByCharacterID, b.CarriedByCharacterID) &&
		a.Description == b.Description &&
		a.ReferenceLink == b.ReferenceLink
}

func characterEqual(a, b Character) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.CarryCapacity.Equal(b.CarryCapacity)
}

func refEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Normalize 把 nil 集合换成空集合，保证序列化为 [] 而不是 null
func (s Sheet) Normalize() Sheet {
	if s.Items == nil {
		s.Items = []Item{}
	}
	if s.Characters == nil {
		s.Characters = []Character{}
	}
	return s
}
