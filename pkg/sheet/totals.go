package sheet

import "github.com/shopspring/decimal"

// TotalWeight 单价重量 × 数量
func (it Item) TotalWeight() decimal.Decimal {
	return it.Weight.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// TotalValue 单价价值 × 数量
func (it Item) TotalValue() decimal.Decimal {
	return it.Value.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Totals 汇总
type Totals struct {
	Quantity int             `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Value    decimal.Decimal `json:"value"`
}

func (t Totals) add(it Item) Totals {
	return Totals{
		Quantity: t.Quantity + it.Quantity,
		Weight:   t.Weight.Add(it.TotalWeight()),
		Value:    t.Value.Add(it.TotalValue()),
	}
}

// Totals 全部物品的数量、重量、价值合计
func (s Sheet) Totals() Totals {
	var t Totals
	for _, it := range s.Items {
		t = t.add(it)
	}
	return t
}

// CarriedWeight 指定角色携带的总重量，characterID 为空时统计无人携带的物品
func (s Sheet) CarriedWeight(characterID string) decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		if it.CarrierID() == characterID {
			total = total.Add(it.TotalWeight())
		}
	}
	return total
}

// Load 角色负重
type Load struct {
	CharacterID string          `json:"characterId"`
	Name        string          `json:"name"`
	Carried     decimal.Decimal `json:"carried"`
	Capacity    decimal.Decimal `json:"capacity"`
	// Overloaded 负重超过上限，上限为 0 表示不限
	Overloaded bool `json:"overloaded"`
}

// Encumbrance 按角色顺序返回负重情况
func (s Sheet) Encumbrance() []Load {
	carried := make(map[string]decimal.Decimal, len(s.Characters))
	for _, it := range s.Items {
		if id := it.CarrierID(); id != "" {
			carried[id] = carried[id].Add(it.TotalWeight())
		}
	}

	loads := make([]Load, 0, len(s.Characters))
	for _, c := range s.Characters {
		w := carried[c.ID]
		loads = append(loads, Load{
			CharacterID: c.ID,
			Name:        c.Name,
			Carried:     w,
			Capacity:    c.CarryCapacity,
			Overloaded:  c.CarryCapacity.IsPositive() && w.GreaterThan(c.CarryCapacity),
		})
	}
	return loads
}
