package sheet

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

// partySheet A 携带 X、Y，B 不携带，Z 无人携带
func partySheet() Sheet {
	return Sheet{
		ID:   "s1",
		Name: "Party",
		Characters: []Character{
			{ID: "A", Name: "Aria", CarryCapacity: d("50")},
			{ID: "B", Name: "Bram"},
		},
		Items: []Item{
			{ID: "X", Name: "Rope", Quantity: 1, Weight: d("10"), CarriedByCharacterID: Ref("A")},
			{ID: "Y", Name: "Torch", Quantity: 3, Weight: d("1"), CarriedByCharacterID: Ref("A")},
			{ID: "Z", Name: "Tent", Quantity: 1, Weight: d("20")},
		},
	}
}

func mustApply(t *testing.T, s Sheet, p Payload) Sheet {
	t.Helper()
	out, err := Apply(s, NewAction(p))
	require.NoError(t, err)
	require.NoError(t, out.CheckInvariants())
	return out
}

// TestAddThenRemove 新增后删除回到空表
func TestAddThenRemove(t *testing.T) {
	s := Sheet{ID: "s1", Items: []Item{}, Characters: []Character{}}

	sword := Item{ID: "i1", Name: "Sword", Quantity: 1, Weight: d("3"), Value: d("10")}
	s = mustApply(t, s, ItemAdd{Item: sword})

	require.Len(t, s.Items, 1)
	got := s.Items[0]
	assert.Equal(t, "Sword", got.Name)
	assert.Equal(t, 1, got.Quantity)
	assert.True(t, got.Weight.Equal(d("3")))
	assert.True(t, got.Value.Equal(d("10")))
	assert.Nil(t, got.CarriedByCharacterID)

	s = mustApply(t, s, ItemRemove{ID: got.ID})
	assert.Empty(t, s.Items)
}

// TestApplyItems 物品动作
func TestApplyItems(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr error
		check   func(t *testing.T, s Sheet)
	}{
		{
			name:    "remove missing is no-op",
			payload: ItemRemove{ID: "nope"},
			check: func(t *testing.T, s Sheet) {
				assert.True(t, s.ContentEqual(partySheet()))
			},
		},
		{
			name:    "update missing is no-op",
			payload: ItemPatch{ID: "nope", Name: strPtr("x")},
			check: func(t *testing.T, s Sheet) {
				assert.True(t, s.ContentEqual(partySheet()))
			},
		},
		{
			name:    "update merges only given fields",
			payload: ItemPatch{ID: "Y", Name: strPtr("Lantern"), Quantity: intPtr(2)},
			check: func(t *testing.T, s Sheet) {
				it, ok := s.FindItem("Y")
				require.True(t, ok)
				assert.Equal(t, "Lantern", it.Name)
				assert.Equal(t, 2, it.Quantity)
				assert.True(t, it.Weight.Equal(d("1")))
				assert.True(t, it.IsCarriedBy("A"))
			},
		},
		{
			name:    "update carrier to nobody",
			payload: ItemPatch{ID: "X", Carrier: ClearCarrier()},
			check: func(t *testing.T, s Sheet) {
				it, _ := s.FindItem("X")
				assert.Nil(t, it.CarriedByCharacterID)
			},
		},
		{
			name:    "update carrier to B",
			payload: ItemPatch{ID: "Z", Carrier: SetCarrier("B")},
			check: func(t *testing.T, s Sheet) {
				it, _ := s.FindItem("Z")
				assert.True(t, it.IsCarriedBy("B"))
			},
		},
		{
			name:    "update carrier to unknown",
			payload: ItemPatch{ID: "Z", Carrier: SetCarrier("ghost")},
			wantErr: ErrUnknownCarrier,
		},
		{
			name:    "update negative weight",
			payload: ItemPatch{ID: "Z", Weight: decPtr(d("-1"))},
			wantErr: ErrInvalidEntity,
		},
		{
			name:    "add duplicate id",
			payload: ItemAdd{Item: Item{ID: "X", Name: "Dup", Quantity: 1}},
			wantErr: ErrDuplicateID,
		},
		{
			name:    "add without id",
			payload: ItemAdd{Item: NewItem("Anon")},
			wantErr: ErrMissingID,
		},
		{
			name:    "add without name",
			payload: ItemAdd{Item: Item{ID: "n", Quantity: 1}},
			wantErr: ErrInvalidEntity,
		},
		{
			name:    "add with unknown carrier",
			payload: ItemAdd{Item: Item{ID: "n", Name: "Gem", Quantity: 1, CarriedByCharacterID: Ref("ghost")}},
			wantErr: ErrUnknownCarrier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := partySheet()
			out, err := Apply(in, NewAction(tt.payload))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, out.ContentEqual(partySheet()))
				return
			}
			require.NoError(t, err)
			require.NoError(t, out.CheckInvariants())
			tt.check(t, out)
		})
	}
}

// TestApplyCharacters 角色动作
func TestApplyCharacters(t *testing.T) {
	s := mustApply(t, partySheet(), CharacterAdd{Character: Character{ID: "C", Name: "Cato"}})
	assert.True(t, s.HasCharacter("C"))

	_, err := Apply(s, NewAction(CharacterAdd{Character: Character{ID: "C", Name: "Again"}}))
	assert.ErrorIs(t, err, ErrDuplicateID)

	s = mustApply(t, s, CharacterPatch{ID: "C", CarryCapacity: decPtr(d("12.5"))})
	c, _ := s.FindCharacter("C")
	assert.Equal(t, "Cato", c.Name)
	assert.True(t, c.CarryCapacity.Equal(d("12.5")))

	_, err = Apply(s, NewAction(CharacterPatch{ID: "C", Name: strPtr("")}))
	assert.ErrorIs(t, err, ErrInvalidEntity)

	s = mustApply(t, s, CharacterPatch{ID: "ghost", Name: strPtr("x")})
	assert.Len(t, s.Characters, 3)
}

// TestCarrierInvariantPerStrategy 每种策略移除后不存在悬空引用
func TestCarrierInvariantPerStrategy(t *testing.T) {
	carriedBefore := []string{"X", "Y"}

	tests := []struct {
		name     string
		strategy Strategy
		check    func(t *testing.T, s Sheet)
	}{
		{
			name:     "delete",
			strategy: DeleteItems(),
			check: func(t *testing.T, s Sheet) {
				for _, id := range carriedBefore {
					_, ok := s.FindItem(id)
					assert.False(t, ok, id)
				}
				assert.Len(t, s.Items, 1)
			},
		},
		{
			name:     "pass",
			strategy: PassTo("B"),
			check: func(t *testing.T, s Sheet) {
				for _, id := range carriedBefore {
					it, _ := s.FindItem(id)
					assert.True(t, it.IsCarriedBy("B"), id)
				}
			},
		},
		{
			name:     "give",
			strategy: GiveTo("B"),
			check: func(t *testing.T, s Sheet) {
				assert.Len(t, s.ItemsCarriedBy("B"), 2)
			},
		},
		{
			name:     "to-nobody",
			strategy: ToNobody(),
			check: func(t *testing.T, s Sheet) {
				for _, id := range carriedBefore {
					it, _ := s.FindItem(id)
					assert.Nil(t, it.CarriedByCharacterID, id)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, p := range []Payload{
				CharacterRemove{Removal: CharacterRemoval{ID: "A", Strategy: tt.strategy}},
				MetadataUpdate{Characters: CharacterChanges{Remove: []CharacterRemoval{{ID: "A", Strategy: tt.strategy}}}},
			} {
				s := mustApply(t, partySheet(), p)
				assert.False(t, s.HasCharacter("A"))
				assert.Empty(t, s.ItemsCarriedBy("A"))
				it, ok := s.FindItem("Z")
				require.True(t, ok)
				assert.Nil(t, it.CarriedByCharacterID)
				tt.check(t, s)
			}
		})
	}
}

// TestCascadePass A 的物品转交给 B
func TestCascadePass(t *testing.T) {
	s := mustApply(t, partySheet(), MetadataUpdate{
		Characters: CharacterChanges{Remove: []CharacterRemoval{{ID: "A", Strategy: PassTo("B")}}},
	})

	assert.False(t, s.HasCharacter("A"))
	x, _ := s.FindItem("X")
	y, _ := s.FindItem("Y")
	assert.Equal(t, "B", x.CarrierID())
	assert.Equal(t, "B", y.CarrierID())
}

// TestRemovalErrors 策略错误
func TestRemovalErrors(t *testing.T) {
	tests := []struct {
		name     string
		removals []CharacterRemoval
		wantErr  error
	}{
		{name: "unknown strategy", removals: []CharacterRemoval{{ID: "A", Strategy: Strategy{Kind: "burn"}}}, wantErr: ErrUnknownStrategy},
		{name: "pass without target", removals: []CharacterRemoval{{ID: "A", Strategy: Strategy{Kind: StrategyPass}}}, wantErr: ErrMissingTarget},
		{name: "pass to unknown", removals: []CharacterRemoval{{ID: "A", Strategy: PassTo("ghost")}}, wantErr: ErrMissingTarget},
		{name: "pass to self", removals: []CharacterRemoval{{ID: "A", Strategy: PassTo("A")}}, wantErr: ErrMissingTarget},
		{
			name: "pass to character removed in same action",
			removals: []CharacterRemoval{
				{ID: "A", Strategy: PassTo("B")},
				{ID: "B", Strategy: DeleteItems()},
			},
			wantErr: ErrMissingTarget,
		},
		{
			name: "same character twice",
			removals: []CharacterRemoval{
				{ID: "A", Strategy: DeleteItems()},
				{ID: "A", Strategy: ToNobody()},
			},
			wantErr: ErrInvalidEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(partySheet(), NewAction(MetadataUpdate{Characters: CharacterChanges{Remove: tt.removals}}))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestMixedStrategiesOrderIndependent 同一动作内不同角色使用不同策略，顺序不影响结果
func TestMixedStrategiesOrderIndependent(t *testing.T) {
	base := partySheet()
	base.Characters = append(base.Characters, Character{ID: "C", Name: "Cato"})
	base.Items = append(base.Items, Item{ID: "W", Name: "Bow", Quantity: 1, CarriedByCharacterID: Ref("C")})

	forward := []CharacterRemoval{
		{ID: "A", Strategy: PassTo("B")},
		{ID: "C", Strategy: DeleteItems()},
	}
	backward := []CharacterRemoval{forward[1], forward[0]}

	s1 := mustApply(t, base, MetadataUpdate{Characters: CharacterChanges{Remove: forward}})
	s2 := mustApply(t, base, MetadataUpdate{Characters: CharacterChanges{Remove: backward}})

	assert.True(t, s1.ContentEqual(s2))
	assert.Len(t, s1.ItemsCarriedBy("B"), 2)
	_, ok := s1.FindItem("W")
	assert.False(t, ok)
}

// TestMetadataOrder add、update、remove、rename 顺序
func TestMetadataOrder(t *testing.T) {
	s := mustApply(t, partySheet(), MetadataUpdate{
		Name: strPtr("Renamed"),
		Characters: CharacterChanges{
			Add:    []Character{{ID: "D", Name: "Dara"}},
			Update: []CharacterPatch{{ID: "D", Name: strPtr("Dara the Bold")}},
			Remove: []CharacterRemoval{{ID: "A", Strategy: GiveTo("D")}},
		},
	})

	assert.Equal(t, "Renamed", s.Name)
	dara, ok := s.FindCharacter("D")
	require.True(t, ok)
	assert.Equal(t, "Dara the Bold", dara.Name)
	assert.Len(t, s.ItemsCarriedBy("D"), 2)
}

// TestApplyDoesNotMutateInput 输入保持不变
func TestApplyDoesNotMutateInput(t *testing.T) {
	in := partySheet()
	snapshot := in.Clone()

	payloads := []Payload{
		ItemPatch{ID: "X", Carrier: SetCarrier("B"), Name: strPtr("Changed")},
		ItemRemove{ID: "Y"},
		CharacterRemove{Removal: CharacterRemoval{ID: "A", Strategy: ToNobody()}},
		CharacterPatch{ID: "B", Name: strPtr("Other")},
		ItemAdd{Item: Item{ID: "N", Name: "New", Quantity: 1}},
	}
	for _, p := range payloads {
		_, err := Apply(in, NewAction(p))
		require.NoError(t, err)
		assert.True(t, in.ContentEqual(snapshot), "%T mutated input", p)
		assert.Equal(t, "A", *in.Items[0].CarriedByCharacterID)
	}
}

// TestApplySheetUpdate 整体替换
func TestApplySheetUpdate(t *testing.T) {
	next := Sheet{ID: "s1", Name: "Server", Items: []Item{}, Characters: []Character{}}
	out := mustApply(t, partySheet(), SheetUpdate{Sheet: next})
	assert.True(t, out.ContentEqual(next))
	assert.Equal(t, "s1", out.ID)
}

// TestApplyMalformedAction 非法动作
func TestApplyMalformedAction(t *testing.T) {
	_, err := Apply(partySheet(), Action{Type: "item_explode", Payload: ItemRemove{ID: "X"}})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Apply(partySheet(), Action{Type: TypeItemUpdate, Payload: ItemRemove{ID: "X"}})
	assert.ErrorIs(t, err, ErrInvalidEntity)

	_, err = Apply(partySheet(), Action{Type: TypeItemRemove})
	assert.ErrorIs(t, err, ErrInvalidEntity)
}

// TestCheckInvariants 不变量违反为 assertion failure
func TestCheckInvariants(t *testing.T) {
	require.NoError(t, partySheet().CheckInvariants())

	dangling := partySheet()
	dangling.Items[2].CarriedByCharacterID = Ref("ghost")
	err := dangling.CheckInvariants()
	require.Error(t, err)
	assert.True(t, errors.HasAssertionFailure(err))

	dup := partySheet()
	dup.Items = append(dup.Items, dup.Items[0])
	assert.Error(t, dup.CheckInvariants())

	dupChar := partySheet()
	dupChar.Characters = append(dupChar.Characters, dupChar.Characters[0])
	assert.Error(t, dupChar.CheckInvariants())
}

// TestAssignIDs 补齐新增实体 id
func TestAssignIDs(t *testing.T) {
	n := 0
	gen := func() string {
		n++
		return "gen-" + string(rune('0'+n))
	}
	s := partySheet()

	a := AssignIDs(s, NewAction(ItemAdd{Item: NewItem("Gem")}), gen)
	assert.Equal(t, "gen-1", a.Payload.(ItemAdd).Item.ID)

	a = AssignIDs(s, NewAction(ItemAdd{Item: Item{ID: "client-id", Name: "Gem"}}), gen)
	assert.Equal(t, "client-id", a.Payload.(ItemAdd).Item.ID)

	a = AssignIDs(s, NewAction(ItemAdd{Item: Item{ID: "X", Name: "Gem"}}), gen)
	assert.Equal(t, "gen-2", a.Payload.(ItemAdd).Item.ID)

	a = AssignIDs(s, NewAction(CharacterAdd{Character: Character{ID: "A", Name: "Dup"}}), gen)
	assert.Equal(t, "gen-3", a.Payload.(CharacterAdd).Character.ID)

	in := MetadataUpdate{Characters: CharacterChanges{Add: []Character{{ID: "k", Name: "K"}, {ID: "k", Name: "K2"}, {Name: "L"}}}}
	a = AssignIDs(s, NewAction(in), gen)
	adds := a.Payload.(MetadataUpdate).Characters.Add
	assert.Equal(t, "k", adds[0].ID)
	assert.Equal(t, "gen-4", adds[1].ID)
	assert.Equal(t, "gen-5", adds[2].ID)
	assert.Equal(t, "k", in.Characters.Add[1].ID, "input must not change")

	remove := NewAction(ItemRemove{ID: "X"})
	assert.Equal(t, remove, AssignIDs(s, remove, gen))
}

func intPtr(v int) *int { return &v }

func decPtr(v decimal.Decimal) *decimal.Decimal { return &v }
