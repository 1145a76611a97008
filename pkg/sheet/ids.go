package sheet

// AssignIDs 为新增动作补齐 id：客户端给出且唯一的 id 保留，缺失或冲突时用 gen 生成
// 返回新的 Action，不修改输入
func AssignIDs(s Sheet, a Action, gen func() string) Action {
	switch p := a.Payload.(type) {
	case ItemAdd:
		if p.Item.ID == "" || s.itemIndex(p.Item.ID) >= 0 {
			p.Item.ID = gen()
		}
		a.Payload = p

	case CharacterAdd:
		if p.Character.ID == "" || s.HasCharacter(p.Character.ID) {
			p.Character.ID = gen()
		}
		a.Payload = p

	case MetadataUpdate:
		if len(p.Characters.Add) == 0 {
			return a
		}
		seen := make(map[string]struct{}, len(p.Characters.Add))
		adds := make([]Character, len(p.Characters.Add))
		for i, c := range p.Characters.Add {
			_, taken := seen[c.ID]
			if c.ID == "" || taken || s.HasCharacter(c.ID) {
				c.ID = gen()
			}
			seen[c.ID] = struct{}{}
			adds[i] = c
		}
		p.Characters.Add = adds
		a.Payload = p
	}
	return a
}
