package access

// ScopeGroups returns the groups a user may assign tickets to.
//
// Superusers see every group unchanged. Everyone else gets their home group
// followed by its descendants in breadth-first order; children keep the
// order in which they appear in all. A missing or unknown home group yields
// an empty result. Parent links that point at unknown groups are ignored and
// a visited set keeps cyclic input finite.
func ScopeGroups(all []Group, homeID *string, superuser bool) []Group {
	if superuser {
		return all
	}
	if homeID == nil {
		return []Group{}
	}

	index := make(map[string]int, len(all))
	children := make(map[string][]int, len(all))
	for i, g := range all {
		if _, dup := index[g.ID]; !dup {
			index[g.ID] = i
		}
		if g.ParentID == nil {
			continue
		}
		children[*g.ParentID] = append(children[*g.ParentID], i)
	}

	root, ok := index[*homeID]
	if !ok {
		return []Group{}
	}

	out := make([]Group, 0, 8)
	seen := map[string]bool{all[root].ID: true}
	queue := []int{root}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		out = append(out, all[i])
		for _, child := range children[all[i].ID] {
			id := all[child].ID
			if seen[id] {
				continue
			}
			seen[id] = true
			queue = append(queue, child)
		}
	}
	return out
}

// GroupIDs returns the ids of groups in order.
func GroupIDs(groups []Group) []string {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids
}

// ContainsGroup reports whether id appears in groups.
func ContainsGroup(groups []Group, id string) bool {
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}
