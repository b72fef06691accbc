package access

// NavigationEntry is one item of the static menu table.
type NavigationEntry struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Path     string            `json:"path,omitempty"`
	External bool              `json:"external,omitempty"`
	Required Requirement       `json:"required"`
	Children []NavigationEntry `json:"children,omitempty"`
}

// FilterNavigation returns the entries visible to a user, preserving input
// order. Hidden ids are dropped first and win even for superusers; the
// remaining entries must pass Allowed.
//
// Sections are filtered recursively. A section without its own path that
// ends up with no visible children is dropped.
func FilterNavigation(items []NavigationEntry, hidden map[string]struct{}, perms PermissionSet, superuser bool) []NavigationEntry {
	out := make([]NavigationEntry, 0, len(items))
	for _, item := range items {
		if _, ok := hidden[item.ID]; ok {
			continue
		}
		if !Allowed(item.Required, perms, superuser) {
			continue
		}
		if len(item.Children) > 0 {
			children := FilterNavigation(item.Children, hidden, perms, superuser)
			if len(children) == 0 && item.Path == "" {
				continue
			}
			item.Children = children
		}
		out = append(out, item)
	}
	return out
}
