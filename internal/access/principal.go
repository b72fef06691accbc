package access

// Principal is the resolved view of the authenticated user for one session.
// Roles do not change mid-session, so the derived sets are computed once.
type Principal struct {
	User        User
	GroupName   string
	Permissions PermissionSet
	Hidden      map[string]struct{}
}

// NewPrincipal derives the permission and hidden-navigation sets of user.
func NewPrincipal(user User, groupName string) *Principal {
	return &Principal{
		User:        user,
		GroupName:   groupName,
		Permissions: BuildPermissionSet(user.Roles),
		Hidden:      HiddenNavItems(user.Roles),
	}
}

// Actor returns the principal as seen by the ticket gates.
func (p *Principal) Actor() Actor {
	if p == nil {
		return Actor{Permissions: PermissionSet{}}
	}
	return Actor{
		ID:          p.User.ID,
		IsSuperuser: p.User.IsSuperuser,
		Permissions: p.Permissions,
		GroupName:   p.GroupName,
	}
}

// Can reports whether the principal satisfies req.
func (p *Principal) Can(req Requirement) bool {
	if p == nil {
		return req.IsZero()
	}
	return Allowed(req, p.Permissions, p.User.IsSuperuser)
}

// Navigation filters items for the principal.
func (p *Principal) Navigation(items []NavigationEntry) []NavigationEntry {
	if p == nil {
		return FilterNavigation(items, nil, PermissionSet{}, false)
	}
	return FilterNavigation(items, p.Hidden, p.Permissions, p.User.IsSuperuser)
}

// ScopeGroups scopes all to the principal's home group subtree.
func (p *Principal) ScopeGroups(all []Group) []Group {
	if p == nil {
		return []Group{}
	}
	return ScopeGroups(all, p.User.GroupID, p.User.IsSuperuser)
}
