// Package access resolves what a user may see and do: flattened permission
// sets, capability checks, navigation filtering, hierarchical group scoping
// and ticket state-transition gates.
//
// Every function in this package is pure. Inputs are snapshots that callers
// load beforehand; nothing here touches the network, the database or shared
// state. The server re-validates every mutation with the same functions, so
// results are authoritative only when evaluated server side.
package access

// User is the canonical user snapshot consumed by the resolver.
type User struct {
	ID          string
	Email       string
	Name        string
	IsSuperuser bool
	GroupID     *string
	Roles       []Role
}

// Role groups permissions together with navigation entries the role hides.
type Role struct {
	Name           string
	Permissions    []Permission
	HiddenNavItems []string
}

// Permission is an opaque capability. Key is preferred; Name is the legacy
// identifier used when Key is empty.
type Permission struct {
	Key  string
	Name string
}

// Ident returns the identifier used for set membership.
func (p Permission) Ident() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Name
}

// Group is a node of the organisational forest.
type Group struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id"`
	Name     string  `json:"name"`
}

// Ticket carries the fields relevant to access gating.
type Ticket struct {
	ID           string
	Status       Status
	CreatedByID  string
	GroupID      *string
	AssignedToID *string
}
