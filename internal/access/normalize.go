package access

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WirePermission accepts a permission either as an object carrying key/name
// or as a bare string.
type WirePermission struct {
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *WirePermission) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*p = WirePermission{Key: bare}
		return nil
	}
	type plain WirePermission
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("access: decode permission: %w", err)
	}
	*p = WirePermission(obj)
	return nil
}

// WireRoleBody is the nested role object some payloads wrap permissions in.
type WireRoleBody struct {
	Name           string           `json:"name,omitempty"`
	Permissions    []WirePermission `json:"permissions,omitempty"`
	HiddenNavItems []string         `json:"hidden_nav_items,omitempty"`
}

// WireRole is a role assignment as received from storage or a remote API.
// Either the nested Role or the flat fields may be populated.
type WireRole struct {
	Role           *WireRoleBody    `json:"role,omitempty"`
	Name           string           `json:"name,omitempty"`
	Permissions    []WirePermission `json:"permissions,omitempty"`
	HiddenNavItems []string         `json:"hidden_nav_items,omitempty"`
}

// WireUser is a user payload before normalisation.
type WireUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email,omitempty"`
	Name        string     `json:"name,omitempty"`
	IsSuperuser bool       `json:"is_superuser"`
	GroupID     *string    `json:"group_id"`
	Roles       []WireRole `json:"roles"`
}

// NormalizePermission trims the identifiers of p.
func NormalizePermission(p WirePermission) Permission {
	return Permission{Key: strings.TrimSpace(p.Key), Name: strings.TrimSpace(p.Name)}
}

// NormalizeRole converts any accepted role shape into a Role. Nested
// permissions take precedence over flat ones when both are present.
func NormalizeRole(w WireRole) Role {
	name := w.Name
	perms := w.Permissions
	hidden := w.HiddenNavItems
	if w.Role != nil {
		if w.Role.Name != "" {
			name = w.Role.Name
		}
		if len(w.Role.Permissions) > 0 {
			perms = w.Role.Permissions
		}
		if len(w.Role.HiddenNavItems) > 0 {
			hidden = w.Role.HiddenNavItems
		}
	}

	role := Role{Name: strings.TrimSpace(name)}
	for _, p := range perms {
		perm := NormalizePermission(p)
		if perm.Ident() == "" {
			continue
		}
		role.Permissions = append(role.Permissions, perm)
	}
	for _, id := range hidden {
		if id = strings.TrimSpace(id); id != "" {
			role.HiddenNavItems = append(role.HiddenNavItems, id)
		}
	}
	return role
}

// NormalizeRoles converts a list of wire roles.
func NormalizeRoles(ws []WireRole) []Role {
	roles := make([]Role, 0, len(ws))
	for _, w := range ws {
		roles = append(roles, NormalizeRole(w))
	}
	return roles
}

// NormalizeUser converts a wire user into the canonical User.
func NormalizeUser(w WireUser) User {
	var group *string
	if w.GroupID != nil {
		if id := strings.TrimSpace(*w.GroupID); id != "" {
			group = &id
		}
	}
	return User{
		ID:          strings.TrimSpace(w.ID),
		Email:       w.Email,
		Name:        w.Name,
		IsSuperuser: w.IsSuperuser,
		GroupID:     group,
		Roles:       NormalizeRoles(w.Roles),
	}
}
