package access

import (
	"encoding/json"
	"fmt"
)

// Requirement describes what a navigation entry or action needs. It is either
// none (always allowed), a single key, or a list of keys.
//
// A list uses OR semantics: holding any one of the keys is enough. An item
// requiring ["ticket:read:own", "ticket:read:group"] is visible to a user
// holding either capability. An empty list is satisfied by nobody except
// superusers.
type Requirement struct {
	keys  []string
	anyOf bool
}

// NoRequirement returns a requirement that every user satisfies.
func NoRequirement() Requirement {
	return Requirement{}
}

// RequireKey returns a single-key requirement.
func RequireKey(key string) Requirement {
	return Requirement{keys: []string{key}}
}

// RequireAnyOf returns a requirement satisfied by any of keys.
func RequireAnyOf(keys ...string) Requirement {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return Requirement{keys: cp, anyOf: true}
}

// Keys returns a copy of the required keys.
func (r Requirement) Keys() []string {
	cp := make([]string, len(r.keys))
	copy(cp, r.keys)
	return cp
}

// IsZero reports whether there is no requirement at all.
func (r Requirement) IsZero() bool {
	return !r.anyOf && len(r.keys) == 0
}

// UnmarshalJSON accepts null, a string, or an array of strings.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = NoRequirement()
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*r = NoRequirement()
			return nil
		}
		*r = RequireKey(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("access: requirement must be string or string list: %w", err)
	}
	*r = RequireAnyOf(list...)
	return nil
}

// MarshalJSON renders the requirement in its most compact form.
func (r Requirement) MarshalJSON() ([]byte, error) {
	switch len(r.keys) {
	case 0:
		if r.anyOf {
			return []byte("[]"), nil
		}
		return []byte("null"), nil
	case 1:
		return json.Marshal(r.keys[0])
	default:
		return json.Marshal(r.keys)
	}
}

// Allowed decides whether a holder of perms satisfies req. Superusers always
// pass.
func Allowed(req Requirement, perms PermissionSet, superuser bool) bool {
	if superuser {
		return true
	}
	if req.IsZero() {
		return true
	}
	return perms.HasAny(req.keys...)
}
