package access

import "sort"

// PermissionSet is a deduplicated set of permission identifiers.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the provided keys, skipping empty ones.
func NewPermissionSet(keys ...string) PermissionSet {
	set := make(PermissionSet, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		set[k] = struct{}{}
	}
	return set
}

// Has reports whether key is present. Matching is exact and case-sensitive.
func (s PermissionSet) Has(key string) bool {
	if key == "" {
		return false
	}
	_, ok := s[key]
	return ok
}

// HasAny reports whether at least one key is present.
func (s PermissionSet) HasAny(keys ...string) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// HasAll reports whether every key is present.
func (s PermissionSet) HasAll(keys ...string) bool {
	for _, k := range keys {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

// Len returns the number of identifiers in the set.
func (s PermissionSet) Len() int {
	return len(s)
}

// Sorted returns the identifiers in lexical order.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BuildPermissionSet flattens the permissions of all roles into one set.
func BuildPermissionSet(roles []Role) PermissionSet {
	set := make(PermissionSet)
	for _, role := range roles {
		for _, perm := range role.Permissions {
			if id := perm.Ident(); id != "" {
				set[id] = struct{}{}
			}
		}
	}
	return set
}

// HiddenNavItems returns the union of every role's hidden navigation ids.
func HiddenNavItems(roles []Role) map[string]struct{} {
	hidden := make(map[string]struct{})
	for _, role := range roles {
		for _, id := range role.HiddenNavItems {
			if id == "" {
				continue
			}
			hidden[id] = struct{}{}
		}
	}
	return hidden
}
