package shared

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/socdesk/socdesk/internal/access"
)

// DefaultNavigation is the menu served when no override file is configured.
func DefaultNavigation() []access.NavigationEntry {
	return []access.NavigationEntry{
		{ID: "dashboard", Label: "Dashboard", Path: "/"},
		{ID: "tickets", Label: "Tickets", Path: "/tickets", Required: access.RequireAnyOf(TicketReadScopes()...)},
		{ID: "kanban", Label: "Board", Path: "/tickets/board", Required: access.RequireAnyOf(TicketReadScopes()...)},
		{ID: "assets", Label: "Assets", Path: "/assets", Required: access.RequireKey(PermAssetRead)},
		{ID: "sla", Label: "SLA", Path: "/sla", Required: access.RequireKey(PermSLAView)},
		{ID: "audit", Label: "Audit Log", Path: "/audit", Required: access.RequireKey(PermAuditRead)},
		{ID: "admin", Label: "Administration", Children: []access.NavigationEntry{
			{ID: "users", Label: "Users", Path: "/admin/users", Required: access.RequireAnyOf(PermUsersView, PermUsersEdit)},
			{ID: "roles", Label: "Roles", Path: "/admin/roles", Required: access.RequireAnyOf(PermRolesView, PermRolesEdit)},
			{ID: "permissions", Label: "Permissions", Path: "/admin/permissions", Required: access.RequireKey(PermPermissionsView)},
			{ID: "groups", Label: "Groups", Path: "/admin/groups", Required: access.RequireKey(PermGroupsView)},
		}},
		{ID: "docs", Label: "Runbooks", Path: "https://docs.socdesk.local", External: true},
	}
}

// LoadNavigation reads a navigation table from a JSON file. An empty path
// returns DefaultNavigation.
func LoadNavigation(path string) ([]access.NavigationEntry, error) {
	if path == "" {
		return DefaultNavigation(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("navigation: read %s: %w", path, err)
	}
	var items []access.NavigationEntry
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("navigation: decode %s: %w", path, err)
	}
	if err := validateNavigation(items, map[string]struct{}{}); err != nil {
		return nil, err
	}
	return items, nil
}

func validateNavigation(items []access.NavigationEntry, seen map[string]struct{}) error {
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("navigation: entry %q has no id", item.Label)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("navigation: duplicate id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
		if err := validateNavigation(item.Children, seen); err != nil {
			return err
		}
	}
	return nil
}
