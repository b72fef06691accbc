package access

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUserAcceptsBothRoleShapes(t *testing.T) {
	payload := `{
		"id": "42",
		"is_superuser": false,
		"group_id": "soc",
		"roles": [
			{"role": {"name": "analyst", "permissions": [{"key": "ticket:read:own"}, {"name": "ticket:create"}], "hidden_nav_items": ["audit"]}},
			{"name": "viewer", "permissions": ["sla:view", {"key": "", "name": ""}], "hidden_nav_items": [" assets ", ""]}
		]
	}`
	var wire WireUser
	require.NoError(t, json.Unmarshal([]byte(payload), &wire))

	user := NormalizeUser(wire)
	require.NotNil(t, user.GroupID)
	assert.Equal(t, "soc", *user.GroupID)
	require.Len(t, user.Roles, 2)
	assert.Equal(t, "analyst", user.Roles[0].Name)
	assert.Equal(t, []string{"audit"}, user.Roles[0].HiddenNavItems)
	assert.Equal(t, []Permission{{Key: "sla:view"}}, user.Roles[1].Permissions)
	assert.Equal(t, []string{"assets"}, user.Roles[1].HiddenNavItems)

	p := NewPrincipal(user, "SOC")
	assert.Equal(t, []string{"sla:view", "ticket:create", "ticket:read:own"}, p.Permissions.Sorted())
	assert.Contains(t, p.Hidden, "audit")
	assert.Contains(t, p.Hidden, "assets")
}

func TestNormalizeUserBlankGroup(t *testing.T) {
	blank := "  "
	user := NormalizeUser(WireUser{ID: "1", GroupID: &blank})
	assert.Nil(t, user.GroupID)
	assert.Empty(t, BuildPermissionSet(user.Roles))
}

func TestNilPrincipalIsDenied(t *testing.T) {
	var p *Principal
	assert.True(t, p.Can(NoRequirement()))
	assert.False(t, p.Can(RequireKey("x")))
	assert.Empty(t, p.ScopeGroups(chain()))
	assert.False(t, p.Actor().IsSuperuser)
}
