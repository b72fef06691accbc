package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func chain() []Group {
	return []Group{
		{ID: "A", Name: "Security Division"},
		{ID: "B", ParentID: ptr("A"), Name: "SOC"},
		{ID: "C", ParentID: ptr("B"), Name: "Tier 1"},
	}
}

func TestScopeGroupsDescendants(t *testing.T) {
	groups := chain()
	assert.Equal(t, []string{"A", "B", "C"}, GroupIDs(ScopeGroups(groups, ptr("A"), false)))
	assert.Equal(t, []string{"B", "C"}, GroupIDs(ScopeGroups(groups, ptr("B"), false)))
	assert.Equal(t, []string{"C"}, GroupIDs(ScopeGroups(groups, ptr("C"), false)))
}

func TestScopeGroupsSuperuserIdentity(t *testing.T) {
	groups := chain()
	assert.Equal(t, groups, ScopeGroups(groups, ptr("C"), true))
	assert.Equal(t, groups, ScopeGroups(groups, nil, true))
}

func TestScopeGroupsNoHome(t *testing.T) {
	got := ScopeGroups(chain(), nil, false)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScopeGroupsUnknownHome(t *testing.T) {
	assert.Empty(t, ScopeGroups(chain(), ptr("Z"), false))
}

func TestScopeGroupsCycleTerminates(t *testing.T) {
	groups := []Group{
		{ID: "A", ParentID: ptr("B")},
		{ID: "B", ParentID: ptr("A")},
	}
	assert.Equal(t, []string{"A", "B"}, GroupIDs(ScopeGroups(groups, ptr("A"), false)))
	assert.Equal(t, []string{"B", "A"}, GroupIDs(ScopeGroups(groups, ptr("B"), false)))
}

func TestScopeGroupsSelfParent(t *testing.T) {
	groups := []Group{{ID: "A", ParentID: ptr("A")}, {ID: "B", ParentID: ptr("A")}}
	assert.Equal(t, []string{"A", "B"}, GroupIDs(ScopeGroups(groups, ptr("A"), false)))
}

func TestScopeGroupsDanglingParent(t *testing.T) {
	groups := []Group{
		{ID: "A"},
		{ID: "X", ParentID: ptr("missing")},
		{ID: "Y", ParentID: ptr("X")},
		{ID: "B", ParentID: ptr("A")},
	}
	assert.Equal(t, []string{"A", "B"}, GroupIDs(ScopeGroups(groups, ptr("A"), false)))
	assert.Equal(t, []string{"X", "Y"}, GroupIDs(ScopeGroups(groups, ptr("X"), false)))
}

func TestScopeGroupsBreadthFirstInputOrder(t *testing.T) {
	groups := []Group{
		{ID: "root"},
		{ID: "b", ParentID: ptr("root")},
		{ID: "a", ParentID: ptr("root")},
		{ID: "b1", ParentID: ptr("b")},
		{ID: "a1", ParentID: ptr("a")},
	}
	assert.Equal(t, []string{"root", "b", "a", "b1", "a1"}, GroupIDs(ScopeGroups(groups, ptr("root"), false)))
}

func TestScopeGroupsNoDuplicates(t *testing.T) {
	groups := []Group{
		{ID: "A"},
		{ID: "B", ParentID: ptr("A")},
		{ID: "C", ParentID: ptr("B")},
		{ID: "A", ParentID: ptr("C")},
	}
	got := GroupIDs(ScopeGroups(groups, ptr("A"), false))
	seen := map[string]int{}
	for _, id := range got {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "group %s repeated", id)
	}
}

func TestContainsGroup(t *testing.T) {
	assert.True(t, ContainsGroup(chain(), "B"))
	assert.False(t, ContainsGroup(chain(), "Z"))
}
