package groups_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/groups"
	"github.com/socdesk/socdesk/internal/rbac"
	"github.com/socdesk/socdesk/internal/shared"
)

func ptr(s string) *string { return &s }

type stubRepo []groups.Group

func (s stubRepo) ListGroups(ctx context.Context) ([]groups.Group, error) {
	return s, nil
}

func (s stubRepo) GetGroup(ctx context.Context, id string) (groups.Group, error) {
	for _, g := range s {
		if g.ID == id {
			return g, nil
		}
	}
	return groups.Group{}, groups.ErrNotFound
}

func tree() stubRepo {
	return stubRepo{
		{ID: "A", Name: "Security Division"},
		{ID: "B", ParentID: ptr("A"), Name: "SOC", Description: "operations"},
		{ID: "C", ParentID: ptr("B"), Name: "Tier 1"},
		{ID: "D", Name: "IT"},
	}
}

func TestAssignable(t *testing.T) {
	svc := groups.NewService(tree())
	ctx := context.Background()

	soc := access.NewPrincipal(access.User{ID: "u1", GroupID: ptr("B")}, "SOC")
	got, err := svc.Assignable(ctx, soc)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "operations", got[0].Description)
	ids, err := svc.AssignableIDs(ctx, soc)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, ids)
	nodes, err := svc.AssignableNodes(ctx, soc)
	require.NoError(t, err)
	assert.True(t, access.ContainsGroup(nodes, "C"))
	assert.False(t, access.ContainsGroup(nodes, "A"))

	root := access.NewPrincipal(access.User{ID: "root", IsSuperuser: true}, "")
	ids, err = svc.AssignableIDs(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids)

	homeless := access.NewPrincipal(access.User{ID: "u2"}, "")
	ids, err = svc.AssignableIDs(ctx, homeless)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAssignableEndpoint(t *testing.T) {
	h := groups.NewHandler(nil, groups.NewService(tree()), rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/groups", h.MountRoutes)

	req := httptest.NewRequest(http.MethodGet, "/groups/assignable", nil)
	p := access.NewPrincipal(access.User{ID: "u1", GroupID: ptr("C")}, "Tier 1")
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Groups []groups.Group `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Groups, 1)
	assert.Equal(t, "C", body.Groups[0].ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/", nil).WithContext(req.Context()))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
