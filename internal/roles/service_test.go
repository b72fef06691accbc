package roles_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/rbac"
	"github.com/socdesk/socdesk/internal/roles"
	"github.com/socdesk/socdesk/internal/shared"
)

type stubRepo struct {
	roles   map[int64]roles.Role
	members map[int64][]string
	known   map[string]bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		roles:   map[int64]roles.Role{7: {ID: 7, Name: "analyst"}},
		members: map[int64][]string{7: {"u1", "u2"}},
		known:   map[string]bool{"ticket:create": true, "ticket:assign": true},
	}
}

func (s *stubRepo) ListRoles(ctx context.Context) ([]roles.Role, error) {
	out := make([]roles.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRepo) GetRole(ctx context.Context, id int64) (roles.Role, error) {
	r, ok := s.roles[id]
	if !ok {
		return roles.Role{}, roles.ErrNotFound
	}
	return r, nil
}

func (s *stubRepo) SetPermissions(ctx context.Context, roleID int64, keys []string) error {
	r, ok := s.roles[roleID]
	if !ok {
		return roles.ErrNotFound
	}
	for _, k := range keys {
		if !s.known[k] {
			return roles.ErrInvalidInput
		}
	}
	r.Permissions = keys
	s.roles[roleID] = r
	return nil
}

func (s *stubRepo) SetHiddenNav(ctx context.Context, roleID int64, items []string) error {
	r, ok := s.roles[roleID]
	if !ok {
		return roles.ErrNotFound
	}
	r.HiddenNavItems = items
	s.roles[roleID] = r
	return nil
}

func (s *stubRepo) RoleMembers(ctx context.Context, roleID int64) ([]string, error) {
	return s.members[roleID], nil
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userIDs ...string) error {
	r.ids = append(r.ids, userIDs...)
	return nil
}

type recordingAudit struct {
	entries []shared.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func TestSetPermissionsInvalidatesMembers(t *testing.T) {
	repo := newStubRepo()
	inv := &recordingInvalidator{}
	audit := &recordingAudit{}
	svc := roles.NewService(repo, inv, audit, nil)

	role, err := svc.SetPermissions(context.Background(), "admin", 7, []string{" ticket:assign", "ticket:create", "ticket:assign", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"ticket:assign", "ticket:create"}, role.Permissions)
	assert.Equal(t, []string{"u1", "u2"}, inv.ids)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "role.permissions.set", audit.entries[0].Action)
	assert.Equal(t, "7", audit.entries[0].EntityID)
}

func TestSetPermissionsUnknownKey(t *testing.T) {
	repo := newStubRepo()
	inv := &recordingInvalidator{}
	svc := roles.NewService(repo, inv, nil, nil)

	_, err := svc.SetPermissions(context.Background(), "admin", 7, []string{"nope"})
	assert.ErrorIs(t, err, roles.ErrInvalidInput)
	assert.Empty(t, inv.ids)
}

func TestSetHiddenNavMissingRole(t *testing.T) {
	svc := roles.NewService(newStubRepo(), nil, nil, nil)
	_, err := svc.SetHiddenNav(context.Background(), "admin", 99, []string{"audit"})
	assert.ErrorIs(t, err, roles.ErrNotFound)
}

func newRouter(repo *stubRepo, p *access.Principal) http.Handler {
	h := roles.NewHandler(nil, roles.NewService(repo, nil, nil, nil), rbac.Middleware{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/roles", h.MountRoutes)
	return r
}

func editor(perms ...string) *access.Principal {
	ps := make([]access.Permission, len(perms))
	for i, k := range perms {
		ps[i] = access.Permission{Key: k}
	}
	return access.NewPrincipal(access.User{ID: "admin", Roles: []access.Role{{Name: "admin", Permissions: ps}}}, "")
}

func TestHandlerSetHiddenNav(t *testing.T) {
	repo := newStubRepo()
	router := newRouter(repo, editor(shared.PermRolesEdit))

	req := httptest.NewRequest(http.MethodPut, "/roles/7/hidden-nav", strings.NewReader(`{"hidden_nav_items":["audit","sla"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"audit", "sla"}, repo.roles[7].HiddenNavItems)
}

func TestHandlerRequiresEdit(t *testing.T) {
	router := newRouter(newStubRepo(), editor(shared.PermRolesView))

	req := httptest.NewRequest(http.MethodPut, "/roles/7/permissions", strings.NewReader(`{"permissions":["ticket:create"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router := newRouter(newStubRepo(), editor(shared.PermRolesEdit))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/roles/abc/permissions", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/roles/7/permissions", strings.NewReader(`{"permissions":["nope"]}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/roles/7/permissions", strings.NewReader(`{"extra":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
