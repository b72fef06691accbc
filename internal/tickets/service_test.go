package tickets_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/platform/httpx"
	"github.com/socdesk/socdesk/internal/shared"
	"github.com/socdesk/socdesk/internal/tickets"
	"github.com/socdesk/socdesk/internal/users"
	"github.com/socdesk/socdesk/jobs"
)

func ptr(s string) *string { return &s }

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type memRepo struct {
	mu         sync.Mutex
	tickets    map[string]tickets.Ticket
	calls      []string
	commentErr error
}

func (m *memRepo) GetTicket(ctx context.Context, id string) (tickets.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return tickets.Ticket{}, tickets.ErrNotFound
	}
	return t, nil
}

func (m *memRepo) ListTickets(ctx context.Context, q tickets.ListQuery) ([]tickets.Ticket, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tickets.Ticket
	for _, id := range []string{"t1", "t2", "t3", "t4"} {
		t, ok := m.tickets[id]
		if !ok {
			continue
		}
		if q.Status != nil && t.Status != *q.Status {
			continue
		}
		inGroup := false
		for _, g := range q.GroupIDs {
			if t.GroupID != nil && *t.GroupID == g {
				inGroup = true
			}
		}
		own := t.CreatedByID == q.UserID || (t.AssignedToID != nil && *t.AssignedToID == q.UserID)
		if q.All || inGroup || own {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) AppendComment(ctx context.Context, ticketID, authorID, body string, internal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "comment:"+body)
	return m.commentErr
}

func (m *memRepo) UpdateStatus(ctx context.Context, ticketID, actorID string, from, to access.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "status:"+string(to))
	t := m.tickets[ticketID]
	if t.Status != from {
		return tickets.ErrStale
	}
	t.Status = to
	m.tickets[ticketID] = t
	return nil
}

func (m *memRepo) AssignGroup(ctx context.Context, ticketID, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tickets[ticketID]
	t.GroupID = ptr(groupID)
	m.tickets[ticketID] = t
	return nil
}

func (m *memRepo) AssignUser(ctx context.Context, ticketID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tickets[ticketID]
	t.AssignedToID = ptr(userID)
	m.tickets[ticketID] = t
	return nil
}

type scoper map[string][]string

func (s scoper) AssignableNodes(ctx context.Context, p *access.Principal) ([]access.Group, error) {
	ids := []string{"hq", "soc", "t1", "it"}
	if !p.User.IsSuperuser {
		if p.User.GroupID == nil {
			return []access.Group{}, nil
		}
		ids = s[*p.User.GroupID]
	}
	out := make([]access.Group, len(ids))
	for i, id := range ids {
		out[i] = access.Group{ID: id}
	}
	return out, nil
}

type userDir map[string]users.User

func (d userDir) FindByID(ctx context.Context, id string) (users.User, error) {
	u, ok := d[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

type auditLog struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *auditLog) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

type jobQueue struct {
	payloads []jobs.TicketLifecyclePayload
}

func (q *jobQueue) EnqueueTicketLifecycle(ctx context.Context, payload jobs.TicketLifecyclePayload) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

type idemStore struct {
	claimed  map[string]bool
	released []string
}

func (s *idemStore) Claim(ctx context.Context, key, scope string) error {
	if s.claimed[key+"|"+scope] {
		return shared.ErrIdempotencyConflict
	}
	s.claimed[key+"|"+scope] = true
	return nil
}

func (s *idemStore) Release(ctx context.Context, key, scope string) error {
	delete(s.claimed, key+"|"+scope)
	s.released = append(s.released, key)
	return nil
}

type fixture struct {
	svc    *tickets.Service
	repo   *memRepo
	audit  *auditLog
	queue  *jobQueue
	idem   *idemStore
	redis  *miniredis.Miniredis
	policy access.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	deadline := fixedNow.Add(-time.Hour)
	repo := &memRepo{tickets: map[string]tickets.Ticket{
		"t1": {ID: "t1", Status: access.StatusOpen, CreatedByID: "alice", GroupID: ptr("t1"), CreatedAt: fixedNow.Add(-3 * time.Hour), SLADeadline: &deadline},
		"t2": {ID: "t2", Status: access.StatusInProgress, CreatedByID: "bob", GroupID: ptr("soc")},
		"t3": {ID: "t3", Status: access.StatusClosed, CreatedByID: "alice", GroupID: ptr("t1")},
		"t4": {ID: "t4", Status: access.StatusPending, CreatedByID: "carol", GroupID: ptr("it")},
	}}
	f := &fixture{
		repo:   repo,
		audit:  &auditLog{},
		queue:  &jobQueue{},
		idem:   &idemStore{claimed: map[string]bool{}},
		redis:  mr,
		policy: access.Policy{GlobalAdminGroup: "Security Division"},
	}
	f.svc = tickets.NewService(tickets.Deps{
		Repo:   repo,
		Groups: scoper{"soc": {"soc", "t1"}, "t1": {"t1"}, "hq": {"hq", "soc", "t1"}},
		Users: userDir{
			"dave": {ID: "dave", IsActive: true, GroupID: ptr("t1")},
			"erin": {ID: "erin", IsActive: true, GroupID: ptr("it")},
			"gone": {ID: "gone", IsActive: false, GroupID: ptr("t1")},
		},
		Locker:      shared.NewRedisLocker(client),
		Idempotency: f.idem,
		Audit:       f.audit,
		Jobs:        f.queue,
		Policy:      f.policy,
		Now:         func() time.Time { return fixedNow },
	})
	return f
}

func principal(id, groupID, groupName string, perms ...string) *access.Principal {
	ps := make([]access.Permission, len(perms))
	for i, k := range perms {
		ps[i] = access.Permission{Key: k}
	}
	var gid *string
	if groupID != "" {
		gid = ptr(groupID)
	}
	return access.NewPrincipal(access.User{ID: id, GroupID: gid, Roles: []access.Role{{Name: "r", Permissions: ps}}}, groupName)
}

func TestChangeStatusTerminalRecordsJustificationFirst(t *testing.T) {
	f := newFixture(t)
	alice := principal("alice", "t1", "Tier 1")

	got, err := f.svc.ChangeStatus(context.Background(), alice, "t1", "", tickets.ChangeStatusInput{Status: "resolved", Justification: " patched host "})
	require.NoError(t, err)
	assert.Equal(t, access.StatusResolved, got.Status)
	assert.Equal(t, []string{"comment:patched host", "status:resolved"}, f.repo.calls)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "ticket.status.change", f.audit.entries[0].Action)
	assert.Equal(t, "patched host", f.audit.entries[0].Meta["justification"])

	require.Len(t, f.queue.payloads, 1)
	assert.Equal(t, "resolved", f.queue.payloads[0].To)
	assert.True(t, f.queue.payloads[0].SLABreached)
}

func TestChangeStatusRequiresJustification(t *testing.T) {
	f := newFixture(t)
	alice := principal("alice", "t1", "Tier 1")

	_, err := f.svc.ChangeStatus(context.Background(), alice, "t1", "", tickets.ChangeStatusInput{Status: "closed"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.ErrorIs(t, err, access.ErrJustificationRequired)
	assert.Empty(t, f.repo.calls)
	assert.Empty(t, f.queue.payloads)
}

func TestChangeStatusCommentFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	f.repo.commentErr = errors.New("db down")
	alice := principal("alice", "t1", "Tier 1")

	_, err := f.svc.ChangeStatus(context.Background(), alice, "t1", "", tickets.ChangeStatusInput{Status: "closed", Justification: "dup"})
	require.Error(t, err)
	assert.Equal(t, []string{"comment:dup"}, f.repo.calls)
	assert.Equal(t, access.StatusOpen, f.repo.tickets["t1"].Status)
	assert.Empty(t, f.audit.entries)
}

func TestChangeStatusNonTerminalSkipsLifecycle(t *testing.T) {
	f := newFixture(t)
	alice := principal("alice", "t1", "Tier 1")

	_, err := f.svc.ChangeStatus(context.Background(), alice, "t1", "", tickets.ChangeStatusInput{Status: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, []string{"status:in_progress"}, f.repo.calls)
	assert.Empty(t, f.queue.payloads)
}

func TestChangeStatusGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := principal("alice", "t1", "Tier 1")
	_, err := f.svc.ChangeStatus(ctx, alice, "t3", "", tickets.ChangeStatusInput{Status: "open"})
	assert.ErrorIs(t, err, httpx.ErrForbidden, "creator cannot reopen a closed ticket")

	lead := principal("lead", "soc", "SOC", shared.PermTicketReadGroup, shared.PermTicketAssign)
	_, err = f.svc.ChangeStatus(ctx, lead, "t2", "", tickets.ChangeStatusInput{Status: "pending"})
	assert.ErrorIs(t, err, httpx.ErrForbidden, "assign permission does not grant state management")

	_, err = f.svc.ChangeStatus(ctx, lead, "t4", "", tickets.ChangeStatusInput{Status: "open"})
	assert.ErrorIs(t, err, httpx.ErrNotFound, "tickets outside scope are hidden")

	admin := principal("root", "hq", "Security Division")
	_, err = f.svc.ChangeStatus(ctx, admin, "t3", "", tickets.ChangeStatusInput{Status: "open"})
	assert.NoError(t, err, "global admin group manages terminal tickets")
}

func TestChangeStatusLockHeld(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.redis.Set(shared.TicketLockKey("t1"), "other"))

	_, err := f.svc.ChangeStatus(context.Background(), principal("alice", "t1", ""), "t1", "", tickets.ChangeStatusInput{Status: "pending"})
	assert.ErrorIs(t, err, tickets.ErrBusy)
	assert.ErrorIs(t, err, httpx.ErrConflict)
	assert.Empty(t, f.repo.calls)
}

func TestChangeStatusIdempotency(t *testing.T) {
	f := newFixture(t)
	alice := principal("alice", "t1", "")
	ctx := context.Background()

	_, err := f.svc.ChangeStatus(ctx, alice, "t1", "k1", tickets.ChangeStatusInput{Status: "pending"})
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, alice, "t1", "k1", tickets.ChangeStatusInput{Status: "in_progress"})
	assert.ErrorIs(t, err, tickets.ErrDuplicateRequest)

	_, err = f.svc.ChangeStatus(ctx, alice, "t1", "k2", tickets.ChangeStatusInput{Status: "closed"})
	require.Error(t, err)
	assert.Equal(t, []string{"k2"}, f.idem.released)
	_, err = f.svc.ChangeStatus(ctx, alice, "t1", "k2", tickets.ChangeStatusInput{Status: "closed", Justification: "done"})
	assert.NoError(t, err)
}

func TestAssignGroupScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := principal("lead", "soc", "SOC", shared.PermTicketReadGroup, shared.PermTicketAssign)

	_, err := f.svc.AssignGroup(ctx, lead, "t2", "", "it")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	got, err := f.svc.AssignGroup(ctx, lead, "t2", "", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", *got.GroupID)

	alice := principal("alice", "t1", "")
	_, err = f.svc.AssignGroup(ctx, alice, "t1", "", "t1")
	assert.ErrorIs(t, err, httpx.ErrForbidden, "creators cannot reroute")
}

func TestAssignUserScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := principal("lead", "soc", "SOC", shared.PermTicketReadGroup, shared.PermTicketAssign)

	_, err := f.svc.AssignUser(ctx, lead, "t2", "", "erin")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = f.svc.AssignUser(ctx, lead, "t2", "", "ghost")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.AssignUser(ctx, lead, "t2", "", "gone")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	got, err := f.svc.AssignUser(ctx, lead, "t2", "", "dave")
	require.NoError(t, err)
	assert.Equal(t, "dave", *got.AssignedToID)

	root := access.NewPrincipal(access.User{ID: "root", IsSuperuser: true}, "")
	_, err = f.svc.AssignUser(ctx, root, "t2", "", "erin")
	assert.NoError(t, err)
	assert.Len(t, f.audit.entries, 2)
}

func TestBoardColumns(t *testing.T) {
	f := newFixture(t)
	lead := principal("lead", "soc", "SOC", shared.PermTicketReadGroup)

	columns, err := f.svc.Board(context.Background(), lead)
	require.NoError(t, err)
	require.Len(t, columns, 5)
	statuses := make([]access.Status, len(columns))
	for i, c := range columns {
		statuses[i] = c.Status
	}
	assert.Equal(t, access.Statuses(), statuses)
	assert.Len(t, columns[0].Tickets, 1)
	assert.Len(t, columns[1].Tickets, 1)
	assert.Empty(t, columns[2].Tickets, "it group is out of scope")
	assert.Len(t, columns[4].Tickets, 1)
	require.NotNil(t, columns[0].Tickets[0].SLA)
	assert.True(t, columns[0].Tickets[0].SLA.Breached)
}

func TestListVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own, page, err := f.svc.List(ctx, principal("carol", "", ""), tickets.ListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "t4", own[0].ID)
	assert.Equal(t, 1, page.Total)

	global, _, err := f.svc.List(ctx, principal("x", "", "", shared.PermTicketReadGlobal), tickets.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, global, 4)

	closed := access.StatusClosed
	filtered, _, err := f.svc.List(ctx, principal("x", "", "", shared.PermTicketReadGlobal), tickets.ListFilter{Status: &closed})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "t3", filtered[0].ID)
}

func TestCapabilitiesEndpoint(t *testing.T) {
	f := newFixture(t)
	h := tickets.NewHandler(nil, f.svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := principal("alice", "t1", "Tier 1")
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/tickets", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/t1/capabilities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"can_manage_state":true,"can_assign_group":false,"can_assign_user":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tickets/t1/status", strings.NewReader(`{"status":"closed"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tickets/t1/status", strings.NewReader(`{"status":"archived"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tickets/t1/status", strings.NewReader(`{"status":"closed","justification":"benign"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/board", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"t3"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"t1"`)
	assert.NotContains(t, rec.Body.String(), `"id":"t4"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/t3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tickets/t4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
