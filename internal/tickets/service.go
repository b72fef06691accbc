package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/platform/httpx"
	"github.com/socdesk/socdesk/internal/shared"
	"github.com/socdesk/socdesk/internal/users"
	"github.com/socdesk/socdesk/jobs"
)

var (
	// ErrNotFound is returned for missing tickets and tickets the caller
	// cannot see.
	ErrNotFound = fmt.Errorf("tickets: %w", httpx.ErrNotFound)
	// ErrForbidden is returned when a gate denies the change.
	ErrForbidden = fmt.Errorf("tickets: %w", httpx.ErrForbidden)
	// ErrStale is returned when the ticket changed underneath the request.
	ErrStale = fmt.Errorf("tickets: status changed concurrently: %w", httpx.ErrConflict)
	// ErrBusy is returned while another mutation holds the ticket lock.
	ErrBusy = fmt.Errorf("tickets: ticket is being updated: %w", httpx.ErrConflict)
	// ErrDuplicateRequest is returned for a replayed idempotency key.
	ErrDuplicateRequest = fmt.Errorf("tickets: %w", httpx.ErrDuplicate)
)

const (
	lockTTL      = 10 * time.Second
	boardLimit   = 500
	ticketEntity = "ticket"
)

// RepositoryPort defines data access methods for tickets.
type RepositoryPort interface {
	GetTicket(ctx context.Context, id string) (Ticket, error)
	ListTickets(ctx context.Context, q ListQuery) ([]Ticket, int, error)
	AppendComment(ctx context.Context, ticketID, authorID, body string, internal bool) error
	UpdateStatus(ctx context.Context, ticketID, actorID string, from, to access.Status) error
	AssignGroup(ctx context.Context, ticketID, groupID string) error
	AssignUser(ctx context.Context, ticketID, userID string) error
}

// GroupScoper returns the groups a principal may route work to.
type GroupScoper interface {
	AssignableNodes(ctx context.Context, p *access.Principal) ([]access.Group, error)
}

// UserLookup resolves assignees.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (users.User, error)
}

// LifecycleEnqueuer schedules background processing of terminal transitions.
type LifecycleEnqueuer interface {
	EnqueueTicketLifecycle(ctx context.Context, payload jobs.TicketLifecyclePayload) error
}

// Deps collects the collaborators of Service. Locker, Idempotency, Audit and
// Jobs are optional.
type Deps struct {
	Repo        RepositoryPort
	Groups      GroupScoper
	Users       UserLookup
	Locker      shared.Locker
	Idempotency shared.IdempotencyGuard
	Audit       shared.AuditRecorder
	Jobs        LifecycleEnqueuer
	Policy      access.Policy
	Logger      *slog.Logger
	Now         func() time.Time
}

// Service applies access gates to ticket reads and mutations.
type Service struct {
	Deps
}

// NewService builds Service instance.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{Deps: deps}
}

// List returns the tickets visible to p.
func (s *Service) List(ctx context.Context, p *access.Principal, filter ListFilter) ([]Ticket, shared.Pagination, error) {
	q, err := s.visibility(ctx, p)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)
	q.Status = filter.Status
	q.Limit = page.PerPage
	q.Offset = page.Offset()
	items, total, err := s.Repo.ListTickets(ctx, q)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	now := s.Now()
	for i := range items {
		items[i] = withSLA(items[i], now)
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Board groups the visible tickets into one column per status, in status
// order.
func (s *Service) Board(ctx context.Context, p *access.Principal) ([]Column, error) {
	q, err := s.visibility(ctx, p)
	if err != nil {
		return nil, err
	}
	q.Limit = boardLimit
	items, _, err := s.Repo.ListTickets(ctx, q)
	if err != nil {
		return nil, err
	}
	statuses := access.Statuses()
	index := make(map[access.Status]int, len(statuses))
	columns := make([]Column, len(statuses))
	for i, st := range statuses {
		index[st] = i
		columns[i] = Column{Status: st, Tickets: []Ticket{}}
	}
	now := s.Now()
	for _, t := range items {
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		columns[i].Tickets = append(columns[i].Tickets, withSLA(t, now))
	}
	return columns, nil
}

// Get returns one ticket when p may see it.
func (s *Service) Get(ctx context.Context, p *access.Principal, id string) (Ticket, error) {
	t, _, err := s.load(ctx, p, id)
	if err != nil {
		return Ticket{}, err
	}
	return withSLA(t, s.Now()), nil
}

// Capabilities evaluates the ticket gates of p on ticket id.
func (s *Service) Capabilities(ctx context.Context, p *access.Principal, id string) (access.TicketCapabilities, error) {
	_, caps, err := s.load(ctx, p, id)
	return caps, err
}

// ChangeStatus moves ticket id to the target status. Entering resolved or
// closed requires a justification, which is stored as an internal comment
// before the status changes.
func (s *Service) ChangeStatus(ctx context.Context, p *access.Principal, id, idemKey string, in ChangeStatusInput) (Ticket, error) {
	var out Ticket
	err := s.guarded(ctx, id, idemKey, "ticket.status", func() error {
		t, caps, err := s.load(ctx, p, id)
		if err != nil {
			return err
		}
		if !caps.CanManageState {
			return fmt.Errorf("%w: cannot change status", ErrForbidden)
		}
		plan, err := access.PlanTransition(t.gate(), in.Status, in.Justification)
		if err != nil {
			return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
		}
		if err := plan.Execute(ctx, mutator{repo: s.Repo, actorID: p.User.ID}); err != nil {
			return err
		}

		meta := map[string]any{"from": string(plan.From), "to": string(plan.To)}
		if plan.Comment != nil {
			meta["justification"] = plan.Comment.Body
		}
		s.audit(ctx, p, "ticket.status.change", id, meta)

		if plan.To.Terminal() {
			s.enqueueLifecycle(ctx, p, t, plan)
		}
		out, err = s.Repo.GetTicket(ctx, id)
		return err
	})
	if err != nil {
		return Ticket{}, err
	}
	return withSLA(out, s.Now()), nil
}

// AssignGroup routes ticket id to groupID, which must be within the scoped
// groups of p.
func (s *Service) AssignGroup(ctx context.Context, p *access.Principal, id, idemKey, groupID string) (Ticket, error) {
	var out Ticket
	err := s.guarded(ctx, id, idemKey, "ticket.group", func() error {
		_, caps, err := s.load(ctx, p, id)
		if err != nil {
			return err
		}
		if !caps.CanAssignGroup {
			return fmt.Errorf("%w: cannot assign group", ErrForbidden)
		}
		scoped, err := s.Groups.AssignableNodes(ctx, p)
		if err != nil {
			return err
		}
		if !access.ContainsGroup(scoped, groupID) {
			return fmt.Errorf("%w: group outside assignable scope", ErrForbidden)
		}
		if err := s.Repo.AssignGroup(ctx, id, groupID); err != nil {
			return err
		}
		s.audit(ctx, p, "ticket.group.assign", id, map[string]any{"group_id": groupID})
		out, err = s.Repo.GetTicket(ctx, id)
		return err
	})
	if err != nil {
		return Ticket{}, err
	}
	return withSLA(out, s.Now()), nil
}

// AssignUser sets the assignee of ticket id. Unless p is a superuser the
// assignee must belong to one of p's scoped groups.
func (s *Service) AssignUser(ctx context.Context, p *access.Principal, id, idemKey, userID string) (Ticket, error) {
	var out Ticket
	err := s.guarded(ctx, id, idemKey, "ticket.assignee", func() error {
		_, caps, err := s.load(ctx, p, id)
		if err != nil {
			return err
		}
		if !caps.CanAssignUser {
			return fmt.Errorf("%w: cannot assign user", ErrForbidden)
		}
		assignee, err := s.Users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				return fmt.Errorf("%w: unknown assignee", httpx.ErrValidation)
			}
			return err
		}
		if !assignee.IsActive {
			return fmt.Errorf("%w: assignee is inactive", httpx.ErrValidation)
		}
		if !p.User.IsSuperuser {
			scoped, err := s.Groups.AssignableNodes(ctx, p)
			if err != nil {
				return err
			}
			if assignee.GroupID == nil || !access.ContainsGroup(scoped, *assignee.GroupID) {
				return fmt.Errorf("%w: assignee outside assignable scope", ErrForbidden)
			}
		}
		if err := s.Repo.AssignUser(ctx, id, userID); err != nil {
			return err
		}
		s.audit(ctx, p, "ticket.assignee.assign", id, map[string]any{"user_id": userID})
		out, err = s.Repo.GetTicket(ctx, id)
		return err
	})
	if err != nil {
		return Ticket{}, err
	}
	return withSLA(out, s.Now()), nil
}

// load fetches ticket id, hides it when p cannot see it and evaluates the
// gates.
func (s *Service) load(ctx context.Context, p *access.Principal, id string) (Ticket, access.TicketCapabilities, error) {
	if p == nil {
		return Ticket{}, access.TicketCapabilities{}, httpx.ErrUnauthorized
	}
	t, err := s.Repo.GetTicket(ctx, id)
	if err != nil {
		return Ticket{}, access.TicketCapabilities{}, err
	}
	q, err := s.visibility(ctx, p)
	if err != nil {
		return Ticket{}, access.TicketCapabilities{}, err
	}
	if !visible(t, q) {
		return Ticket{}, access.TicketCapabilities{}, ErrNotFound
	}
	return t, access.EvaluateTicket(t.gate(), p.Actor(), s.Policy), nil
}

// visibility resolves which tickets p may read. Superusers, global admins
// and holders of the global read permission see everything; the group read
// permission opens the scoped groups; own tickets are always visible.
func (s *Service) visibility(ctx context.Context, p *access.Principal) (ListQuery, error) {
	if p == nil {
		return ListQuery{}, httpx.ErrUnauthorized
	}
	q := ListQuery{UserID: p.User.ID}
	actor := p.Actor()
	if access.IsGlobalAdmin(actor, s.Policy) || p.Permissions.Has(shared.PermTicketReadGlobal) {
		q.All = true
		return q, nil
	}
	if p.Permissions.Has(shared.PermTicketReadGroup) {
		scoped, err := s.Groups.AssignableNodes(ctx, p)
		if err != nil {
			return ListQuery{}, err
		}
		q.GroupIDs = access.GroupIDs(scoped)
	}
	return q, nil
}

func visible(t Ticket, q ListQuery) bool {
	if q.All {
		return true
	}
	if q.UserID != "" && (t.CreatedByID == q.UserID || (t.AssignedToID != nil && *t.AssignedToID == q.UserID)) {
		return true
	}
	return t.GroupID != nil && slices.Contains(q.GroupIDs, *t.GroupID)
}

// guarded serialises mutations of ticket id and enforces the idempotency key
// when one is supplied.
func (s *Service) guarded(ctx context.Context, id, idemKey, scope string, fn func() error) error {
	if s.Idempotency == nil || idemKey == "" {
		return s.locked(ctx, id, fn)
	}
	scope = scope + ":" + id
	if err := s.Idempotency.Claim(ctx, idemKey, scope); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return ErrDuplicateRequest
		}
		return err
	}
	err := s.locked(ctx, id, fn)
	if err != nil {
		if rerr := s.Idempotency.Release(context.WithoutCancel(ctx), idemKey, scope); rerr != nil {
			s.Logger.Warn("release idempotency key", slog.Any("error", rerr))
		}
	}
	return err
}

func (s *Service) locked(ctx context.Context, id string, fn func() error) error {
	if s.Locker == nil {
		return fn()
	}
	release, err := s.Locker.Acquire(ctx, shared.TicketLockKey(id), lockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return ErrBusy
		}
		return err
	}
	defer release()
	return fn()
}

func (s *Service) audit(ctx context.Context, p *access.Principal, action, id string, meta map[string]any) {
	if s.Audit == nil {
		return
	}
	entry := shared.AuditLog{ActorID: p.User.ID, Action: action, Entity: ticketEntity, EntityID: id, Meta: meta, At: s.Now()}
	if err := s.Audit.Record(ctx, entry); err != nil {
		s.Logger.Warn("ticket audit", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) enqueueLifecycle(ctx context.Context, p *access.Principal, t Ticket, plan access.TransitionPlan) {
	if s.Jobs == nil {
		return
	}
	now := s.Now()
	payload := jobs.TicketLifecyclePayload{
		TicketID:    t.ID,
		From:        string(plan.From),
		To:          string(plan.To),
		ActorID:     p.User.ID,
		SLABreached: t.SLADeadline != nil && now.After(*t.SLADeadline),
		At:          now,
	}
	if err := s.Jobs.EnqueueTicketLifecycle(ctx, payload); err != nil {
		s.Logger.Warn("enqueue ticket lifecycle", slog.String("ticket_id", t.ID), slog.Any("error", err))
	}
}

// mutator adapts the repository to access.TicketMutator for one actor.
type mutator struct {
	repo    RepositoryPort
	actorID string
}

func (m mutator) AppendInternalComment(ctx context.Context, ticketID, body string) error {
	return m.repo.AppendComment(ctx, ticketID, m.actorID, body, true)
}

func (m mutator) UpdateStatus(ctx context.Context, ticketID string, from, to access.Status) error {
	return m.repo.UpdateStatus(ctx, ticketID, m.actorID, from, to)
}
