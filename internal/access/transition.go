package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusPending    Status = "pending"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every status in board order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusPending, StatusResolved, StatusClosed}
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	for _, known := range Statuses() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// Terminal reports whether the status is resolved or closed.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

var (
	// ErrUnknownStatus indicates a status outside the lifecycle enum.
	ErrUnknownStatus = errors.New("access: unknown ticket status")
	// ErrNoTransition indicates the ticket already has the target status.
	ErrNoTransition = errors.New("access: ticket already in target status")
	// ErrJustificationRequired blocks terminal transitions without a reason.
	ErrJustificationRequired = errors.New("access: justification required for terminal status")
	// ErrNilMutator indicates a plan executed without a mutator.
	ErrNilMutator = errors.New("access: nil ticket mutator")
)

// DefaultAssignPermission is the capability that lets a user reassign tickets.
const DefaultAssignPermission = "ticket:assign"

// Policy holds deployment specific knobs for the ticket gates.
type Policy struct {
	// GlobalAdminGroup names the organisational unit whose members act as
	// global administrators. Empty disables the rule.
	GlobalAdminGroup string
	// AssignPermission overrides DefaultAssignPermission.
	AssignPermission string
}

func (p Policy) assignPermission() string {
	if p.AssignPermission != "" {
		return p.AssignPermission
	}
	return DefaultAssignPermission
}

// Actor is the acting user as seen by the ticket gates.
type Actor struct {
	ID          string
	IsSuperuser bool
	Permissions PermissionSet
	GroupName   string
}

// TicketCapabilities are the independent decisions for one ticket.
type TicketCapabilities struct {
	CanManageState bool `json:"can_manage_state"`
	CanAssignGroup bool `json:"can_assign_group"`
	CanAssignUser  bool `json:"can_assign_user"`
}

// IsGlobalAdmin reports whether actor is a superuser or belongs to the
// configured global admin group.
func IsGlobalAdmin(actor Actor, policy Policy) bool {
	if actor.IsSuperuser {
		return true
	}
	return policy.GlobalAdminGroup != "" && actor.GroupName == policy.GlobalAdminGroup
}

// EvaluateTicket computes what actor may change on t.
func EvaluateTicket(t Ticket, actor Actor, policy Policy) TicketCapabilities {
	terminal := t.Status.Terminal()
	globalAdmin := IsGlobalAdmin(actor, policy)
	creator := actor.ID != "" && actor.ID == t.CreatedByID
	hasAssign := actor.IsSuperuser || actor.Permissions.Has(policy.assignPermission()) || globalAdmin

	return TicketCapabilities{
		CanManageState: globalAdmin || (creator && !terminal),
		CanAssignGroup: (hasAssign || actor.IsSuperuser) && !terminal,
		CanAssignUser:  (hasAssign || actor.IsSuperuser || creator) && !terminal,
	}
}

// InternalComment is the justification recorded before a terminal
// transition. It is never shown to requesters.
type InternalComment struct {
	Body     string
	Internal bool
}

// TransitionPlan is a validated status change.
type TransitionPlan struct {
	TicketID string
	From     Status
	To       Status
	Comment  *InternalComment
}

// PlanTransition validates moving t to the raw target status. Any status may
// move to any other; entering resolved or closed requires a non-blank
// justification.
func PlanTransition(t Ticket, to string, justification string) (TransitionPlan, error) {
	target, err := ParseStatus(to)
	if err != nil {
		return TransitionPlan{}, err
	}
	if target == t.Status {
		return TransitionPlan{}, ErrNoTransition
	}
	plan := TransitionPlan{TicketID: t.ID, From: t.Status, To: target}
	if target.Terminal() {
		reason := strings.TrimSpace(justification)
		if reason == "" {
			return TransitionPlan{}, ErrJustificationRequired
		}
		plan.Comment = &InternalComment{Body: reason, Internal: true}
	}
	return plan, nil
}

// TicketMutator applies a plan. Implementations talk to storage or a remote
// API.
type TicketMutator interface {
	AppendInternalComment(ctx context.Context, ticketID, body string) error
	UpdateStatus(ctx context.Context, ticketID string, from, to Status) error
}

// Execute records the justification comment, if any, then updates the
// status. A failed comment aborts the plan before the status changes.
func (p TransitionPlan) Execute(ctx context.Context, m TicketMutator) error {
	if m == nil {
		return ErrNilMutator
	}
	if p.Comment != nil {
		if err := m.AppendInternalComment(ctx, p.TicketID, p.Comment.Body); err != nil {
			return fmt.Errorf("access: record justification: %w", err)
		}
	}
	if err := m.UpdateStatus(ctx, p.TicketID, p.From, p.To); err != nil {
		return fmt.Errorf("access: update status: %w", err)
	}
	return nil
}
