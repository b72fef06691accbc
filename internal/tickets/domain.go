package tickets

import (
	"time"

	"github.com/socdesk/socdesk/internal/access"
)

// Ticket is a SOC incident or service request.
type Ticket struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Status       access.Status `json:"status"`
	Priority     string        `json:"priority"`
	CreatedByID  string        `json:"created_by_id"`
	GroupID      *string       `json:"group_id"`
	AssignedToID *string       `json:"assigned_to_id"`
	SLADeadline  *time.Time    `json:"sla_deadline,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	SLA          *SLA          `json:"sla,omitempty"`
}

func (t Ticket) gate() access.Ticket {
	return access.Ticket{
		ID:           t.ID,
		Status:       t.Status,
		CreatedByID:  t.CreatedByID,
		GroupID:      t.GroupID,
		AssignedToID: t.AssignedToID,
	}
}

// Column is one lane of the kanban board.
type Column struct {
	Status  access.Status `json:"status"`
	Tickets []Ticket      `json:"tickets"`
}

// ListFilter narrows ticket listings.
type ListFilter struct {
	Status  *access.Status
	Page    int
	PerPage int
}

// ListQuery is the visibility-resolved query sent to the repository.
type ListQuery struct {
	All      bool
	GroupIDs []string
	UserID   string
	Status   *access.Status
	Limit    int
	Offset   int
}

// ChangeStatusInput is the body of POST /tickets/{id}/status.
type ChangeStatusInput struct {
	Status        string `json:"status" validate:"required,oneof=open in_progress pending resolved closed"`
	Justification string `json:"justification" validate:"max=4000"`
}

// AssignGroupInput is the body of POST /tickets/{id}/group.
type AssignGroupInput struct {
	GroupID string `json:"group_id" validate:"required,max=64"`
}

// AssignUserInput is the body of POST /tickets/{id}/assignee.
type AssignUserInput struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}
