package users

import (
	"time"

	"github.com/socdesk/socdesk/internal/access"
	"github.com/socdesk/socdesk/internal/groups"
)

// User represents a user account.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	GroupID     *string   `json:"group_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is the payload of GET /me: everything a client needs to render
// the shell for the signed in user.
type Profile struct {
	User             User                     `json:"user"`
	GroupName        string                   `json:"group_name,omitempty"`
	Permissions      []string                 `json:"permissions"`
	Navigation       []access.NavigationEntry `json:"navigation"`
	AssignableGroups []groups.Group           `json:"assignable_groups"`
}

// ListFilter narrows ListUsers.
type ListFilter struct {
	Email      string
	Assignable bool
}
