package rbac

import (
	"github.com/socdesk/socdesk/internal/access"
)

// Permission represents an atomic capability stored in the catalogue.
type Permission struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Subject is the persisted view of a user together with its role
// assignments. It is also the cached form of a principal.
type Subject struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	IsSuperuser bool              `json:"is_superuser"`
	GroupID     *string           `json:"group_id"`
	GroupName   string            `json:"group_name"`
	Roles       []access.WireRole `json:"roles"`
}

// Principal converts the subject into the resolved access principal.
func (s Subject) Principal() *access.Principal {
	user := access.NormalizeUser(access.WireUser{
		ID:          s.ID,
		Email:       s.Email,
		Name:        s.Name,
		IsSuperuser: s.IsSuperuser,
		GroupID:     s.GroupID,
		Roles:       s.Roles,
	})
	return access.NewPrincipal(user, s.GroupName)
}
