package groups

import "github.com/socdesk/socdesk/internal/access"

// Group is a node of the organisational hierarchy as stored.
type Group struct {
	ID          string  `json:"id"`
	ParentID    *string `json:"parent_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
}

func (g Group) node() access.Group {
	return access.Group{ID: g.ID, ParentID: g.ParentID, Name: g.Name}
}
