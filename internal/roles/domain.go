package roles

import "time"

// Role represents a role for management.
type Role struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Permissions    []string  `json:"permissions"`
	HiddenNavItems []string  `json:"hidden_nav_items"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SetPermissionsInput replaces the permission keys granted by a role.
type SetPermissionsInput struct {
	Permissions []string `json:"permissions" validate:"dive,required,max=128"`
}

// SetHiddenNavInput replaces the navigation ids a role hides.
type SetHiddenNavInput struct {
	HiddenNavItems []string `json:"hidden_nav_items" validate:"dive,required,max=64"`
}
