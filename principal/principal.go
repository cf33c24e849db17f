// Package principal defines the Principal entity (the authenticated actor).
package principal

import (
	"time"

	"github.com/xraph/arbiter/id"
)

// GlobalRole mirrors arbiter.GlobalRole. It is declared as a plain
// string here so the entity package does not import the engine package.
type GlobalRole = string

// Principal is an authenticated actor whose permissions are resolved.
// The global role is system-wide authority, independent of any tenant.
type Principal struct {
	ID          id.PrincipalID `json:"id" db:"id"`
	GlobalRole  GlobalRole     `json:"global_role" db:"global_role"`
	DisplayName string         `json:"display_name,omitempty" db:"display_name"`
	Email       string         `json:"email,omitempty" db:"email"`
	IsActive    bool           `json:"is_active" db:"is_active"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing principals.
type ListFilter struct {
	GlobalRole string `json:"global_role,omitempty"`
	IsActive   *bool  `json:"is_active,omitempty"`
	Search     string `json:"search,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
