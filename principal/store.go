package principal

import (
	"context"

	"github.com/xraph/arbiter/id"
)

// Store defines persistence operations for principals.
type Store interface {
	// CreatePrincipal persists a new principal.
	CreatePrincipal(ctx context.Context, p *Principal) error

	// FindPrincipal retrieves a principal by ID. Returns nil with no
	// error when none exists.
	FindPrincipal(ctx context.Context, principalID id.PrincipalID) (*Principal, error)

	// UpdatePrincipal persists changes to a principal.
	UpdatePrincipal(ctx context.Context, p *Principal) error

	// ListPrincipals returns principals matching the filter.
	ListPrincipals(ctx context.Context, filter *ListFilter) ([]*Principal, error)

	// CountPrincipals returns the number of principals matching the filter.
	CountPrincipals(ctx context.Context, filter *ListFilter) (int64, error)

	// DeletePrincipal removes a principal by ID.
	DeletePrincipal(ctx context.Context, principalID id.PrincipalID) error
}
