package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/arbiter/id"
)

// ErrVersionConflict is returned by stores when a version-checked write
// lost a race with a concurrent update.
var ErrVersionConflict = errors.New("assignment: version conflict")

// Store defines persistence operations for tenant role assignments.
//
// Upsert is version-checked: when the incoming assignment carries a
// non-zero Version that does not match the stored row, the store must
// reject the write with ErrVersionConflict rather than apply a lost
// update. A zero Version is an unconditional upsert: it creates
// the row or overwrites the current one. The stored Version is
// incremented on every successful write.
type Store interface {
	// FindActiveAssignment returns the effectively active assignment for
	// (principal, tenant): active and not expired at the given instant.
	// Returns nil with no error when none exists.
	FindActiveAssignment(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, now time.Time) (*Assignment, error)

	// FindAllActiveAssignments returns every effectively active
	// assignment the principal holds, across all tenants.
	FindAllActiveAssignments(ctx context.Context, principalID id.PrincipalID, now time.Time) ([]*Assignment, error)

	// FindAssignmentsByTenantAndRole returns the active assignments
	// matching (tenant, role).
	FindAssignmentsByTenantAndRole(ctx context.Context, tenantID id.TenantID, roleType TenantRole, now time.Time) ([]*Assignment, error)

	// GetAssignment retrieves an assignment by ID, active or not.
	GetAssignment(ctx context.Context, assignmentID id.AssignmentID) (*Assignment, error)

	// UpsertAssignment creates or updates the row for the assignment's
	// (principal, tenant) pair and returns the saved state with its new
	// Version.
	UpsertAssignment(ctx context.Context, a *Assignment) (*Assignment, error)

	// ListAssignments returns assignments matching the filter,
	// including inactive and expired rows.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)

	// CountAssignments returns the number of assignments matching the filter.
	CountAssignments(ctx context.Context, filter *ListFilter) (int64, error)

	// DeactivateExpired marks rows whose expiry has passed as inactive
	// and returns how many rows changed. Maintenance use only; the read
	// paths already treat expired rows as absent.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
