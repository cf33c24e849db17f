package arbiter

import (
	"errors"

	"github.com/xraph/arbiter/assignment"
)

// ErrVersionConflict re-exports the assignment package's sentinel so
// engine callers can match store rejections without importing it.
var ErrVersionConflict = assignment.ErrVersionConflict

var (
	// ErrAccessDenied is returned when an authorization check fails.
	ErrAccessDenied = errors.New("arbiter: access denied")

	// ErrConflictingPermissions is returned when a permission key appears
	// in both the additional and the restricted list of an assignment.
	ErrConflictingPermissions = errors.New("arbiter: conflicting grant and restriction")

	// ErrPrincipalNotFound is returned when a principal cannot be found
	// on a mutation path.
	ErrPrincipalNotFound = errors.New("arbiter: principal not found")

	// ErrTenantNotFound is returned when a tenant reference is missing.
	ErrTenantNotFound = errors.New("arbiter: tenant not found")

	// ErrRoleNotFound is returned when a tenant role name is not one of
	// the known roles.
	ErrRoleNotFound = errors.New("arbiter: role not found")

	// ErrAssignmentNotFound is returned when an assignment cannot be found.
	ErrAssignmentNotFound = errors.New("arbiter: assignment not found")

	// ErrSourceNotFound is returned by CopyPermissions when the source
	// principal has no active assignment in the tenant.
	ErrSourceNotFound = errors.New("arbiter: source assignment not found")

	// ErrStoreUnavailable wraps store failures on the query path so
	// callers can distinguish an outage from an ordinary denial.
	ErrStoreUnavailable = errors.New("arbiter: store unavailable")

	// ErrCacheUnavailable marks cache collaborator failures. The engine
	// falls through to the store on cache reads; it never fails a check
	// because of the cache alone.
	ErrCacheUnavailable = errors.New("arbiter: cache unavailable")
)
