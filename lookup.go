package arbiter

import (
	"time"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/id"
)

// lookupKind tags the result of an assignment lookup so downstream code
// must handle the synthetic case explicitly.
type lookupKind int

const (
	// lookupAbsent means the principal holds no assignment in the tenant.
	lookupAbsent lookupKind = iota

	// lookupExplicit means a persisted, effectively active row exists.
	lookupExplicit

	// lookupVirtual means a synthetic owner assignment was derived from
	// the principal's global role. Never persisted.
	lookupVirtual
)

// assignmentLookup is the tagged result of resolving the assignment for
// a (principal, tenant) pair.
type assignmentLookup struct {
	kind       lookupKind
	assignment *assignment.Assignment
}

// virtualOwnerAssignment synthesizes the implicit OWNER assignment a
// SUPER_ADMIN holds in any tenant without an explicit row. Recomputed
// on every resolution; it must never reach the store.
func virtualOwnerAssignment(principalID id.PrincipalID, tenantID id.TenantID, now time.Time) *assignment.Assignment {
	return &assignment.Assignment{
		PrincipalID: principalID,
		TenantID:    tenantID,
		RoleType:    string(TenantOwner),
		IsActive:    true,
		GrantedAt:   now,
	}
}
