// Package assignment defines the TenantRoleAssignment entity: the role a
// principal holds inside one tenant, with explicit permission overrides.
package assignment

import (
	"time"

	"github.com/xraph/arbiter/id"
)

// TenantRole mirrors arbiter.TenantRole. It is declared as a plain
// string here so the entity package does not import the engine package.
type TenantRole = string

// Assignment binds a principal to a tenant role within one tenant.
// (principal, tenant) is the natural key; at most one row exists per
// pair and mutations update it in place.
//
// AdditionalPermissions and RestrictedPermissions are "resource:action"
// strings. The two lists must be disjoint at write time.
type Assignment struct {
	ID                    id.AssignmentID `json:"id" db:"id"`
	PrincipalID           id.PrincipalID  `json:"principal_id" db:"principal_id"`
	TenantID              id.TenantID     `json:"tenant_id" db:"tenant_id"`
	RoleType              TenantRole      `json:"role_type" db:"role_type"`
	IsDefaultTenant       bool            `json:"is_default_tenant" db:"is_default_tenant"`
	AdditionalPermissions []string        `json:"additional_permissions,omitempty" db:"additional_permissions"`
	RestrictedPermissions []string        `json:"restricted_permissions,omitempty" db:"restricted_permissions"`
	AllowedSiteIDs        []id.SiteID     `json:"allowed_site_ids,omitempty" db:"allowed_site_ids"`
	GrantedBy             id.PrincipalID  `json:"granted_by,omitempty" db:"granted_by"`
	GrantedAt             time.Time       `json:"granted_at" db:"granted_at"`
	ExpiresAt             *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
	IsActive              bool            `json:"is_active" db:"is_active"`

	// Version supports optimistic concurrency: stores reject an upsert
	// whose Version does not match the stored row.
	Version int64 `json:"version" db:"version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EffectivelyActive reports whether the assignment grants anything at
// the given instant: it must be active and not yet expired. Expiry is
// evaluated lazily at read time; no background sweep deactivates rows.
func (a *Assignment) EffectivelyActive(now time.Time) bool {
	if a == nil || !a.IsActive {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// AllowsSite reports whether the assignment permits the given site.
// An empty AllowedSiteIDs list means no site restriction.
func (a *Assignment) AllowsSite(siteID id.SiteID) bool {
	if siteID.IsNil() || len(a.AllowedSiteIDs) == 0 {
		return true
	}
	for _, s := range a.AllowedSiteIDs {
		if s == siteID {
			return true
		}
	}
	return false
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	PrincipalID *id.PrincipalID `json:"principal_id,omitempty"`
	TenantID    *id.TenantID    `json:"tenant_id,omitempty"`
	RoleType    TenantRole      `json:"role_type,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
	IsDefault   *bool           `json:"is_default,omitempty"`
	Limit       int             `json:"limit,omitempty"`
	Offset      int             `json:"offset,omitempty"`
}
