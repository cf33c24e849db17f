// Package arbiter resolves the effective permissions a principal holds
// inside a tenant.
//
// Arbiter reconciles four independently managed inputs (the principal's
// global role, their tenant role assignment, explicit additional grants,
// and explicit restrictions) under a strict precedence order:
// restrictions always win, additional grants beat role-derived grants,
// and a tenant role can raise but never lower global authority.
// It is tenant-scoped by default via forge.Scope and caches resolved
// permission sets per principal with grouped invalidation.
//
//	eng, err := arbiter.New(
//	    arbiter.WithStore(memStore),
//	)
//	ok, err := eng.HasPermission(ctx, principalID, tenantID,
//	    "orders", "approve", arbiter.AccessWrite)
package arbiter

import (
	"fmt"
	"strings"
	"time"

	"github.com/xraph/arbiter/id"
)

// GrantSource identifies where a permission grant came from.
type GrantSource string

const (
	// SourceSystem marks grants derived from a global (system-wide) role.
	SourceSystem GrantSource = "system"

	// SourceRole marks grants derived from a tenant role.
	SourceRole GrantSource = "role"

	// SourceAdditional marks grants from an assignment's explicit allow-list.
	SourceAdditional GrantSource = "additional"
)

// GrantScope identifies how widely a permission grant applies.
type GrantScope string

const (
	// ScopeGlobal applies across every tenant.
	ScopeGlobal GrantScope = "global"

	// ScopeTenant applies within a single tenant.
	ScopeTenant GrantScope = "tenant"

	// ScopeSite applies within a single site beneath a tenant.
	ScopeSite GrantScope = "site"
)

// Wildcard matches any resource or action in a PermissionKey.
const Wildcard = "*"

// PermissionKey names a single permission as a (resource, action) pair.
// Either component may be the "*" wildcard meaning "all".
type PermissionKey struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// ParsePermissionKey parses a "resource:action" permission string.
// A bare "resource" with no separator grants every action on it.
func ParsePermissionKey(s string) (PermissionKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PermissionKey{}, fmt.Errorf("arbiter: empty permission string")
	}
	resource, action, found := strings.Cut(s, ":")
	if !found {
		return PermissionKey{Resource: resource, Action: Wildcard}, nil
	}
	if resource == "" || action == "" {
		return PermissionKey{}, fmt.Errorf("arbiter: malformed permission %q", s)
	}
	return PermissionKey{Resource: resource, Action: action}, nil
}

// String returns the "resource:action" form of the key.
func (k PermissionKey) String() string {
	return k.Resource + ":" + k.Action
}

// IsWildcard reports whether either component of the key is a wildcard.
func (k PermissionKey) IsWildcard() bool {
	return k.Resource == Wildcard || k.Action == Wildcard
}

// MarshalText implements encoding.TextMarshaler so the key can serve as
// a JSON map key.
func (k PermissionKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PermissionKey) UnmarshalText(data []byte) error {
	parsed, err := ParsePermissionKey(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PermissionGrant is one resolved entry in an effective permission set.
type PermissionGrant struct {
	Key        PermissionKey `json:"key"`
	Level      AccessLevel   `json:"level"`
	Source     GrantSource   `json:"source"`
	Scope      GrantScope    `json:"scope"`
	Restricted bool          `json:"restricted"`
}

// EffectivePermissionSet is the resolved authorization state for one
// (principal, tenant, site) triple. It is derived and cached, never
// persisted; any mutation of a contributing assignment invalidates it.
type EffectivePermissionSet struct {
	PrincipalID id.PrincipalID                    `json:"principal_id"`
	TenantID    id.TenantID                       `json:"tenant_id"`
	SiteID      id.SiteID                         `json:"site_id,omitempty"`
	Role        TenantRole                        `json:"role,omitempty"`
	Grants      map[PermissionKey]PermissionGrant `json:"grants"`

	// Restricted holds the explicitly denied keys stripped from Grants.
	// A restricted key also vetoes wildcard grants that would otherwise
	// cover it.
	Restricted map[PermissionKey]struct{} `json:"restricted,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// IsRestricted reports whether the key is covered by an explicit
// restriction.
func (s *EffectivePermissionSet) IsRestricted(key PermissionKey) bool {
	if s == nil || len(s.Restricted) == 0 {
		return false
	}
	if _, ok := s.Restricted[key]; ok {
		return true
	}
	for r := range s.Restricted {
		if matchKey(r, key) {
			return true
		}
	}
	return false
}

// Lookup returns the grant covering the given key, honoring wildcard
// grants. The highest level among the exact match and every covering
// wildcard wins, so a role's wildcard grant is never capped by a
// lower-ranked exact catalog entry for the same key.
func (s *EffectivePermissionSet) Lookup(key PermissionKey) (PermissionGrant, bool) {
	if s == nil || len(s.Grants) == 0 {
		return PermissionGrant{}, false
	}
	best, found := s.Grants[key]
	for k, g := range s.Grants {
		if !k.IsWildcard() || !matchKey(k, key) {
			continue
		}
		if !found || g.Level.Compare(best.Level) == OrderGreater {
			best = g
			found = true
		}
	}
	return best, found
}

// Allows reports whether the set grants the key at or above the
// required access level. Absent keys always report false.
func (s *EffectivePermissionSet) Allows(key PermissionKey, required AccessLevel) bool {
	if s.IsRestricted(key) {
		return false
	}
	g, ok := s.Lookup(key)
	if !ok || g.Restricted || g.Level == AccessBlocked {
		return false
	}
	return g.Level.AtLeast(required)
}

// Empty reports whether the set carries no grants at all.
func (s *EffectivePermissionSet) Empty() bool {
	return s == nil || len(s.Grants) == 0
}
