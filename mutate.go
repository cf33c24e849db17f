package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/id"
)

// AssignOptions carries the optional fields of an assignment upsert.
type AssignOptions struct {
	IsDefault             bool
	AdditionalPermissions []string
	RestrictedPermissions []string
	AllowedSiteIDs        []id.SiteID
	ExpiresAt             *time.Time
}

// BulkPermissionUpdate describes set operations applied to the
// permission lists of every assignment matching (tenant, role).
type BulkPermissionUpdate struct {
	// Add inserts keys into the additional-permissions list. A key
	// currently restricted is unrestricted first, keeping the two lists
	// disjoint.
	Add []string

	// Remove deletes keys from the additional-permissions list.
	Remove []string

	// Restrict inserts keys into the restricted-permissions list,
	// removing them from the additional list when present.
	Restrict []string
}

// Assign creates or updates the principal's role assignment in the
// tenant and invalidates the principal's entire cache group. The whole
// group is evicted rather than just the affected tenant, because the
// principal record itself is cached in the same group and a role change
// can affect every tenant's resolution.
func (e *Engine) Assign(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, roleType TenantRole, grantedBy id.PrincipalID, opts AssignOptions) (*assignment.Assignment, error) {
	if tenantID.IsNil() {
		return nil, fmt.Errorf("%w: assign requires a tenant", ErrTenantNotFound)
	}
	if !roleType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrRoleNotFound, roleType)
	}
	if overlap := permissionOverlap(opts.AdditionalPermissions, opts.RestrictedPermissions); len(overlap) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrConflictingPermissions, overlap)
	}

	prin, err := e.loadPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if prin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPrincipalNotFound, principalID)
	}

	if v := ValidateAssignment(GlobalRole(prin.GlobalRole), roleType, opts.AdditionalPermissions, opts.RestrictedPermissions); len(v.Warnings) > 0 {
		e.logger.Warn("assignment validation warnings",
			slog.String("principal_id", principalID.String()),
			slog.String("tenant_id", tenantID.String()),
			slog.Any("warnings", v.Warnings))
	}

	now := e.now()
	saved, err := e.store.UpsertAssignment(ctx, &assignment.Assignment{
		PrincipalID:           principalID,
		TenantID:              tenantID,
		RoleType:              string(roleType),
		IsDefaultTenant:       opts.IsDefault,
		AdditionalPermissions: normalizePermissions(opts.AdditionalPermissions),
		RestrictedPermissions: normalizePermissions(opts.RestrictedPermissions),
		AllowedSiteIDs:        opts.AllowedSiteIDs,
		GrantedBy:             grantedBy,
		GrantedAt:             now,
		ExpiresAt:             opts.ExpiresAt,
		IsActive:              true,
	})
	if err != nil {
		return nil, fmt.Errorf("arbiter: upsert assignment: %w", err)
	}
	// The row is persisted from here on: every exit path must evict the
	// principal's cache group, or checks keep answering from the set the
	// write just outdated.
	defer e.InvalidatePrincipal(ctx, principalID)

	if opts.IsDefault {
		if err := e.clearOtherDefaults(ctx, principalID, tenantID); err != nil {
			return nil, err
		}
	}

	if e.plugins != nil {
		e.plugins.EmitRoleAssigned(ctx, saved)
	}
	return saved, nil
}

// Revoke deactivates the principal's assignment in the tenant. Returns
// whether a row changed. The row stays in place (assignments are never
// hard-deleted here) so a later Assign reactivates it.
func (e *Engine) Revoke(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID) (bool, error) {
	now := e.now()
	a, err := e.store.FindActiveAssignment(ctx, principalID, tenantID, now)
	if err != nil {
		return false, fmt.Errorf("arbiter: find assignment: %w: %w", ErrStoreUnavailable, err)
	}
	if a == nil {
		return false, nil
	}

	a.IsActive = false
	revoked, err := e.store.UpsertAssignment(ctx, a)
	if err != nil {
		return false, fmt.Errorf("arbiter: revoke assignment: %w", err)
	}

	e.InvalidatePrincipal(ctx, principalID)
	if e.plugins != nil {
		e.plugins.EmitRoleRevoked(ctx, revoked)
	}
	return true, nil
}

// SetDefaultTenant makes the given tenant the principal's sole default.
// Returns false when the principal holds no active assignment there.
func (e *Engine) SetDefaultTenant(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID) (bool, error) {
	now := e.now()
	target, err := e.store.FindActiveAssignment(ctx, principalID, tenantID, now)
	if err != nil {
		return false, fmt.Errorf("arbiter: find assignment: %w: %w", ErrStoreUnavailable, err)
	}
	if target == nil {
		return false, nil
	}

	// Sweep every row, active or not: a revoked assignment keeps its
	// flag otherwise and resurfaces as a second default on listing.
	all, err := e.store.ListAssignments(ctx, &assignment.ListFilter{PrincipalID: &principalID})
	if err != nil {
		return false, fmt.Errorf("arbiter: list assignments: %w: %w", ErrStoreUnavailable, err)
	}

	changed := false
	defer func() {
		if changed {
			e.InvalidatePrincipal(ctx, principalID)
		}
	}()
	for _, a := range all {
		isTarget := a.TenantID == tenantID
		if a.IsDefaultTenant == isTarget {
			continue
		}
		a.IsDefaultTenant = isTarget
		if _, err := e.store.UpsertAssignment(ctx, a); err != nil {
			return false, fmt.Errorf("arbiter: update default tenant: %w", err)
		}
		changed = true
	}

	if e.plugins != nil {
		e.plugins.EmitDefaultTenantChanged(ctx, principalID, tenantID)
	}
	return true, nil
}

// BulkUpdateRolePermissions applies permission-list set operations to
// every active assignment matching (tenant, role) and returns how many
// rows changed. Each affected principal's cache group is invalidated.
func (e *Engine) BulkUpdateRolePermissions(ctx context.Context, tenantID id.TenantID, roleType TenantRole, upd BulkPermissionUpdate) (int, error) {
	if tenantID.IsNil() {
		return 0, fmt.Errorf("%w: bulk update requires a tenant", ErrTenantNotFound)
	}
	if !roleType.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrRoleNotFound, roleType)
	}

	now := e.now()
	rows, err := e.store.FindAssignmentsByTenantAndRole(ctx, tenantID, string(roleType), now)
	if err != nil {
		return 0, fmt.Errorf("arbiter: list role assignments: %w: %w", ErrStoreUnavailable, err)
	}

	add := normalizePermissions(upd.Add)
	remove := normalizePermissions(upd.Remove)
	restrict := normalizePermissions(upd.Restrict)

	changed := 0
	for _, a := range rows {
		// Restrictions and grants stay disjoint: a restricted key leaves
		// the additional list, a newly added key leaves the restricted one.
		newAdditional := applySetOps(a.AdditionalPermissions, add, concatLists(remove, restrict))
		newRestricted := applySetOps(a.RestrictedPermissions, restrict, add)
		if equalLists(a.AdditionalPermissions, newAdditional) && equalLists(a.RestrictedPermissions, newRestricted) {
			continue
		}

		a.AdditionalPermissions = newAdditional
		a.RestrictedPermissions = newRestricted
		if _, err := e.store.UpsertAssignment(ctx, a); err != nil {
			return changed, fmt.Errorf("arbiter: bulk update assignment: %w", err)
		}
		changed++
		e.InvalidatePrincipal(ctx, a.PrincipalID)
	}

	if e.plugins != nil {
		e.plugins.EmitPermissionsBulkUpdated(ctx, tenantID, string(roleType), changed)
	}
	return changed, nil
}

// CopyPermissions copies the source principal's role and permission
// lists onto the target principal within the tenant.
func (e *Engine) CopyPermissions(ctx context.Context, fromPrincipalID, toPrincipalID id.PrincipalID, tenantID id.TenantID, grantedBy id.PrincipalID) (*assignment.Assignment, error) {
	now := e.now()
	src, err := e.store.FindActiveAssignment(ctx, fromPrincipalID, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("arbiter: find source assignment: %w: %w", ErrStoreUnavailable, err)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: principal %s in tenant %s", ErrSourceNotFound, fromPrincipalID, tenantID)
	}

	target := &assignment.Assignment{
		PrincipalID:           toPrincipalID,
		TenantID:              tenantID,
		RoleType:              src.RoleType,
		AdditionalPermissions: append([]string(nil), src.AdditionalPermissions...),
		RestrictedPermissions: append([]string(nil), src.RestrictedPermissions...),
		AllowedSiteIDs:        append([]id.SiteID(nil), src.AllowedSiteIDs...),
		GrantedBy:             grantedBy,
		GrantedAt:             now,
		IsActive:              true,
	}
	existing, err := e.store.FindActiveAssignment(ctx, toPrincipalID, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("arbiter: find target assignment: %w: %w", ErrStoreUnavailable, err)
	}
	if existing != nil {
		target.IsDefaultTenant = existing.IsDefaultTenant
	}

	saved, err := e.store.UpsertAssignment(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("arbiter: copy assignment: %w", err)
	}

	e.InvalidatePrincipal(ctx, toPrincipalID)
	if e.plugins != nil {
		e.plugins.EmitPermissionsCopied(ctx, fromPrincipalID, toPrincipalID, tenantID)
	}
	return saved, nil
}

// clearOtherDefaults drops the default flag on every other tenant of
// the principal, inactive rows included, so at most one default exists.
func (e *Engine) clearOtherDefaults(ctx context.Context, principalID id.PrincipalID, keepTenantID id.TenantID) error {
	all, err := e.store.ListAssignments(ctx, &assignment.ListFilter{PrincipalID: &principalID})
	if err != nil {
		return fmt.Errorf("arbiter: list assignments: %w: %w", ErrStoreUnavailable, err)
	}
	for _, a := range all {
		if a.TenantID == keepTenantID || !a.IsDefaultTenant {
			continue
		}
		a.IsDefaultTenant = false
		if _, err := e.store.UpsertAssignment(ctx, a); err != nil {
			return fmt.Errorf("arbiter: clear default tenant: %w", err)
		}
	}
	return nil
}

// normalizePermissions canonicalizes raw permission strings, dropping
// malformed entries and duplicates, and sorts for stable comparisons.
func normalizePermissions(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		key, err := ParsePermissionKey(s)
		if err != nil {
			continue
		}
		canonical := key.String()
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	sort.Strings(out)
	return out
}

// applySetOps returns base plus add minus remove, normalized and sorted.
func applySetOps(base, add, remove []string) []string {
	set := make(map[string]struct{}, len(base)+len(add))
	for _, s := range normalizePermissions(base) {
		set[s] = struct{}{}
	}
	for _, s := range add {
		set[s] = struct{}{}
	}
	for _, s := range remove {
		delete(set, s)
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func concatLists(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func equalLists(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
