package arbiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/arbiter/id"
	"github.com/xraph/arbiter/plugin"
	"github.com/xraph/arbiter/principal"
	"github.com/xraph/arbiter/store"
)

// Engine is the role and permission resolution engine. It reconciles
// global roles, tenant role assignments, and explicit permission
// overrides into effective permission sets, and keeps the cache
// coherent across mutations.
type Engine struct {
	store   store.Store
	cache   Cache
	plugins *plugin.Registry
	logger  *slog.Logger
	config  Config
	now     func() time.Time
}

// New creates a new Arbiter engine with the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("arbiter: store is required")
	}
	if e.config.PermissionTTL <= 0 {
		e.config.PermissionTTL = DefaultConfig().PermissionTTL
	}
	if e.config.PrincipalTTL <= 0 {
		e.config.PrincipalTTL = DefaultConfig().PrincipalTTL
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// EffectivePermissions resolves the authoritative permission set for a
// principal inside a tenant, optionally narrowed to one site. Pass
// id.Nil for siteID when no site scope applies.
//
// Absence (an unknown principal, no assignment, or a site outside the
// assignment's allow-list) yields an empty set, never an error:
// authorization fails closed. Store failures propagate wrapped in
// ErrStoreUnavailable so callers never mistake an outage for a denial.
func (e *Engine) EffectivePermissions(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, siteID id.SiteID) (*EffectivePermissionSet, error) {
	scope := ResolutionScope{TenantID: tenantID, SiteID: siteID}
	if e.plugins != nil {
		e.plugins.EmitBeforeResolve(ctx, principalID, &scope)
	}

	cacheKey := permissionCacheKey(principalID, tenantID, siteID)
	if set, ok := e.cachedSet(ctx, cacheKey); ok {
		if e.plugins != nil {
			e.plugins.EmitAfterResolve(ctx, principalID, set)
		}
		return set, nil
	}

	set, err := e.computePermissions(ctx, principalID, tenantID, siteID)
	if err != nil {
		return nil, err
	}

	e.cacheSet(ctx, cacheKey, principalGroup(principalID), set)

	if e.plugins != nil {
		e.plugins.EmitAfterResolve(ctx, principalID, set)
	}
	return set, nil
}

// computePermissions runs the full resolution: principal load,
// assignment lookup (explicit, virtual, or absent), site gate, merge.
func (e *Engine) computePermissions(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, siteID id.SiteID) (*EffectivePermissionSet, error) {
	now := e.now()
	empty := &EffectivePermissionSet{
		PrincipalID: principalID,
		TenantID:    tenantID,
		SiteID:      siteID,
		ComputedAt:  now,
	}

	prin, err := e.loadPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if prin == nil || !prin.IsActive {
		return empty, nil
	}
	globalRole := GlobalRole(prin.GlobalRole)

	lookup, err := e.lookupAssignment(ctx, principalID, tenantID, globalRole, now)
	if err != nil {
		return nil, err
	}
	if lookup.kind == lookupAbsent {
		// No tenant standing at all: even global authority is not
		// exercised outside an assignment, except through the virtual
		// owner path above.
		return empty, nil
	}

	a := lookup.assignment
	if !siteID.IsNil() && !a.AllowsSite(siteID) {
		return empty, nil
	}

	effectiveRole := HigherTenantRole(FloorTenantRole(globalRole), TenantRole(a.RoleType))
	merged := mergeGrants(
		globalRoleGrants(globalRole),
		tenantRoleGrants(effectiveRole),
		a.AdditionalPermissions,
		a.RestrictedPermissions,
	)

	return &EffectivePermissionSet{
		PrincipalID: principalID,
		TenantID:    tenantID,
		SiteID:      siteID,
		Role:        effectiveRole,
		Grants:      merged.grants,
		Restricted:  merged.restricted,
		ComputedAt:  now,
	}, nil
}

// lookupAssignment resolves the assignment for (principal, tenant) as a
// tagged union: explicit row, virtual owner synthesis, or absent.
func (e *Engine) lookupAssignment(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, globalRole GlobalRole, now time.Time) (assignmentLookup, error) {
	a, err := e.store.FindActiveAssignment(ctx, principalID, tenantID, now)
	if err != nil {
		return assignmentLookup{}, fmt.Errorf("arbiter: find assignment: %w: %w", ErrStoreUnavailable, err)
	}
	if a != nil {
		return assignmentLookup{kind: lookupExplicit, assignment: a}, nil
	}
	if globalRole == GlobalSuperAdmin && e.config.virtualOwnerEnabled() {
		return assignmentLookup{
			kind:       lookupVirtual,
			assignment: virtualOwnerAssignment(principalID, tenantID, now),
		}, nil
	}
	return assignmentLookup{kind: lookupAbsent}, nil
}

// loadPrincipal fetches the principal through its own cache entry.
// Returns nil when the principal does not exist; the caller fails
// closed, it does not error.
func (e *Engine) loadPrincipal(ctx context.Context, principalID id.PrincipalID) (*principal.Principal, error) {
	key := principalCacheKey(principalID)
	if e.cache != nil {
		raw, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.logger.Warn("principal cache read failed, falling through to store",
				slog.String("principal_id", principalID.String()),
				slog.String("error", err.Error()))
		} else if ok {
			var p principal.Principal
			if err := json.Unmarshal(raw, &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := e.store.FindPrincipal(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("arbiter: find principal: %w: %w", ErrStoreUnavailable, err)
	}
	if p == nil {
		return nil, nil
	}

	if e.cache != nil {
		if raw, err := json.Marshal(p); err == nil {
			if err := e.cache.SetWithGroup(ctx, key, raw, principalGroup(principalID), e.config.PrincipalTTL); err != nil {
				e.logger.Warn("principal cache write failed",
					slog.String("principal_id", principalID.String()),
					slog.String("error", err.Error()))
			}
		}
	}
	return p, nil
}

// InvalidatePrincipal evicts every cached permission set (and the
// cached principal record) for the principal. Mutations call this after
// every successful write; it is also safe to call directly after
// out-of-band changes such as a global role update.
func (e *Engine) InvalidatePrincipal(ctx context.Context, principalID id.PrincipalID) {
	if e.cache == nil {
		return
	}
	if err := e.cache.InvalidateGroup(ctx, principalGroup(principalID)); err != nil {
		e.logger.Error("cache group invalidation failed; stale permission sets may persist until TTL",
			slog.String("principal_id", principalID.String()),
			slog.String("error", err.Error()))
		return
	}
	if e.plugins != nil {
		e.plugins.EmitCacheInvalidated(ctx, principalID)
	}
}

func (e *Engine) cachedSet(ctx context.Context, key string) (*EffectivePermissionSet, bool) {
	if e.cache == nil {
		return nil, false
	}
	raw, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("permission cache read failed, recomputing",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var set EffectivePermissionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, false
	}
	return &set, true
}

func (e *Engine) cacheSet(ctx context.Context, key, group string, set *EffectivePermissionSet) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := e.cache.SetWithGroup(ctx, key, raw, group, e.config.PermissionTTL); err != nil {
		e.logger.Warn("permission cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func permissionCacheKey(principalID id.PrincipalID, tenantID id.TenantID, siteID id.SiteID) string {
	return "perm:" + principalID.String() + ":" + tenantID.String() + ":" + siteID.String()
}

func principalCacheKey(principalID id.PrincipalID) string {
	return "principal:" + principalID.String()
}

// principalGroup names the invalidation group that holds every cache
// entry contributed by one principal, across all tenants and sites.
func principalGroup(principalID id.PrincipalID) string {
	return "principal-group:" + principalID.String()
}
