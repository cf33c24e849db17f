// Package plugin defines the plugin system for Arbiter.
// Plugins are notified of lifecycle events (permissions resolved, role
// assigned, cache invalidated, etc.) and can react — logging, metrics,
// tracing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/id"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Resolution lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeResolve is called before an effective permission set is computed.
// The scope parameter is *arbiter.ResolutionScope (passed as any to
// avoid an import cycle).
type BeforeResolve interface {
	OnBeforeResolve(ctx context.Context, principalID id.PrincipalID, scope any) error
}

// AfterResolve is called after an effective permission set is computed
// or served from cache. The set parameter is
// *arbiter.EffectivePermissionSet.
type AfterResolve interface {
	OnAfterResolve(ctx context.Context, principalID id.PrincipalID, set any) error
}

// ──────────────────────────────────────────────────
// Assignment lifecycle hooks
// ──────────────────────────────────────────────────

// RoleAssigned is called after a tenant role is assigned to a principal.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error
}

// RoleRevoked is called after an assignment is revoked.
type RoleRevoked interface {
	OnRoleRevoked(ctx context.Context, a *assignment.Assignment) error
}

// DefaultTenantChanged is called after a principal's default tenant moves.
type DefaultTenantChanged interface {
	OnDefaultTenantChanged(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID) error
}

// PermissionsBulkUpdated is called after a bulk permission-list update,
// with the number of assignments changed.
type PermissionsBulkUpdated interface {
	OnPermissionsBulkUpdated(ctx context.Context, tenantID id.TenantID, roleType assignment.TenantRole, changed int) error
}

// PermissionsCopied is called after permissions are copied between
// principals.
type PermissionsCopied interface {
	OnPermissionsCopied(ctx context.Context, from, to id.PrincipalID, tenantID id.TenantID) error
}

// ──────────────────────────────────────────────────
// Cache lifecycle hooks
// ──────────────────────────────────────────────────

// CacheInvalidated is called after a principal's cache group is evicted.
type CacheInvalidated interface {
	OnCacheInvalidated(ctx context.Context, principalID id.PrincipalID) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
