package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/id"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeResolveEntry struct {
	name string
	hook BeforeResolve
}
type afterResolveEntry struct {
	name string
	hook AfterResolve
}
type roleAssignedEntry struct {
	name string
	hook RoleAssigned
}
type roleRevokedEntry struct {
	name string
	hook RoleRevoked
}
type defaultTenantChangedEntry struct {
	name string
	hook DefaultTenantChanged
}
type permissionsBulkUpdatedEntry struct {
	name string
	hook PermissionsBulkUpdated
}
type permissionsCopiedEntry struct {
	name string
	hook PermissionsCopied
}
type cacheInvalidatedEntry struct {
	name string
	hook CacheInvalidated
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeResolve          []beforeResolveEntry
	afterResolve           []afterResolveEntry
	roleAssigned           []roleAssignedEntry
	roleRevoked            []roleRevokedEntry
	defaultTenantChanged   []defaultTenantChangedEntry
	permissionsBulkUpdated []permissionsBulkUpdatedEntry
	permissionsCopied      []permissionsCopiedEntry
	cacheInvalidated       []cacheInvalidatedEntry
	shutdown               []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeResolve); ok {
		r.beforeResolve = append(r.beforeResolve, beforeResolveEntry{name, h})
	}
	if h, ok := p.(AfterResolve); ok {
		r.afterResolve = append(r.afterResolve, afterResolveEntry{name, h})
	}
	if h, ok := p.(RoleAssigned); ok {
		r.roleAssigned = append(r.roleAssigned, roleAssignedEntry{name, h})
	}
	if h, ok := p.(RoleRevoked); ok {
		r.roleRevoked = append(r.roleRevoked, roleRevokedEntry{name, h})
	}
	if h, ok := p.(DefaultTenantChanged); ok {
		r.defaultTenantChanged = append(r.defaultTenantChanged, defaultTenantChangedEntry{name, h})
	}
	if h, ok := p.(PermissionsBulkUpdated); ok {
		r.permissionsBulkUpdated = append(r.permissionsBulkUpdated, permissionsBulkUpdatedEntry{name, h})
	}
	if h, ok := p.(PermissionsCopied); ok {
		r.permissionsCopied = append(r.permissionsCopied, permissionsCopiedEntry{name, h})
	}
	if h, ok := p.(CacheInvalidated); ok {
		r.cacheInvalidated = append(r.cacheInvalidated, cacheInvalidatedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Resolution event emitters
// ──────────────────────────────────────────────────

// EmitBeforeResolve notifies all plugins that implement BeforeResolve.
func (r *Registry) EmitBeforeResolve(ctx context.Context, principalID id.PrincipalID, scope any) {
	for _, e := range r.beforeResolve {
		if err := e.hook.OnBeforeResolve(ctx, principalID, scope); err != nil {
			r.logHookError("OnBeforeResolve", e.name, err)
		}
	}
}

// EmitAfterResolve notifies all plugins that implement AfterResolve.
func (r *Registry) EmitAfterResolve(ctx context.Context, principalID id.PrincipalID, set any) {
	for _, e := range r.afterResolve {
		if err := e.hook.OnAfterResolve(ctx, principalID, set); err != nil {
			r.logHookError("OnAfterResolve", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Assignment event emitters
// ──────────────────────────────────────────────────

// EmitRoleAssigned notifies all plugins that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.roleAssigned {
		if err := e.hook.OnRoleAssigned(ctx, a); err != nil {
			r.logHookError("OnRoleAssigned", e.name, err)
		}
	}
}

// EmitRoleRevoked notifies all plugins that implement RoleRevoked.
func (r *Registry) EmitRoleRevoked(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.roleRevoked {
		if err := e.hook.OnRoleRevoked(ctx, a); err != nil {
			r.logHookError("OnRoleRevoked", e.name, err)
		}
	}
}

// EmitDefaultTenantChanged notifies all plugins that implement DefaultTenantChanged.
func (r *Registry) EmitDefaultTenantChanged(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID) {
	for _, e := range r.defaultTenantChanged {
		if err := e.hook.OnDefaultTenantChanged(ctx, principalID, tenantID); err != nil {
			r.logHookError("OnDefaultTenantChanged", e.name, err)
		}
	}
}

// EmitPermissionsBulkUpdated notifies all plugins that implement PermissionsBulkUpdated.
func (r *Registry) EmitPermissionsBulkUpdated(ctx context.Context, tenantID id.TenantID, roleType assignment.TenantRole, changed int) {
	for _, e := range r.permissionsBulkUpdated {
		if err := e.hook.OnPermissionsBulkUpdated(ctx, tenantID, roleType, changed); err != nil {
			r.logHookError("OnPermissionsBulkUpdated", e.name, err)
		}
	}
}

// EmitPermissionsCopied notifies all plugins that implement PermissionsCopied.
func (r *Registry) EmitPermissionsCopied(ctx context.Context, from, to id.PrincipalID, tenantID id.TenantID) {
	for _, e := range r.permissionsCopied {
		if err := e.hook.OnPermissionsCopied(ctx, from, to, tenantID); err != nil {
			r.logHookError("OnPermissionsCopied", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Cache event emitters
// ──────────────────────────────────────────────────

// EmitCacheInvalidated notifies all plugins that implement CacheInvalidated.
func (r *Registry) EmitCacheInvalidated(ctx context.Context, principalID id.PrincipalID) {
	for _, e := range r.cacheInvalidated {
		if err := e.hook.OnCacheInvalidated(ctx, principalID); err != nil {
			r.logHookError("OnCacheInvalidated", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
