package arbiter

import (
	"context"

	"github.com/xraph/forge"

	"github.com/xraph/arbiter/id"
)

// ResolutionScope is the tenant (and optional site) a request resolves
// against.
type ResolutionScope struct {
	TenantID id.TenantID
	SiteID   id.SiteID
}

// ScopeFromContext extracts the resolution scope from forge.Scope or a
// standalone context. Falls back to the explicit context keys when the
// Forge scope is not set (standalone mode).
func ScopeFromContext(ctx context.Context) ResolutionScope {
	if s, ok := forge.ScopeFrom(ctx); ok {
		if tid, err := id.ParseTenantID(s.OrgID()); err == nil {
			return ResolutionScope{TenantID: tid, SiteID: siteIDFromContext(ctx)}
		}
	}
	return ResolutionScope{
		TenantID: tenantIDFromContext(ctx),
		SiteID:   siteIDFromContext(ctx),
	}
}
