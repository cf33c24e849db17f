package arbiter

import (
	"context"

	"github.com/xraph/arbiter/id"
)

type contextKey int

const (
	ctxKeyTenantID contextKey = iota
	ctxKeySiteID
)

// WithTenant returns a context carrying the given tenant ID.
// Use this for standalone mode (without Forge).
func WithTenant(ctx context.Context, tenantID id.TenantID) context.Context {
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

// WithSite returns a context carrying the given site ID.
func WithSite(ctx context.Context, siteID id.SiteID) context.Context {
	return context.WithValue(ctx, ctxKeySiteID, siteID)
}

func tenantIDFromContext(ctx context.Context) id.TenantID {
	v, ok := ctx.Value(ctxKeyTenantID).(id.TenantID)
	if !ok {
		return id.Nil
	}
	return v
}

func siteIDFromContext(ctx context.Context) id.SiteID {
	v, ok := ctx.Value(ctxKeySiteID).(id.SiteID)
	if !ok {
		return id.Nil
	}
	return v
}
