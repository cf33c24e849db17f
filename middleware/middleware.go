// Package middleware provides HTTP authorization middleware for Arbiter.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/arbiter"
	"github.com/xraph/arbiter/id"
)

// Require enforces a permission at the given level. It resolves the
// principal from the request context (Forge user > anonymous) and the
// tenant/site scope from forge.Scope or the standalone context keys.
// Requests without a resolvable principal or tenant are denied.
func Require(eng *arbiter.Engine, resource, action string, level arbiter.AccessLevel) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			req, ok := buildRequest(ctx, resource, action, level)
			if !ok {
				return denyResponse(ctx)
			}
			if err := eng.Enforce(ctx.Context(), req); err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// PermissionCheck names one permission requirement for RequireAny and
// RequireAll.
type PermissionCheck struct {
	Resource string
	Action   string
	Level    arbiter.AccessLevel
}

// RequireAny allows the request if ANY of the checks pass.
func RequireAny(eng *arbiter.Engine, checks ...PermissionCheck) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			for _, c := range checks {
				req, ok := buildRequest(ctx, c.Resource, c.Action, c.Level)
				if !ok {
					continue
				}
				result, err := eng.Check(ctx.Context(), req)
				if err == nil && result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL checks pass.
func RequireAll(eng *arbiter.Engine, checks ...PermissionCheck) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			for _, c := range checks {
				req, ok := buildRequest(ctx, c.Resource, c.Action, c.Level)
				if !ok {
					return denyResponse(ctx)
				}
				if err := eng.Enforce(ctx.Context(), req); err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// buildRequest assembles a check request from the request context.
// Reports false when the principal or tenant cannot be resolved, which
// callers treat as a denial.
func buildRequest(ctx forge.Context, resource, action string, level arbiter.AccessLevel) (*arbiter.CheckRequest, bool) {
	userID := forge.UserIDFromContext(ctx.Context())
	if userID == "" {
		return nil, false
	}
	principalID, err := id.ParsePrincipalID(userID)
	if err != nil {
		return nil, false
	}
	scope := arbiter.ScopeFromContext(ctx.Context())
	if scope.TenantID.IsNil() {
		return nil, false
	}
	return &arbiter.CheckRequest{
		PrincipalID:   principalID,
		TenantID:      scope.TenantID,
		SiteID:        scope.SiteID,
		Resource:      resource,
		Action:        action,
		RequiredLevel: level,
	}, true
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
