package api

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/xraph/forge"

	"github.com/xraph/arbiter"
	"github.com/xraph/arbiter/id"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1/authz", forge.WithGroupTags("authorization"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Permission check"),
		forge.WithDescription("Evaluates whether the principal holds the permission at the required level in the tenant."),
		forge.WithOperationID("authzCheck"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce permission"),
		forge.WithDescription("Returns 200 if allowed, 403 if denied."),
		forge.WithOperationID("authzEnforce"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/batch-check", a.batchCheck,
		forge.WithSummary("Batch permission check"),
		forge.WithDescription("Evaluates multiple permission checks in one request."),
		forge.WithOperationID("authzBatchCheck"),
		forge.WithRequestSchema(BatchCheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchCheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/principals/:principalId/permissions", a.resolvePermissions,
		forge.WithSummary("Resolve effective permissions"),
		forge.WithDescription("Returns the principal's full resolved permission set for a tenant."),
		forge.WithOperationID("authzResolvePermissions"),
		forge.WithRequestSchema(ResolveRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Effective permission set", PermissionSetResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	cr, err := toCheckRequest(req)
	if err != nil {
		return nil, err
	}
	result, err := a.eng.Check(ctx.Context(), cr)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toCheckResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	cr, err := toCheckRequest(req)
	if err != nil {
		return nil, err
	}
	result, err := a.eng.Check(ctx.Context(), cr)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toCheckResponse(result)
	if !result.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchCheck(ctx forge.Context, req *BatchCheckRequest) (*BatchCheckResponse, error) {
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}

	results := make([]CheckResponse, len(req.Checks))
	for i, c := range req.Checks {
		cr, err := toCheckRequest(&c)
		if err != nil {
			return nil, err
		}
		result, err := a.eng.Check(ctx.Context(), cr)
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toCheckResponse(result)
	}

	resp := &BatchCheckResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) resolvePermissions(ctx forge.Context, req *ResolveRequest) (*PermissionSetResponse, error) {
	principalID, err := id.ParsePrincipalID(ctx.Param("principalId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal ID: %v", err))
	}
	if req.TenantID == "" {
		return nil, forge.BadRequest("tenant_id is required")
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant_id: %v", err))
	}
	var siteID id.SiteID
	if req.SiteID != "" {
		siteID, err = id.ParseSiteID(req.SiteID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid site_id: %v", err))
		}
	}

	set, err := a.eng.EffectivePermissions(ctx.Context(), principalID, tenantID, siteID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toPermissionSetResponse(set)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toCheckRequest(r *CheckRequest) (*arbiter.CheckRequest, error) {
	if r.PrincipalID == "" || r.TenantID == "" || r.Resource == "" || r.Action == "" {
		return nil, forge.BadRequest("principal_id, tenant_id, resource, and action are required")
	}
	principalID, err := id.ParsePrincipalID(r.PrincipalID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal_id: %v", err))
	}
	tenantID, err := id.ParseTenantID(r.TenantID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant_id: %v", err))
	}
	cr := &arbiter.CheckRequest{
		PrincipalID:   principalID,
		TenantID:      tenantID,
		Resource:      r.Resource,
		Action:        r.Action,
		RequiredLevel: arbiter.AccessLevel(r.RequiredLevel),
	}
	if r.SiteID != "" {
		siteID, err := id.ParseSiteID(r.SiteID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid site_id: %v", err))
		}
		cr.SiteID = siteID
	}
	return cr, nil
}

func toCheckResponse(r *arbiter.CheckResult) *CheckResponse {
	resp := &CheckResponse{
		Allowed:    r.Allowed,
		Decision:   string(r.Decision),
		Reason:     r.Reason,
		EvalTimeNs: r.EvalTimeNs,
	}
	if r.Grant != nil {
		resp.Grant = &GrantInfo{
			Key:    r.Grant.Key.String(),
			Level:  string(r.Grant.Level),
			Source: string(r.Grant.Source),
			Scope:  string(r.Grant.Scope),
		}
	}
	return resp
}

func toPermissionSetResponse(set *arbiter.EffectivePermissionSet) *PermissionSetResponse {
	resp := &PermissionSetResponse{
		PrincipalID: set.PrincipalID.String(),
		TenantID:    set.TenantID.String(),
		Role:        string(set.Role),
		ComputedAt:  set.ComputedAt,
	}
	if !set.SiteID.IsNil() {
		resp.SiteID = set.SiteID.String()
	}
	resp.Grants = make([]GrantInfo, 0, len(set.Grants))
	for _, g := range set.Grants {
		resp.Grants = append(resp.Grants, GrantInfo{
			Key:    g.Key.String(),
			Level:  string(g.Level),
			Source: string(g.Source),
			Scope:  string(g.Scope),
		})
	}
	sort.Slice(resp.Grants, func(i, j int) bool { return resp.Grants[i].Key < resp.Grants[j].Key })
	for key := range set.Restricted {
		resp.Restricted = append(resp.Restricted, key.String())
	}
	sort.Strings(resp.Restricted)
	return resp
}
