package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/arbiter"
	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/id"
)

func (a *API) registerAssignmentRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("assignments"))

	if err := g.POST("/assignments", a.assignRole,
		forge.WithSummary("Assign tenant role"),
		forge.WithDescription("Assigns a tenant role to a principal, replacing any existing assignment in the tenant."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithCreatedResponse(&assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/principals/:principalId/tenants/:tenantId/assignment", a.revokeRole,
		forge.WithSummary("Revoke tenant role"),
		forge.WithDescription("Deactivates the principal's assignment in the tenant. Revoking an absent assignment is a no-op."),
		forge.WithOperationID("revokeRole"),
		forge.WithResponseSchema(http.StatusOK, "Revocation outcome", MutationResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/principals/:principalId/default-tenant", a.setDefaultTenant,
		forge.WithSummary("Set default tenant"),
		forge.WithDescription("Marks one of the principal's active assignments as the default tenant."),
		forge.WithOperationID("setDefaultTenant"),
		forge.WithRequestSchema(SetDefaultTenantRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Change outcome", MutationResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/assignments", a.listAssignments,
		forge.WithSummary("List assignments"),
		forge.WithOperationID("listAssignments"),
		forge.WithRequestSchema(ListAssignmentsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Assignment list", ListResponse[*assignment.Assignment]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/assignments/bulk-update", a.bulkUpdate,
		forge.WithSummary("Bulk update role permissions"),
		forge.WithDescription("Applies permission changes to every active assignment of a role within a tenant."),
		forge.WithOperationID("bulkUpdateRolePermissions"),
		forge.WithRequestSchema(BulkUpdateRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Update count", BulkUpdateResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/assignments/copy", a.copyPermissions,
		forge.WithSummary("Copy permissions"),
		forge.WithDescription("Copies one principal's tenant assignment onto another principal."),
		forge.WithOperationID("copyPermissions"),
		forge.WithRequestSchema(CopyPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resulting assignment", &assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/assignments/validate", a.validateAssignment,
		forge.WithSummary("Validate assignment"),
		forge.WithDescription("Dry-run coherence check of a prospective assignment. Nothing is persisted."),
		forge.WithOperationID("validateAssignment"),
		forge.WithRequestSchema(ValidateAssignmentRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Validation result", ValidationResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*assignment.Assignment, error) {
	if req.PrincipalID == "" || req.TenantID == "" || req.RoleType == "" {
		return nil, forge.BadRequest("principal_id, tenant_id, and role_type are required")
	}
	principalID, err := id.ParsePrincipalID(req.PrincipalID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal_id: %v", err))
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant_id: %v", err))
	}

	opts := arbiter.AssignOptions{
		IsDefault:             req.IsDefault,
		AdditionalPermissions: req.AdditionalPermissions,
		RestrictedPermissions: req.RestrictedPermissions,
	}
	for _, raw := range req.AllowedSiteIDs {
		sid, err := id.ParseSiteID(raw)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid allowed site ID %q: %v", raw, err))
		}
		opts.AllowedSiteIDs = append(opts.AllowedSiteIDs, sid)
	}
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid expires_at: %v", err))
		}
		opts.ExpiresAt = &t
	}

	grantedBy := callerID(ctx)
	ass, err := a.eng.Assign(ctx.Context(), principalID, tenantID, arbiter.TenantRole(req.RoleType), grantedBy, opts)
	if err != nil {
		return nil, mapError(err)
	}
	return ass, ctx.JSON(http.StatusCreated, ass)
}

func (a *API) revokeRole(ctx forge.Context, _ *RevokeRoleRequest) (*MutationResponse, error) {
	principalID, err := id.ParsePrincipalID(ctx.Param("principalId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal ID: %v", err))
	}
	tenantID, err := id.ParseTenantID(ctx.Param("tenantId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant ID: %v", err))
	}

	changed, err := a.eng.Revoke(ctx.Context(), principalID, tenantID)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &MutationResponse{Changed: changed}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) setDefaultTenant(ctx forge.Context, req *SetDefaultTenantRequest) (*MutationResponse, error) {
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

	changed, err := a.eng.SetDefaultTenant(ctx.Context(), principalID, tenantID)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &MutationResponse{Changed: changed}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listAssignments(ctx forge.Context, req *ListAssignmentsRequest) (*ListResponse[*assignment.Assignment], error) {
	filter := &assignment.ListFilter{
		RoleType: req.RoleType,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	}
	if req.PrincipalID != "" {
		pid, err := id.ParsePrincipalID(req.PrincipalID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid principal_id: %v", err))
		}
		filter.PrincipalID = &pid
	}
	if req.TenantID != "" {
		tid, err := id.ParseTenantID(req.TenantID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid tenant_id: %v", err))
		}
		filter.TenantID = &tid
	}

	assignments, err := a.eng.Store().ListAssignments(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountAssignments(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*assignment.Assignment]{
		Items:  assignments,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) bulkUpdate(ctx forge.Context, req *BulkUpdateRequest) (*BulkUpdateResponse, error) {
	if req.TenantID == "" || req.RoleType == "" {
		return nil, forge.BadRequest("tenant_id and role_type are required")
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant_id: %v", err))
	}

	updated, err := a.eng.BulkUpdateRolePermissions(ctx.Context(), tenantID, arbiter.TenantRole(req.RoleType), arbiter.BulkPermissionUpdate{
		Add:      req.Add,
		Remove:   req.Remove,
		Restrict: req.Restrict,
	})
	if err != nil {
		return nil, mapError(err)
	}
	resp := &BulkUpdateResponse{Updated: updated}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) copyPermissions(ctx forge.Context, req *CopyPermissionsRequest) (*assignment.Assignment, error) {
	if req.FromPrincipalID == "" || req.ToPrincipalID == "" || req.TenantID == "" {
		return nil, forge.BadRequest("from_principal_id, to_principal_id, and tenant_id are required")
	}
	from, err := id.ParsePrincipalID(req.FromPrincipalID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid from_principal_id: %v", err))
	}
	to, err := id.ParsePrincipalID(req.ToPrincipalID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid to_principal_id: %v", err))
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid tenant_id: %v", err))
	}

	ass, err := a.eng.CopyPermissions(ctx.Context(), from, to, tenantID, callerID(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return ass, ctx.JSON(http.StatusOK, ass)
}

func (a *API) validateAssignment(ctx forge.Context, req *ValidateAssignmentRequest) (*ValidationResponse, error) {
	result := arbiter.ValidateAssignment(
		arbiter.GlobalRole(req.GlobalRole),
		arbiter.TenantRole(req.RoleType),
		req.AdditionalPermissions,
		req.RestrictedPermissions,
	)
	resp := &ValidationResponse{
		Valid:    result.Valid,
		Errors:   result.Errors,
		Warnings: result.Warnings,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

// callerID resolves the authenticated caller for audit attribution.
// Anonymous callers yield a nil ID, which is stored as an empty
// granted_by.
func callerID(ctx forge.Context) id.PrincipalID {
	uid := forge.UserIDFromContext(ctx.Context())
	if uid == "" {
		return id.PrincipalID{}
	}
	pid, err := id.ParsePrincipalID(uid)
	if err != nil {
		return id.PrincipalID{}
	}
	return pid
}
