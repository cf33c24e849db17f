package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/arbiter"
	"github.com/xraph/arbiter/id"
	"github.com/xraph/arbiter/principal"
)

func (a *API) registerPrincipalRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("principals"))

	if err := g.POST("/principals", a.createPrincipal,
		forge.WithSummary("Create principal"),
		forge.WithOperationID("createPrincipal"),
		forge.WithRequestSchema(CreatePrincipalRequest{}),
		forge.WithCreatedResponse(&principal.Principal{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/principals/:principalId", a.getPrincipal,
		forge.WithSummary("Get principal"),
		forge.WithOperationID("getPrincipal"),
		forge.WithResponseSchema(http.StatusOK, "Principal", &principal.Principal{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/principals/:principalId", a.updatePrincipal,
		forge.WithSummary("Update principal"),
		forge.WithDescription("Updates a principal; a global role change invalidates all of its cached permissions."),
		forge.WithOperationID("updatePrincipal"),
		forge.WithRequestSchema(UpdatePrincipalRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated principal", &principal.Principal{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/principals", a.listPrincipals,
		forge.WithSummary("List principals"),
		forge.WithOperationID("listPrincipals"),
		forge.WithRequestSchema(ListPrincipalsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Principal list", ListResponse[*principal.Principal]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/principals/:principalId", a.deletePrincipal,
		forge.WithSummary("Delete principal"),
		forge.WithOperationID("deletePrincipal"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPrincipal(ctx forge.Context, req *CreatePrincipalRequest) (*principal.Principal, error) {
	role := arbiter.GlobalRole(req.GlobalRole)
	if !role.Valid() {
		return nil, forge.BadRequest(fmt.Sprintf("unknown global role %q", req.GlobalRole))
	}

	p := &principal.Principal{
		ID:          id.NewPrincipalID(),
		GlobalRole:  string(role),
		DisplayName: req.DisplayName,
		Email:       req.Email,
		IsActive:    true,
	}
	if err := a.eng.Store().CreatePrincipal(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPrincipal(ctx forge.Context, _ *GetPrincipalRequest) (*principal.Principal, error) {
	principalID, err := id.ParsePrincipalID(ctx.Param("principalId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal ID: %v", err))
	}

	p, err := a.eng.Store().FindPrincipal(ctx.Context(), principalID)
	if err != nil {
		return nil, mapError(err)
	}
	if p == nil {
		return nil, forge.NotFound(arbiter.ErrPrincipalNotFound.Error())
	}
	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) updatePrincipal(ctx forge.Context, req *UpdatePrincipalRequest) (*principal.Principal, error) {
	principalID, err := id.ParsePrincipalID(ctx.Param("principalId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal ID: %v", err))
	}

	p, err := a.eng.Store().FindPrincipal(ctx.Context(), principalID)
	if err != nil {
		return nil, mapError(err)
	}
	if p == nil {
		return nil, forge.NotFound(arbiter.ErrPrincipalNotFound.Error())
	}

	invalidate := false
	if req.GlobalRole != "" && req.GlobalRole != p.GlobalRole {
		role := arbiter.GlobalRole(req.GlobalRole)
		if !role.Valid() {
			return nil, forge.BadRequest(fmt.Sprintf("unknown global role %q", req.GlobalRole))
		}
		p.GlobalRole = string(role)
		invalidate = true
	}
	if req.DisplayName != "" {
		p.DisplayName = req.DisplayName
	}
	if req.Email != "" {
		p.Email = req.Email
	}
	if req.IsActive != nil && *req.IsActive != p.IsActive {
		p.IsActive = *req.IsActive
		invalidate = true
	}

	if err := a.eng.Store().UpdatePrincipal(ctx.Context(), p); err != nil {
		return nil, mapError(err)
	}
	if invalidate {
		a.eng.InvalidatePrincipal(ctx.Context(), principalID)
	}
	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) listPrincipals(ctx forge.Context, req *ListPrincipalsRequest) (*ListResponse[*principal.Principal], error) {
	filter := &principal.ListFilter{
		GlobalRole: req.GlobalRole,
		Search:     req.Search,
		Limit:      defaultLimit(req.Limit),
		Offset:     req.Offset,
	}

	principals, err := a.eng.Store().ListPrincipals(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.Store().CountPrincipals(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*principal.Principal]{
		Items:  principals,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) deletePrincipal(ctx forge.Context, _ *GetPrincipalRequest) (*struct{}, error) {
	principalID, err := id.ParsePrincipalID(ctx.Param("principalId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid principal ID: %v", err))
	}

	if err := a.eng.Store().DeletePrincipal(ctx.Context(), principalID); err != nil {
		return nil, mapError(err)
	}
	a.eng.InvalidatePrincipal(ctx.Context(), principalID)
	return nil, ctx.NoContent(http.StatusNoContent)
}
