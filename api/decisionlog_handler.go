package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/id"
)

func (a *API) registerDecisionLogRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("decision-logs"))

	return g.GET("/decision-logs", a.listDecisionLogs,
		forge.WithSummary("Query decision logs"),
		forge.WithDescription("Returns permission decision audit entries with optional filters."),
		forge.WithOperationID("listDecisionLogs"),
		forge.WithRequestSchema(ListDecisionLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision log list", []*decisionlog.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listDecisionLogs(ctx forge.Context, req *ListDecisionLogsRequest) ([]*decisionlog.Entry, error) {
	filter := &decisionlog.QueryFilter{
		Resource: req.Resource,
		Action:   req.Action,
		Outcome:  decisionlog.Outcome(req.Outcome),
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
	if req.After != "" {
		t, err := time.Parse(time.RFC3339, req.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		filter.After = &t
	}
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		filter.Before = &t
	}

	logs, err := a.eng.Store().ListDecisionLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return logs, ctx.JSON(http.StatusOK, logs)
}
