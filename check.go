package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/id"
)

// CheckRequest is the input to a permission check.
type CheckRequest struct {
	PrincipalID id.PrincipalID `json:"principal_id"`
	TenantID    id.TenantID    `json:"tenant_id"`
	SiteID      id.SiteID      `json:"site_id,omitempty"`
	Resource    string         `json:"resource"`
	Action      string         `json:"action"`

	// RequiredLevel defaults to READ when empty.
	RequiredLevel AccessLevel `json:"required_level,omitempty"`
}

// Decision is the permission check outcome.
type Decision string

const (
	// DecisionAllow means the permission is granted at the required level.
	DecisionAllow Decision = "allow"

	// DecisionDenyRestricted means an explicit restriction covers the key.
	DecisionDenyRestricted Decision = "deny_restricted"

	// DecisionDenyInsufficient means a grant exists below the required level.
	DecisionDenyInsufficient Decision = "deny_insufficient_level"

	// DecisionDenyNoGrant means no grant covers the key. This includes
	// unknown principals, missing assignments, and site-scope denials,
	// all of which resolve to an empty permission set.
	DecisionDenyNoGrant Decision = "deny_no_grant"
)

// CheckResult is the outcome of a permission check.
type CheckResult struct {
	Allowed    bool             `json:"allowed"`
	Decision   Decision         `json:"decision"`
	Reason     string           `json:"reason,omitempty"`
	Grant      *PermissionGrant `json:"grant,omitempty"`
	EvalTimeNs int64            `json:"eval_time_ns"`
}

// Check resolves the principal's effective permissions and evaluates
// one (resource, action, level) query against them. This is the hot path.
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	start := time.Now()

	required := req.RequiredLevel
	if required == "" {
		required = AccessRead
	}

	set, err := e.EffectivePermissions(ctx, req.PrincipalID, req.TenantID, req.SiteID)
	if err != nil {
		e.recordDecision(ctx, req, required, decisionlog.OutcomeUnavailable, err.Error(), time.Since(start))
		return nil, err
	}

	key := PermissionKey{Resource: req.Resource, Action: req.Action}
	result := evaluate(set, key, required)
	result.EvalTimeNs = time.Since(start).Nanoseconds()

	outcome := decisionlog.OutcomeDeny
	if result.Allowed {
		outcome = decisionlog.OutcomeAllow
	}
	e.recordDecision(ctx, req, required, outcome, result.Reason, time.Since(start))

	return result, nil
}

// HasPermission is a shorthand for a single allow/deny answer. The
// required level defaults to READ; pass id.Nil for siteID when no site
// scope applies.
func (e *Engine) HasPermission(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, resource, action string, required AccessLevel, siteID id.SiteID) (bool, error) {
	result, err := e.Check(ctx, &CheckRequest{
		PrincipalID:   principalID,
		TenantID:      tenantID,
		SiteID:        siteID,
		Resource:      resource,
		Action:        action,
		RequiredLevel: required,
	})
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// Enforce returns an error if the permission check is denied.
func (e *Engine) Enforce(ctx context.Context, req *CheckRequest) error {
	result, err := e.Check(ctx, req)
	if err != nil {
		return fmt.Errorf("arbiter check: %w", err)
	}
	if !result.Allowed {
		return fmt.Errorf("%w: %s: %s", ErrAccessDenied, result.Decision, result.Reason)
	}
	return nil
}

// evaluate answers one key/level query against a resolved set.
func evaluate(set *EffectivePermissionSet, key PermissionKey, required AccessLevel) *CheckResult {
	if set.IsRestricted(key) {
		return &CheckResult{
			Decision: DecisionDenyRestricted,
			Reason:   fmt.Sprintf("permission %s is explicitly restricted", key),
		}
	}
	grant, ok := set.Lookup(key)
	if !ok || grant.Restricted || grant.Level == AccessBlocked {
		return &CheckResult{
			Decision: DecisionDenyNoGrant,
			Reason:   fmt.Sprintf("no grant covers %s", key),
		}
	}
	if !grant.Level.AtLeast(required) {
		return &CheckResult{
			Decision: DecisionDenyInsufficient,
			Reason:   fmt.Sprintf("grant level %s is below required %s", grant.Level, required),
			Grant:    &grant,
		}
	}
	return &CheckResult{
		Allowed:  true,
		Decision: DecisionAllow,
		Grant:    &grant,
	}
}

// recordDecision appends to the decision audit log when enabled.
// Best-effort: a log write failure never affects the check outcome.
func (e *Engine) recordDecision(ctx context.Context, req *CheckRequest, required AccessLevel, outcome decisionlog.Outcome, reason string, elapsed time.Duration) {
	if !e.config.decisionLogEnabled() {
		return
	}
	entry := &decisionlog.Entry{
		ID:            id.NewDecisionLogID(),
		PrincipalID:   req.PrincipalID,
		TenantID:      req.TenantID,
		SiteID:        req.SiteID,
		Resource:      req.Resource,
		Action:        req.Action,
		RequiredLevel: string(required),
		Outcome:       outcome,
		Reason:        reason,
		EvalTimeNs:    elapsed.Nanoseconds(),
		CreatedAt:     e.now(),
	}
	if err := e.store.CreateDecisionLog(ctx, entry); err != nil {
		e.logger.Warn("decision log write failed",
			slog.String("principal_id", req.PrincipalID.String()),
			slog.String("error", err.Error()))
	}
}
