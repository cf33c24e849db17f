// Package decisionlog defines the permission-check audit log Entry entity.
package decisionlog

import (
	"time"

	"github.com/xraph/arbiter/id"
)

// Outcome distinguishes why a check resolved the way it did. Denials
// due to absence are ordinary "deny"; collaborator failures are
// "unavailable" so the two are never confused in audit logs.
type Outcome string

const (
	// OutcomeAllow means the permission was granted.
	OutcomeAllow Outcome = "allow"

	// OutcomeDeny means the permission was absent, below the required
	// level, or restricted.
	OutcomeDeny Outcome = "deny"

	// OutcomeUnavailable means the check could not be completed because
	// a collaborator failed.
	OutcomeUnavailable Outcome = "unavailable"
)

// Entry is a single permission-check audit record.
type Entry struct {
	ID            id.DecisionLogID `json:"id" db:"id"`
	PrincipalID   id.PrincipalID   `json:"principal_id" db:"principal_id"`
	TenantID      id.TenantID      `json:"tenant_id" db:"tenant_id"`
	SiteID        id.SiteID        `json:"site_id,omitempty" db:"site_id"`
	Resource      string           `json:"resource" db:"resource"`
	Action        string           `json:"action" db:"action"`
	RequiredLevel string           `json:"required_level" db:"required_level"`
	Outcome       Outcome          `json:"outcome" db:"outcome"`
	Reason        string           `json:"reason,omitempty" db:"reason"`
	EvalTimeNs    int64            `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying decision logs.
type QueryFilter struct {
	PrincipalID *id.PrincipalID `json:"principal_id,omitempty"`
	TenantID    *id.TenantID    `json:"tenant_id,omitempty"`
	Resource    string          `json:"resource,omitempty"`
	Action      string          `json:"action,omitempty"`
	Outcome     Outcome         `json:"outcome,omitempty"`
	After       *time.Time      `json:"after,omitempty"`
	Before      *time.Time      `json:"before,omitempty"`
	Limit       int             `json:"limit,omitempty"`
	Offset      int             `json:"offset,omitempty"`
}
