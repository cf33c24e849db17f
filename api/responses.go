package api

import "time"

// CheckResponse is the response for a permission check.
type CheckResponse struct {
	Allowed    bool       `json:"allowed" description:"Whether the request is allowed"`
	Decision   string     `json:"decision" description:"Decision code"`
	Reason     string     `json:"reason,omitempty" description:"Human-readable reason"`
	Grant      *GrantInfo `json:"grant,omitempty" description:"The grant that decided the check"`
	EvalTimeNs int64      `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// GrantInfo describes one effective permission grant.
type GrantInfo struct {
	Key    string `json:"key" description:"Permission key (resource:action)"`
	Level  string `json:"level" description:"Access level"`
	Source string `json:"source" description:"Grant source (global_role, tenant_role, additional)"`
	Scope  string `json:"scope" description:"Grant scope (global, tenant)"`
}

// BatchCheckResponse contains results for multiple checks.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results in order"`
}

// PermissionSetResponse is the resolved permission set for one
// (principal, tenant, site) triple.
type PermissionSetResponse struct {
	PrincipalID string      `json:"principal_id" description:"Principal identifier"`
	TenantID    string      `json:"tenant_id" description:"Tenant identifier"`
	SiteID      string      `json:"site_id,omitempty" description:"Site scope, if any"`
	Role        string      `json:"role,omitempty" description:"Effective tenant role"`
	Grants      []GrantInfo `json:"grants" description:"Effective grants"`
	Restricted  []string    `json:"restricted,omitempty" description:"Explicitly blocked keys"`
	ComputedAt  time.Time   `json:"computed_at" description:"Resolution timestamp"`
}

// MutationResponse reports the outcome of an assignment mutation.
type MutationResponse struct {
	Changed bool `json:"changed" description:"Whether any state changed"`
}

// BulkUpdateResponse reports how many assignments a bulk update touched.
type BulkUpdateResponse struct {
	Updated int `json:"updated" description:"Number of assignments updated"`
}

// ValidationResponse is the outcome of a dry-run assignment validation.
type ValidationResponse struct {
	Valid    bool     `json:"valid" description:"Whether the assignment is coherent"`
	Errors   []string `json:"errors,omitempty" description:"Blocking problems"`
	Warnings []string `json:"warnings,omitempty" description:"Non-blocking advisories"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
