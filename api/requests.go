package api

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for a permission check.
type CheckRequest struct {
	PrincipalID   string `json:"principal_id" description:"Principal identifier"`
	TenantID      string `json:"tenant_id" description:"Tenant identifier"`
	SiteID        string `json:"site_id,omitempty" description:"Optional site scope"`
	Resource      string `json:"resource" description:"Resource name (e.g. orders)"`
	Action        string `json:"action" description:"Action name (e.g. approve)"`
	RequiredLevel string `json:"required_level,omitempty" description:"Required access level (default: READ)"`
}

// BatchCheckRequest contains multiple checks.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" description:"List of permission checks"`
}

// ResolveRequest holds query parameters for resolving effective permissions.
type ResolveRequest struct {
	TenantID string `query:"tenant_id" description:"Tenant identifier"`
	SiteID   string `query:"site_id" description:"Optional site scope"`
}

// ──────────────────────────────────────────────────
// Principal requests
// ──────────────────────────────────────────────────

// CreatePrincipalRequest is the body for creating a principal.
type CreatePrincipalRequest struct {
	GlobalRole  string `json:"global_role" description:"Global role (SUPER_ADMIN, ADMIN, MANAGER, USER, GUEST)"`
	DisplayName string `json:"display_name,omitempty" description:"Display name"`
	Email       string `json:"email,omitempty" description:"Email address"`
}

// UpdatePrincipalRequest is the body for updating a principal.
type UpdatePrincipalRequest struct {
	GlobalRole  string `json:"global_role,omitempty" description:"Global role"`
	DisplayName string `json:"display_name,omitempty" description:"Display name"`
	Email       string `json:"email,omitempty" description:"Email address"`
	IsActive    *bool  `json:"is_active,omitempty" description:"Active flag"`
}

// GetPrincipalRequest is the path parameter for principal lookups.
type GetPrincipalRequest struct {
	PrincipalID string `path:"principalId" description:"Principal ID"`
}

// ListPrincipalsRequest holds query parameters for listing principals.
type ListPrincipalsRequest struct {
	GlobalRole string `query:"global_role" description:"Filter by global role"`
	Search     string `query:"search" description:"Search by name or email"`
	Limit      int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset     int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Assignment requests
// ──────────────────────────────────────────────────

// AssignRoleRequest is the body for assigning a tenant role to a principal.
type AssignRoleRequest struct {
	PrincipalID           string   `json:"principal_id" description:"Principal identifier"`
	TenantID              string   `json:"tenant_id" description:"Tenant identifier"`
	RoleType              string   `json:"role_type" description:"Tenant role (OWNER, ADMIN, MANAGER, MEMBER, VIEWER, GUEST)"`
	IsDefault             bool     `json:"is_default,omitempty" description:"Make this the principal's default tenant"`
	AdditionalPermissions []string `json:"additional_permissions,omitempty" description:"Extra permission keys granted at ADMIN level"`
	RestrictedPermissions []string `json:"restricted_permissions,omitempty" description:"Permission keys explicitly blocked"`
	AllowedSiteIDs        []string `json:"allowed_site_ids,omitempty" description:"Site IDs the assignment is limited to (empty = all)"`
	ExpiresAt             string   `json:"expires_at,omitempty" description:"RFC3339 expiry timestamp"`
}

// RevokeRoleRequest holds path parameters for revoking an assignment.
type RevokeRoleRequest struct {
	PrincipalID string `path:"principalId" description:"Principal ID"`
	TenantID    string `path:"tenantId" description:"Tenant ID"`
}

// SetDefaultTenantRequest is the body for changing a default tenant.
type SetDefaultTenantRequest struct {
	TenantID string `json:"tenant_id" description:"Tenant to make the default"`
}

// ListAssignmentsRequest holds query parameters for listing assignments.
type ListAssignmentsRequest struct {
	PrincipalID string `query:"principal_id" description:"Filter by principal"`
	TenantID    string `query:"tenant_id" description:"Filter by tenant"`
	RoleType    string `query:"role_type" description:"Filter by tenant role"`
	Limit       int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset      int    `query:"offset" description:"Results to skip"`
}

// BulkUpdateRequest is the body for a bulk role permission update.
type BulkUpdateRequest struct {
	TenantID string   `json:"tenant_id" description:"Tenant identifier"`
	RoleType string   `json:"role_type" description:"Tenant role whose assignments to update"`
	Add      []string `json:"add,omitempty" description:"Permission keys to add to additional grants"`
	Remove   []string `json:"remove,omitempty" description:"Permission keys to remove from additional grants"`
	Restrict []string `json:"restrict,omitempty" description:"Permission keys to add to restrictions"`
}

// CopyPermissionsRequest is the body for copying an assignment.
type CopyPermissionsRequest struct {
	FromPrincipalID string `json:"from_principal_id" description:"Source principal"`
	ToPrincipalID   string `json:"to_principal_id" description:"Target principal"`
	TenantID        string `json:"tenant_id" description:"Tenant identifier"`
}

// ValidateAssignmentRequest is the body for a dry-run assignment validation.
type ValidateAssignmentRequest struct {
	GlobalRole            string   `json:"global_role" description:"Principal's global role"`
	RoleType              string   `json:"role_type" description:"Prospective tenant role"`
	AdditionalPermissions []string `json:"additional_permissions,omitempty" description:"Prospective additional grants"`
	RestrictedPermissions []string `json:"restricted_permissions,omitempty" description:"Prospective restrictions"`
}

// ──────────────────────────────────────────────────
// Decision log requests
// ──────────────────────────────────────────────────

// ListDecisionLogsRequest holds query parameters for decision log queries.
type ListDecisionLogsRequest struct {
	PrincipalID string `query:"principal_id" description:"Filter by principal"`
	TenantID    string `query:"tenant_id" description:"Filter by tenant"`
	Resource    string `query:"resource" description:"Filter by resource"`
	Action      string `query:"action" description:"Filter by action"`
	Outcome     string `query:"outcome" description:"Filter by outcome (allow, deny)"`
	After       string `query:"after" description:"RFC3339 lower bound"`
	Before      string `query:"before" description:"RFC3339 upper bound"`
	Limit       int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset      int    `query:"offset" description:"Results to skip"`
}
