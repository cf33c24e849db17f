package arbiter

// Built-in grant catalogs. Each tenant role inherits every grant of the
// roles ranked beneath it, then layers on its own. Global roles carry a
// separate, narrower catalog applied system-wide.

// catalogEntry grants one key at one level to every role whose weight
// meets the threshold.
type catalogEntry struct {
	key       PermissionKey
	level     AccessLevel
	minWeight int
}

// tenantCatalog is ordered low-privilege first. Thresholds reference
// TenantRole weights (VIEWER=10 .. OWNER=100).
var tenantCatalog = []catalogEntry{
	// VIEWER and up.
	{PermissionKey{"dashboard", "read"}, AccessRead, 10},
	{PermissionKey{"reports", "read"}, AccessRead, 10},

	// GUEST and up.
	{PermissionKey{"orders", "read"}, AccessRead, 20},
	{PermissionKey{"products", "read"}, AccessRead, 20},
	{PermissionKey{"sites", "read"}, AccessRead, 20},

	// USER and up.
	{PermissionKey{"profile", "write"}, AccessWrite, 30},
	{PermissionKey{"orders", "write"}, AccessWrite, 30},
	{PermissionKey{"tickets", "write"}, AccessWrite, 30},

	// OPERATOR and up.
	{PermissionKey{"tasks", "write"}, AccessWrite, 40},
	{PermissionKey{"inventory", "read"}, AccessRead, 40},

	// TECHNICIAN and up.
	{PermissionKey{"workorders", "write"}, AccessWrite, 50},
	{PermissionKey{"inventory", "write"}, AccessWrite, 50},

	// ACCOUNTANT and up.
	{PermissionKey{"invoices", "write"}, AccessWrite, 60},
	{PermissionKey{"invoices", "delete"}, AccessDelete, 60},
	{PermissionKey{"payments", "write"}, AccessWrite, 60},
	{PermissionKey{"reports", "write"}, AccessWrite, 60},

	// COMMERCIAL and up.
	{PermissionKey{"quotes", "write"}, AccessWrite, 70},
	{PermissionKey{"customers", "write"}, AccessWrite, 70},

	// MANAGER and up.
	{PermissionKey{"orders", "approve"}, AccessWrite, 80},
	{PermissionKey{"orders", "delete"}, AccessDelete, 80},
	{PermissionKey{"inventory", "delete"}, AccessDelete, 80},
	{PermissionKey{"reports", "delete"}, AccessDelete, 80},
	{PermissionKey{"users", "read"}, AccessRead, 80},
	{PermissionKey{"staff", "write"}, AccessWrite, 80},

	// ADMIN and up.
	{PermissionKey{"users", "write"}, AccessWrite, 90},
	{PermissionKey{"users", "delete"}, AccessDelete, 90},
	{PermissionKey{"settings", "write"}, AccessAdmin, 90},
	{PermissionKey{"sites", "write"}, AccessAdmin, 90},
	{PermissionKey{"roles", "write"}, AccessAdmin, 90},

	// OWNER only: everything.
	{PermissionKey{Wildcard, Wildcard}, AccessAdmin, 100},
}

// globalCatalog thresholds reference GlobalRole weights (GUEST=10 ..
// SUPER_ADMIN=50).
var globalCatalog = []catalogEntry{
	// USER and up.
	{PermissionKey{"profile", "write"}, AccessWrite, 20},

	// MANAGER and up.
	{PermissionKey{"reports", "read"}, AccessRead, 30},
	{PermissionKey{"orders", "read"}, AccessRead, 30},
	{PermissionKey{"users", "read"}, AccessRead, 30},

	// ADMIN and up.
	{PermissionKey{"users", "read"}, AccessAdmin, 40},
	{PermissionKey{"users", "write"}, AccessAdmin, 40},
	{PermissionKey{"users", "delete"}, AccessAdmin, 40},
	{PermissionKey{"tenants", "read"}, AccessAdmin, 40},
	{PermissionKey{"tenants", "write"}, AccessWrite, 40},
	{PermissionKey{"reports", "write"}, AccessAdmin, 40},
	{PermissionKey{"settings", "write"}, AccessAdmin, 40},
	{PermissionKey{"audit", "read"}, AccessRead, 40},

	// SUPER_ADMIN only: everything.
	{PermissionKey{Wildcard, Wildcard}, AccessAdmin, 50},
}

// tenantRoleGrants builds the role-derived grant map for a tenant role.
func tenantRoleGrants(role TenantRole) map[PermissionKey]PermissionGrant {
	return buildCatalog(tenantCatalog, role.Weight(), SourceRole, ScopeTenant)
}

// globalRoleGrants builds the grant map a global role carries into
// every tenant.
func globalRoleGrants(role GlobalRole) map[PermissionKey]PermissionGrant {
	return buildCatalog(globalCatalog, role.Weight(), SourceSystem, ScopeGlobal)
}

func buildCatalog(entries []catalogEntry, weight int, source GrantSource, scope GrantScope) map[PermissionKey]PermissionGrant {
	grants := make(map[PermissionKey]PermissionGrant)
	for _, e := range entries {
		if weight < e.minWeight {
			continue
		}
		// Later entries for the same key override earlier, lower-rank
		// ones only when they raise the level.
		if existing, ok := grants[e.key]; ok && existing.Level.AtLeast(e.level) {
			continue
		}
		grants[e.key] = PermissionGrant{
			Key:    e.key,
			Level:  e.level,
			Source: source,
			Scope:  scope,
		}
	}
	return grants
}
