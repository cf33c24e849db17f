package arbiter

import "testing"

func grantMap(entries ...PermissionGrant) map[PermissionKey]PermissionGrant {
	m := make(map[PermissionKey]PermissionGrant, len(entries))
	for _, g := range entries {
		m[g.Key] = g
	}
	return m
}

func globalGrant(resource, action string, level AccessLevel) PermissionGrant {
	return PermissionGrant{
		Key:    PermissionKey{resource, action},
		Level:  level,
		Source: SourceSystem,
		Scope:  ScopeGlobal,
	}
}

func tenantGrant(resource, action string, level AccessLevel) PermissionGrant {
	return PermissionGrant{
		Key:    PermissionKey{resource, action},
		Level:  level,
		Source: SourceRole,
		Scope:  ScopeTenant,
	}
}

func TestMergeTenantRaisesOnly(t *testing.T) {
	global := grantMap(
		globalGrant("users", "read", AccessAdmin),
		globalGrant("orders", "read", AccessRead),
	)
	tenant := grantMap(
		tenantGrant("users", "read", AccessRead),   // lower: must not demote
		tenantGrant("orders", "read", AccessWrite), // higher: raises
		tenantGrant("reports", "read", AccessRead), // new key
	)

	res := mergeGrants(global, tenant, nil, nil)

	if g := res.grants[PermissionKey{"users", "read"}]; g.Level != AccessAdmin {
		t.Errorf("expected global ADMIN to survive a lower tenant grant, got %s", g.Level)
	}
	if g := res.grants[PermissionKey{"orders", "read"}]; g.Level != AccessWrite {
		t.Errorf("expected tenant WRITE to raise global READ, got %s", g.Level)
	}
	if _, ok := res.grants[PermissionKey{"reports", "read"}]; !ok {
		t.Error("expected tenant-only grant to appear")
	}
}

func TestMergeTieKeepsGlobalEntry(t *testing.T) {
	global := grantMap(globalGrant("orders", "read", AccessWrite))
	tenant := grantMap(tenantGrant("orders", "read", AccessWrite))

	res := mergeGrants(global, tenant, nil, nil)

	g := res.grants[PermissionKey{"orders", "read"}]
	if g.Source != SourceSystem || g.Scope != ScopeGlobal {
		t.Errorf("expected a level tie to keep the global entry, got source=%s scope=%s", g.Source, g.Scope)
	}
}

func TestMergeAdditionalGrantsAreAbsolute(t *testing.T) {
	tenant := grantMap(tenantGrant("orders", "read", AccessRead))

	res := mergeGrants(nil, tenant, []string{"orders:read", "billing:manage"}, nil)

	g := res.grants[PermissionKey{"orders", "read"}]
	if g.Level != AccessAdmin || g.Source != SourceAdditional {
		t.Errorf("expected additional grant at ADMIN, got level=%s source=%s", g.Level, g.Source)
	}
	if g := res.grants[PermissionKey{"billing", "manage"}]; g.Level != AccessAdmin {
		t.Errorf("expected new additional grant at ADMIN, got %s", g.Level)
	}
}

func TestMergeRestrictionsVetoEverything(t *testing.T) {
	global := grantMap(globalGrant("users", "read", AccessAdmin))
	tenant := grantMap(tenantGrant("orders", "read", AccessRead))

	// A restriction removes the key even when an additional grant names it.
	res := mergeGrants(global, tenant, []string{"orders:read"}, []string{"orders:read", "users:read"})

	if _, ok := res.grants[PermissionKey{"orders", "read"}]; ok {
		t.Error("expected restriction to veto the additional grant")
	}
	if _, ok := res.grants[PermissionKey{"users", "read"}]; ok {
		t.Error("expected restriction to veto the global grant")
	}
	if _, ok := res.restricted[PermissionKey{"orders", "read"}]; !ok {
		t.Error("expected restricted key to be recorded")
	}
	if _, ok := res.restricted[PermissionKey{"users", "read"}]; !ok {
		t.Error("expected restricted key to be recorded")
	}
}

func TestMergeRestrictionBlocksWildcardGrant(t *testing.T) {
	tenant := grantMap(tenantGrant(Wildcard, Wildcard, AccessAdmin))

	res := mergeGrants(nil, tenant, nil, []string{"orders:delete"})

	// The wildcard grant survives the merge; the restricted set vetoes
	// the concrete key at lookup time instead.
	if _, ok := res.grants[PermissionKey{Wildcard, Wildcard}]; !ok {
		t.Error("expected the wildcard grant to survive")
	}
	if _, ok := res.restricted[PermissionKey{"orders", "delete"}]; !ok {
		t.Error("expected orders:delete in the restricted set")
	}

	set := &EffectivePermissionSet{Grants: res.grants, Restricted: res.restricted}
	if set.Allows(PermissionKey{"orders", "delete"}, AccessDelete) {
		t.Error("expected the restriction to veto the wildcard grant")
	}
	if !set.Allows(PermissionKey{"orders", "read"}, AccessAdmin) {
		t.Error("expected unrestricted keys to resolve through the wildcard")
	}
}

func TestMergeBareResourceRestriction(t *testing.T) {
	tenant := grantMap(
		tenantGrant("orders", "read", AccessRead),
		tenantGrant("orders", "write", AccessWrite),
		tenantGrant("reports", "read", AccessRead),
	)

	// "orders" with no action restricts every action on the resource.
	res := mergeGrants(nil, tenant, nil, []string{"orders"})

	if _, ok := res.grants[PermissionKey{"orders", "read"}]; ok {
		t.Error("expected orders:read to be stripped")
	}
	if _, ok := res.grants[PermissionKey{"orders", "write"}]; ok {
		t.Error("expected orders:write to be stripped")
	}
	if _, ok := res.grants[PermissionKey{"reports", "read"}]; !ok {
		t.Error("expected unrelated grant to survive")
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	global := grantMap(globalGrant("users", "read", AccessRead))
	tenant := grantMap(tenantGrant("users", "read", AccessWrite))

	mergeGrants(global, tenant, nil, []string{"users:read"})

	if g := global[PermissionKey{"users", "read"}]; g.Level != AccessRead || g.Restricted {
		t.Error("global input map was mutated")
	}
	if g := tenant[PermissionKey{"users", "read"}]; g.Level != AccessWrite || g.Restricted {
		t.Error("tenant input map was mutated")
	}
}

func TestMergeSkipsMalformedStrings(t *testing.T) {
	res := mergeGrants(nil, nil, []string{"", ":read", "orders:"}, []string{""})

	if len(res.grants) != 0 {
		t.Errorf("expected malformed additional entries to be dropped, got %d grants", len(res.grants))
	}
	if len(res.restricted) != 0 {
		t.Errorf("expected malformed restricted entries to be dropped, got %d keys", len(res.restricted))
	}
}
