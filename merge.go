package arbiter

// mergeResult carries the output of mergeGrants: the surviving grants
// plus the restriction keys stripped from them.
type mergeResult struct {
	grants     map[PermissionKey]PermissionGrant
	restricted map[PermissionKey]struct{}
}

// mergeGrants combines the four permission sources into one grant map.
// The order of the steps is load-bearing:
//
//  1. Seed with the global-role grants.
//  2. Overlay tenant-role grants, raising levels only. A tie or a lower
//     tenant level keeps the global entry, so a weak tenant role can
//     never demote global authority.
//  3. Insert the assignment's additional permissions at ADMIN level,
//     unconditionally. Explicit grants bypass level comparison.
//  4. Mark every entry covered by a restricted permission as BLOCKED.
//     Restrictions run after additional grants so they veto those too.
//  5. Strip blocked and restricted entries from the result.
//
// The result is built as a fresh map; inputs are never mutated.
func mergeGrants(global, tenant map[PermissionKey]PermissionGrant, additional, restricted []string) mergeResult {
	grants := make(map[PermissionKey]PermissionGrant, len(global)+len(tenant)+len(additional))

	// Step 1: global baseline.
	for key, g := range global {
		grants[key] = g
	}

	// Step 2: tenant overlay, strictly-higher levels only.
	for key, g := range tenant {
		existing, ok := grants[key]
		if ok && g.Level.Compare(existing.Level) != OrderGreater {
			continue
		}
		grants[key] = g
	}

	// Step 3: explicit additional grants, absolute.
	for _, raw := range additional {
		key, err := ParsePermissionKey(raw)
		if err != nil {
			continue // malformed entries are rejected at assignment time
		}
		grants[key] = PermissionGrant{
			Key:    key,
			Level:  AccessAdmin,
			Source: SourceAdditional,
			Scope:  ScopeTenant,
		}
	}

	// Step 4: restrictions always win.
	restrictedKeys := make(map[PermissionKey]struct{}, len(restricted))
	for _, raw := range restricted {
		rkey, err := ParsePermissionKey(raw)
		if err != nil {
			continue
		}
		restrictedKeys[rkey] = struct{}{}
		for key, g := range grants {
			if rkey != key && !matchKey(rkey, key) {
				continue
			}
			g.Restricted = true
			g.Level = AccessBlocked
			grants[key] = g
		}
	}

	// Step 5: strip blocked entries.
	final := make(map[PermissionKey]PermissionGrant, len(grants))
	for key, g := range grants {
		if g.Restricted || g.Level == AccessBlocked {
			continue
		}
		final[key] = g
	}

	return mergeResult{grants: final, restricted: restrictedKeys}
}
