package arbiter

// matchComponent checks one side of a permission key against a concrete
// value. Only the full "*" wildcard is supported; partial globs are not.
func matchComponent(pattern, value string) bool {
	return pattern == Wildcard || pattern == value
}

// matchKey checks whether a granted key (possibly carrying wildcards)
// covers a concrete requested key.
func matchKey(granted, requested PermissionKey) bool {
	return matchComponent(granted.Resource, requested.Resource) &&
		matchComponent(granted.Action, requested.Action)
}
