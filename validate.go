package arbiter

import (
	"fmt"
	"sort"
)

// ValidationResult is the outcome of validating an assignment's
// coherence before it is persisted.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateAssignment checks that a prospective assignment is coherent:
// the grant and restriction lists must be disjoint (an error), the
// tenant role should not sit below the floor implied by the global role
// (a warning only; administrators may deliberately under-provision a
// tenant), and SUPER_ADMIN principals should not carry restrictions
// (a warning; the merge would honor them regardless).
//
// Pure function: no state is read or written.
func ValidateAssignment(globalRole GlobalRole, tenantRole TenantRole, additional, restricted []string) ValidationResult {
	var result ValidationResult

	if overlap := permissionOverlap(additional, restricted); len(overlap) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("permissions granted and restricted at once: %v", overlap))
	}

	if !tenantRole.Valid() {
		result.Errors = append(result.Errors,
			fmt.Sprintf("unknown tenant role %q", tenantRole))
	}
	if !globalRole.Valid() {
		result.Errors = append(result.Errors,
			fmt.Sprintf("unknown global role %q", globalRole))
	}

	if globalRole.Valid() && tenantRole.Valid() &&
		tenantRole.Compare(FloorTenantRole(globalRole)) == OrderLess {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("tenant role %s is below the %s floor implied by global role %s",
				tenantRole, FloorTenantRole(globalRole), globalRole))
	}

	if globalRole == GlobalSuperAdmin && len(restricted) > 0 {
		result.Warnings = append(result.Warnings,
			"SUPER_ADMIN principals should not carry restricted permissions")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// permissionOverlap returns the normalized keys present in both lists,
// sorted for stable error messages.
func permissionOverlap(additional, restricted []string) []string {
	if len(additional) == 0 || len(restricted) == 0 {
		return nil
	}
	granted := make(map[PermissionKey]struct{}, len(additional))
	for _, raw := range additional {
		if key, err := ParsePermissionKey(raw); err == nil {
			granted[key] = struct{}{}
		}
	}
	var overlap []string
	for _, raw := range restricted {
		key, err := ParsePermissionKey(raw)
		if err != nil {
			continue
		}
		if _, ok := granted[key]; ok {
			overlap = append(overlap, key.String())
		}
	}
	sort.Strings(overlap)
	return overlap
}
