package arbiter

import (
	"strings"
	"testing"
)

func TestValidateAssignmentOK(t *testing.T) {
	res := ValidateAssignment(GlobalUser, TenantManager, []string{"billing:manage"}, []string{"orders:delete"})
	if !res.Valid {
		t.Fatalf("expected valid result, got errors %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
}

func TestValidateAssignmentOverlap(t *testing.T) {
	res := ValidateAssignment(GlobalUser, TenantManager,
		[]string{"orders:approve", "billing:manage"},
		[]string{"orders:approve"})
	if res.Valid {
		t.Fatal("expected overlap to invalidate the assignment")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "orders:approve") {
		t.Fatalf("expected an overlap error naming the key, got %v", res.Errors)
	}
}

func TestValidateAssignmentUnknownRoles(t *testing.T) {
	res := ValidateAssignment(GlobalRole("ROOT"), TenantRole("INTERN"), nil, nil)
	if res.Valid {
		t.Fatal("expected unknown roles to invalidate the assignment")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected one error per unknown role, got %v", res.Errors)
	}
}

func TestValidateAssignmentFloorWarning(t *testing.T) {
	// A VIEWER assignment for a global ADMIN sits below the ADMIN floor.
	res := ValidateAssignment(GlobalAdmin, TenantViewer, nil, nil)
	if !res.Valid {
		t.Fatalf("expected floor mismatch to stay valid, got errors %v", res.Errors)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "floor") {
		t.Fatalf("expected a floor warning, got %v", res.Warnings)
	}

	// At or above the floor there is nothing to warn about.
	res = ValidateAssignment(GlobalAdmin, TenantOwner, nil, nil)
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
}

func TestValidateAssignmentSuperAdminRestrictions(t *testing.T) {
	res := ValidateAssignment(GlobalSuperAdmin, TenantOwner, nil, []string{"orders:delete"})
	if !res.Valid {
		t.Fatalf("expected restrictions on SUPER_ADMIN to stay valid, got errors %v", res.Errors)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "SUPER_ADMIN") {
		t.Fatalf("expected a SUPER_ADMIN warning, got %v", res.Warnings)
	}
}
