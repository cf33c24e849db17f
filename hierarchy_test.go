package arbiter

import "testing"

func TestGlobalRoleOrdering(t *testing.T) {
	ordered := []GlobalRole{GlobalGuest, GlobalUser, GlobalManager, GlobalAdmin, GlobalSuperAdmin}
	for i := 1; i < len(ordered); i++ {
		lo, hi := ordered[i-1], ordered[i]
		if lo.Compare(hi) != OrderLess {
			t.Errorf("expected %s < %s", lo, hi)
		}
		if hi.Compare(lo) != OrderGreater {
			t.Errorf("expected %s > %s", hi, lo)
		}
		if !hi.AtLeast(lo) {
			t.Errorf("expected %s to be at least %s", hi, lo)
		}
		if lo.AtLeast(hi) {
			t.Errorf("did not expect %s to be at least %s", lo, hi)
		}
	}
	if GlobalAdmin.Compare(GlobalAdmin) != OrderEqual {
		t.Error("expected a role to compare equal to itself")
	}
	for _, r := range ordered {
		if !r.Valid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if GlobalRole("ROOT").Valid() {
		t.Error("unknown global role must not be valid")
	}
	if GlobalRole("ROOT").Compare(GlobalGuest) != OrderLess {
		t.Error("unknown global role must rank below every known one")
	}
}

func TestTenantRoleOrdering(t *testing.T) {
	ordered := []TenantRole{
		TenantViewer, TenantGuest, TenantUser, TenantOperator, TenantTechnician,
		TenantAccountant, TenantCommercial, TenantManager, TenantAdmin, TenantOwner,
	}
	for i := 1; i < len(ordered); i++ {
		lo, hi := ordered[i-1], ordered[i]
		if lo.Compare(hi) != OrderLess {
			t.Errorf("expected %s < %s", lo, hi)
		}
		if HigherTenantRole(lo, hi) != hi {
			t.Errorf("expected HigherTenantRole(%s, %s) = %s", lo, hi, hi)
		}
		if HigherTenantRole(hi, lo) != hi {
			t.Errorf("expected HigherTenantRole(%s, %s) = %s", hi, lo, hi)
		}
	}
	if TenantRole("INTERN").Valid() {
		t.Error("unknown tenant role must not be valid")
	}
}

func TestAccessLevelOrdering(t *testing.T) {
	ordered := []AccessLevel{AccessBlocked, AccessRead, AccessWrite, AccessDelete, AccessAdmin}
	for i := 1; i < len(ordered); i++ {
		lo, hi := ordered[i-1], ordered[i]
		if !hi.AtLeast(lo) {
			t.Errorf("expected %s to satisfy %s", hi, lo)
		}
		if lo.AtLeast(hi) {
			t.Errorf("did not expect %s to satisfy %s", lo, hi)
		}
		if HigherAccessLevel(lo, hi) != hi {
			t.Errorf("expected HigherAccessLevel(%s, %s) = %s", lo, hi, hi)
		}
	}
	if !AccessBlocked.Valid() {
		t.Error("BLOCKED is a known level")
	}
	if AccessLevel("EXECUTE").Valid() {
		t.Error("unknown access level must not be valid")
	}
	// Unknown levels rank as BLOCKED, never above a real grant.
	if AccessLevel("EXECUTE").AtLeast(AccessRead) {
		t.Error("unknown access level must not satisfy READ")
	}
}

func TestFloorTenantRole(t *testing.T) {
	cases := []struct {
		global GlobalRole
		floor  TenantRole
	}{
		{GlobalSuperAdmin, TenantOwner},
		{GlobalAdmin, TenantAdmin},
		{GlobalManager, TenantManager},
		{GlobalUser, TenantUser},
		{GlobalGuest, TenantViewer},
		{GlobalRole("ROOT"), TenantViewer},
	}
	for _, c := range cases {
		if got := FloorTenantRole(c.global); got != c.floor {
			t.Errorf("FloorTenantRole(%s) = %s, want %s", c.global, got, c.floor)
		}
	}
}
