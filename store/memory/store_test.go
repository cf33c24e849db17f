package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/id"
	"github.com/xraph/arbiter/principal"
	"github.com/xraph/arbiter/store"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func TestPrincipalCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &principal.Principal{
		ID:          id.NewPrincipalID(),
		GlobalRole:  "USER",
		DisplayName: "Ada",
		Email:       "ada@example.com",
		IsActive:    true,
	}

	// Create
	if err := s.CreatePrincipal(ctx, p); err != nil {
		t.Fatal(err)
	}

	// Find
	got, err := s.FindPrincipal(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.DisplayName != "Ada" {
		t.Fatalf("unexpected principal: %+v", got)
	}

	// Absent principal is nil, not an error.
	missing, err := s.FindPrincipal(ctx, id.NewPrincipalID())
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatal("expected nil for absent principal")
	}

	// Update
	p.DisplayName = "Ada L."
	if err := s.UpdatePrincipal(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, _ = s.FindPrincipal(ctx, p.ID)
	if got.DisplayName != "Ada L." {
		t.Fatal("update failed")
	}

	// List + Count
	list, _ := s.ListPrincipals(ctx, &principal.ListFilter{GlobalRole: "USER"})
	if len(list) != 1 {
		t.Fatalf("expected 1 principal, got %d", len(list))
	}
	count, _ := s.CountPrincipals(ctx, &principal.ListFilter{Search: "ada"})
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	// Delete
	if err := s.DeletePrincipal(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = s.FindPrincipal(ctx, p.ID)
	if got != nil {
		t.Fatal("expected principal to be gone")
	}
}

func TestUpsertAssignmentVersioning(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	pid := id.NewPrincipalID()
	tid := id.NewTenantID()

	first, err := s.UpsertAssignment(ctx, &assignment.Assignment{
		PrincipalID: pid,
		TenantID:    tid,
		RoleType:    "MANAGER",
		GrantedAt:   now,
		IsActive:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.Version != 1 {
		t.Fatalf("expected version 1, got %d", first.Version)
	}
	if first.ID.IsNil() {
		t.Fatal("expected an ID to be assigned")
	}

	// Matching version succeeds and bumps.
	first.RoleType = "ADMIN"
	second, err := s.UpsertAssignment(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if second.Version != 2 {
		t.Fatalf("expected version 2, got %d", second.Version)
	}
	if second.ID != first.ID {
		t.Fatal("upsert must keep the row identity")
	}

	// Stale version is rejected.
	first.Version = 1
	if _, err := s.UpsertAssignment(ctx, first); !errors.Is(err, assignment.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	// Zero version overwrites unconditionally.
	third, err := s.UpsertAssignment(ctx, &assignment.Assignment{
		PrincipalID: pid,
		TenantID:    tid,
		RoleType:    "USER",
		GrantedAt:   now,
		IsActive:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if third.Version != 3 || third.RoleType != "USER" {
		t.Fatalf("unexpected row after unconditional upsert: %+v", third)
	}
}

func TestFindActiveAssignmentExpiry(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	pid := id.NewPrincipalID()
	tid := id.NewTenantID()
	expired := now.Add(-time.Hour)

	if _, err := s.UpsertAssignment(ctx, &assignment.Assignment{
		PrincipalID: pid,
		TenantID:    tid,
		RoleType:    "MANAGER",
		GrantedAt:   now.Add(-2 * time.Hour),
		ExpiresAt:   &expired,
		IsActive:    true,
	}); err != nil {
		t.Fatal(err)
	}

	// Expired rows read as absent.
	a, err := s.FindActiveAssignment(ctx, pid, tid, now)
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Fatal("expected expired assignment to be absent")
	}

	// But DeactivateExpired still counts them.
	n, err := s.DeactivateExpired(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deactivated, got %d", n)
	}
	n, _ = s.DeactivateExpired(ctx, now)
	if n != 0 {
		t.Fatalf("expected idempotent second sweep, got %d", n)
	}
}

func TestFindAssignmentsByTenantAndRole(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	tid := id.NewTenantID()
	for i := 0; i < 3; i++ {
		if _, err := s.UpsertAssignment(ctx, &assignment.Assignment{
			PrincipalID: id.NewPrincipalID(),
			TenantID:    tid,
			RoleType:    "OPERATOR",
			GrantedAt:   now,
			IsActive:    true,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.UpsertAssignment(ctx, &assignment.Assignment{
		PrincipalID: id.NewPrincipalID(),
		TenantID:    tid,
		RoleType:    "ADMIN",
		GrantedAt:   now,
		IsActive:    true,
	}); err != nil {
		t.Fatal(err)
	}

	rows, err := s.FindAssignmentsByTenantAndRole(ctx, tid, "OPERATOR", now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 operators, got %d", len(rows))
	}
}

func TestAssignmentCopySemantics(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	pid := id.NewPrincipalID()
	tid := id.NewTenantID()
	saved, err := s.UpsertAssignment(ctx, &assignment.Assignment{
		PrincipalID:           pid,
		TenantID:              tid,
		RoleType:              "USER",
		AdditionalPermissions: []string{"orders:write"},
		GrantedAt:             now,
		IsActive:              true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Mutating the returned slice must not leak into the store.
	saved.AdditionalPermissions[0] = "tampered"
	got, _ := s.FindActiveAssignment(ctx, pid, tid, now)
	if got.AdditionalPermissions[0] != "orders:write" {
		t.Fatal("store state leaked through returned copy")
	}
}

func TestDecisionLogStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	tid := id.NewTenantID()
	old := &decisionlog.Entry{
		PrincipalID: id.NewPrincipalID(),
		TenantID:    tid,
		Resource:    "orders",
		Action:      "read",
		Outcome:     decisionlog.OutcomeAllow,
		CreatedAt:   time.Now().Add(-48 * time.Hour),
	}
	recent := &decisionlog.Entry{
		PrincipalID: id.NewPrincipalID(),
		TenantID:    tid,
		Resource:    "orders",
		Action:      "delete",
		Outcome:     decisionlog.OutcomeDeny,
		CreatedAt:   time.Now(),
	}
	if err := s.CreateDecisionLog(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateDecisionLog(ctx, recent); err != nil {
		t.Fatal(err)
	}

	denies, err := s.ListDecisionLogs(ctx, &decisionlog.QueryFilter{Outcome: decisionlog.OutcomeDeny})
	if err != nil {
		t.Fatal(err)
	}
	if len(denies) != 1 || denies[0].Action != "delete" {
		t.Fatalf("unexpected deny list: %+v", denies)
	}

	purged, err := s.PurgeDecisionLogs(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	count, _ := s.CountDecisionLogs(ctx, &decisionlog.QueryFilter{TenantID: &tid})
	if count != 1 {
		t.Fatalf("expected 1 remaining, got %d", count)
	}

	if err := s.DeleteDecisionLogsByTenant(ctx, tid); err != nil {
		t.Fatal(err)
	}
	count, _ = s.CountDecisionLogs(ctx, nil)
	if count != 0 {
		t.Fatalf("expected empty log store, got %d", count)
	}
}
