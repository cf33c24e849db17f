package arbiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/id"
	"github.com/xraph/arbiter/principal"
	"github.com/xraph/arbiter/store/memory"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	eng, err := New(append([]Option{WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s
}

func seedPrincipal(t *testing.T, s *memory.Store, role GlobalRole) id.PrincipalID {
	t.Helper()
	p := &principal.Principal{
		ID:         id.NewPrincipalID(),
		GlobalRole: string(role),
		IsActive:   true,
	}
	if err := s.CreatePrincipal(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p.ID
}

func mustAssign(t *testing.T, eng *Engine, pid id.PrincipalID, tid id.TenantID, role TenantRole, opts AssignOptions) *assignment.Assignment {
	t.Helper()
	a, err := eng.Assign(context.Background(), pid, tid, role, id.PrincipalID{}, opts)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestManagerCanApproveOrders(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{})

	result, err := eng.Check(ctx, &CheckRequest{
		PrincipalID:   pid,
		TenantID:      tid,
		Resource:      "orders",
		Action:        "approve",
		RequiredLevel: AccessWrite,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected allowed, got %s: %s", result.Decision, result.Reason)
	}
	if result.Decision != DecisionAllow {
		t.Fatalf("expected decision allow, got %s", result.Decision)
	}

	// MANAGER carries no settings grant.
	result, err = eng.Check(ctx, &CheckRequest{
		PrincipalID: pid,
		TenantID:    tid,
		Resource:    "settings",
		Action:      "write",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected settings write to be denied for MANAGER")
	}
	if result.Decision != DecisionDenyNoGrant {
		t.Fatalf("expected deny_no_grant, got %s", result.Decision)
	}
}

func TestGuestDeniedOrderDeletion(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantGuest, AssignOptions{})

	ok, err := eng.HasPermission(ctx, pid, tid, "orders", "delete", AccessDelete, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected GUEST to be denied orders deletion")
	}

	ok, err = eng.HasPermission(ctx, pid, tid, "orders", "read", AccessRead, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected GUEST to read orders")
	}
}

func TestGlobalAdminSeedsTenantPermissions(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalAdmin)
	tid := id.NewTenantID()

	// Even a VIEWER assignment cannot demote global ADMIN authority.
	mustAssign(t, eng, pid, tid, TenantViewer, AssignOptions{})

	ok, err := eng.HasPermission(ctx, pid, tid, "users", "read", AccessAdmin, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected global ADMIN to hold users:read at ADMIN level")
	}
}

func TestVirtualOwnerForSuperAdmin(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalSuperAdmin)
	tid := id.NewTenantID()

	// No assignment exists, yet SUPER_ADMIN resolves as tenant OWNER.
	ok, err := eng.HasPermission(ctx, pid, tid, "anything", "at-all", AccessAdmin, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected SUPER_ADMIN to be allowed without an assignment")
	}

	// The synthetic assignment never reaches the store.
	a, err := s.FindActiveAssignment(ctx, pid, tid, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Fatal("virtual owner assignment must not be persisted")
	}

	// Revoking the virtual assignment is a no-op.
	changed, err := eng.Revoke(ctx, pid, tid)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("revoking a virtual assignment should report no change")
	}

	set, err := eng.EffectivePermissions(ctx, pid, tid, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if set.Role != TenantOwner {
		t.Fatalf("expected effective role OWNER, got %s", set.Role)
	}
}

func TestVirtualOwnerDisabled(t *testing.T) {
	ctx := context.Background()
	off := false
	eng, s := newTestEngine(t, WithConfig(Config{EnableVirtualOwner: &off}))
	pid := seedPrincipal(t, s, GlobalSuperAdmin)
	tid := id.NewTenantID()

	ok, err := eng.HasPermission(ctx, pid, tid, "orders", "read", AccessRead, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected denial with virtual owner synthesis disabled")
	}
}

func TestAbsenceFailsClosed(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	tid := id.NewTenantID()

	// Unknown principal.
	result, err := eng.Check(ctx, &CheckRequest{
		PrincipalID: id.NewPrincipalID(),
		TenantID:    tid,
		Resource:    "orders",
		Action:      "read",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed || result.Decision != DecisionDenyNoGrant {
		t.Fatalf("expected deny_no_grant for unknown principal, got %s", result.Decision)
	}

	// Known principal, no assignment in the tenant.
	pid := seedPrincipal(t, s, GlobalUser)
	set, err := eng.EffectivePermissions(ctx, pid, tid, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !set.Empty() {
		t.Fatal("expected empty set without an assignment")
	}

	// Inactive principal.
	p, err := s.FindPrincipal(ctx, pid)
	if err != nil {
		t.Fatal(err)
	}
	p.IsActive = false
	if err := s.UpdatePrincipal(ctx, p); err != nil {
		t.Fatal(err)
	}
	mustAssign(t, eng, pid, tid, TenantOwner, AssignOptions{})
	ok, err := eng.HasPermission(ctx, pid, tid, "orders", "read", AccessRead, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected inactive principal to be denied")
	}
}

func TestSiteScopeDenial(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()
	allowed := id.NewSiteID()
	other := id.NewSiteID()

	mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{
		AllowedSiteIDs: []id.SiteID{allowed},
	})

	ok, err := eng.HasPermission(ctx, pid, tid, "orders", "read", AccessRead, allowed)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected access at the allowed site")
	}

	ok, err = eng.HasPermission(ctx, pid, tid, "orders", "read", AccessRead, other)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected denial at a site outside the allow-list")
	}

	// No site scope bypasses the gate.
	ok, err = eng.HasPermission(ctx, pid, tid, "orders", "read", AccessRead, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected access without a site scope")
	}
}

func TestAdditionalAndRestrictedPermissions(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantViewer, AssignOptions{
		AdditionalPermissions: []string{"billing:manage"},
		RestrictedPermissions: []string{"reports:read"},
	})

	// Additional grants land at ADMIN regardless of role rank.
	ok, err := eng.HasPermission(ctx, pid, tid, "billing", "manage", AccessAdmin, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected additional grant to hold at ADMIN level")
	}

	// Restrictions veto the role catalog.
	result, err := eng.Check(ctx, &CheckRequest{
		PrincipalID: pid,
		TenantID:    tid,
		Resource:    "reports",
		Action:      "read",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected restricted permission to be denied")
	}
	if result.Decision != DecisionDenyRestricted {
		t.Fatalf("expected deny_restricted, got %s", result.Decision)
	}
}

func TestInsufficientLevel(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantGuest, AssignOptions{})

	result, err := eng.Check(ctx, &CheckRequest{
		PrincipalID:   pid,
		TenantID:      tid,
		Resource:      "orders",
		Action:        "read",
		RequiredLevel: AccessDelete,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected READ grant to fail a DELETE requirement")
	}
	if result.Decision != DecisionDenyInsufficient {
		t.Fatalf("expected deny_insufficient_level, got %s", result.Decision)
	}
}

func TestAssignValidation(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	_, err := eng.Assign(ctx, pid, id.Nil, TenantManager, id.PrincipalID{}, AssignOptions{})
	if !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}

	_, err = eng.Assign(ctx, pid, tid, TenantRole("INTERN"), id.PrincipalID{}, AssignOptions{})
	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}

	_, err = eng.Assign(ctx, id.NewPrincipalID(), tid, TenantManager, id.PrincipalID{}, AssignOptions{})
	if !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}

	_, err = eng.Assign(ctx, pid, tid, TenantManager, id.PrincipalID{}, AssignOptions{
		AdditionalPermissions: []string{"orders:approve"},
		RestrictedPermissions: []string{"orders:approve"},
	})
	if !errors.Is(err, ErrConflictingPermissions) {
		t.Fatalf("expected ErrConflictingPermissions, got %v", err)
	}
}

func TestRevokeLifecycle(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{})

	changed, err := eng.Revoke(ctx, pid, tid)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected revocation to report a change")
	}

	ok, err := eng.HasPermission(ctx, pid, tid, "orders", "read", AccessRead, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected denial after revocation")
	}

	// Second revoke is a no-op.
	changed, err = eng.Revoke(ctx, pid, tid)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("expected second revocation to be a no-op")
	}
}

func TestSetDefaultTenantExclusive(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	t1 := id.NewTenantID()
	t2 := id.NewTenantID()

	mustAssign(t, eng, pid, t1, TenantManager, AssignOptions{IsDefault: true})
	mustAssign(t, eng, pid, t2, TenantUser, AssignOptions{})

	changed, err := eng.SetDefaultTenant(ctx, pid, t2)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected default tenant change")
	}

	all, err := s.FindAllActiveAssignments(ctx, pid, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	defaults := 0
	for _, a := range all {
		if a.IsDefaultTenant {
			defaults++
			if a.TenantID != t2 {
				t.Fatalf("expected %s as default, got %s", t2, a.TenantID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default tenant, got %d", defaults)
	}

	// Setting the default to an unassigned tenant reports no change.
	changed, err = eng.SetDefaultTenant(ctx, pid, id.NewTenantID())
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("expected no change for an unassigned tenant")
	}
}

func TestBulkUpdateRolePermissions(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	tid := id.NewTenantID()

	m1 := seedPrincipal(t, s, GlobalUser)
	m2 := seedPrincipal(t, s, GlobalUser)
	u1 := seedPrincipal(t, s, GlobalUser)
	mustAssign(t, eng, m1, tid, TenantManager, AssignOptions{})
	mustAssign(t, eng, m2, tid, TenantManager, AssignOptions{})
	mustAssign(t, eng, u1, tid, TenantUser, AssignOptions{})

	updated, err := eng.BulkUpdateRolePermissions(ctx, tid, TenantManager, BulkPermissionUpdate{
		Add:      []string{"exports:run"},
		Restrict: []string{"orders:delete"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated assignments, got %d", updated)
	}

	ok, err := eng.HasPermission(ctx, m1, tid, "exports", "run", AccessAdmin, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected bulk-added grant to apply")
	}
	ok, err = eng.HasPermission(ctx, m2, tid, "orders", "delete", AccessDelete, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected bulk restriction to apply")
	}

	// The USER assignment is untouched.
	ok, err = eng.HasPermission(ctx, u1, tid, "exports", "run", AccessRead, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected non-matching role to be unaffected")
	}

	// Re-applying the same update changes nothing.
	updated, err = eng.BulkUpdateRolePermissions(ctx, tid, TenantManager, BulkPermissionUpdate{
		Add: []string{"exports:run"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated != 0 {
		t.Fatalf("expected idempotent bulk update, got %d changes", updated)
	}
}

func TestCopyPermissions(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	tid := id.NewTenantID()
	src := seedPrincipal(t, s, GlobalUser)
	dst := seedPrincipal(t, s, GlobalUser)

	mustAssign(t, eng, src, tid, TenantManager, AssignOptions{
		AdditionalPermissions: []string{"billing:manage"},
	})

	copied, err := eng.CopyPermissions(ctx, src, dst, tid, id.PrincipalID{})
	if err != nil {
		t.Fatal(err)
	}
	if copied.RoleType != string(TenantManager) {
		t.Fatalf("expected copied role MANAGER, got %s", copied.RoleType)
	}

	ok, err := eng.HasPermission(ctx, dst, tid, "billing", "manage", AccessAdmin, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected copied additional grant to apply")
	}

	// Copying from a principal without an assignment fails.
	_, err = eng.CopyPermissions(ctx, id.NewPrincipalID(), dst, tid, id.PrincipalID{})
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestExpiredAssignmentDenied(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	past := time.Now().Add(-time.Hour)
	mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{ExpiresAt: &past})

	ok, err := eng.HasPermission(ctx, pid, tid, "orders", "read", AccessRead, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected expired assignment to be ignored")
	}
}

func TestEnforce(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{})

	if err := eng.Enforce(ctx, &CheckRequest{
		PrincipalID: pid, TenantID: tid, Resource: "orders", Action: "read",
	}); err != nil {
		t.Fatalf("expected enforce to pass: %v", err)
	}

	err := eng.Enforce(ctx, &CheckRequest{
		PrincipalID: pid, TenantID: tid, Resource: "settings", Action: "write",
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestDecisionLogRecording(t *testing.T) {
	ctx := context.Background()
	on := true
	eng, s := newTestEngine(t, WithConfig(Config{EnableDecisionLog: &on}))
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{})

	if _, err := eng.Check(ctx, &CheckRequest{
		PrincipalID: pid, TenantID: tid, Resource: "orders", Action: "read",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Check(ctx, &CheckRequest{
		PrincipalID: pid, TenantID: tid, Resource: "settings", Action: "write",
	}); err != nil {
		t.Fatal(err)
	}

	logs, err := s.ListDecisionLogs(ctx, &decisionlog.QueryFilter{Outcome: decisionlog.OutcomeAllow})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 allow entry, got %d", len(logs))
	}
	total, err := s.CountDecisionLogs(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("expected 2 decision log entries, got %d", total)
	}
}

// mapCache is a minimal grouped cache for coherence tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	groups  map[string]map[string]struct{}
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{
		entries: make(map[string][]byte),
		groups:  make(map[string]map[string]struct{}),
	}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mapCache) SetWithGroup(_ context.Context, key string, value []byte, group string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	if c.groups[group] == nil {
		c.groups[group] = make(map[string]struct{})
	}
	c.groups[group][key] = struct{}{}
	return nil
}

func (c *mapCache) InvalidateGroup(_ context.Context, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.groups[group] {
		delete(c.entries, key)
	}
	delete(c.groups, group)
	return nil
}

func (c *mapCache) InvalidatePattern(_ context.Context, _ string) error { return nil }

func TestCacheCoherenceAcrossMutations(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	eng, s := newTestEngine(t, WithCache(cache))
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{})

	// First check populates the cache, second one hits it.
	ok, err := eng.HasPermission(ctx, pid, tid, "orders", "approve", AccessWrite, id.Nil)
	if err != nil || !ok {
		t.Fatalf("expected allow, got ok=%v err=%v", ok, err)
	}
	before := cache.hits
	ok, err = eng.HasPermission(ctx, pid, tid, "orders", "approve", AccessWrite, id.Nil)
	if err != nil || !ok {
		t.Fatalf("expected allow, got ok=%v err=%v", ok, err)
	}
	if cache.hits <= before {
		t.Fatal("expected second check to hit the cache")
	}

	// Revocation invalidates the cached set immediately.
	if _, err := eng.Revoke(ctx, pid, tid); err != nil {
		t.Fatal(err)
	}
	ok, err = eng.HasPermission(ctx, pid, tid, "orders", "approve", AccessWrite, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected denial right after revocation")
	}
}

func TestOwnerWildcardNotCappedByExactEntries(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantOwner, AssignOptions{})

	// OWNER carries both the exact users:write entry (WRITE) and the
	// wildcard (ADMIN); the wildcard must win the level comparison.
	ok, err := eng.HasPermission(ctx, pid, tid, "users", "write", AccessAdmin, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the wildcard grant to lift users:write to ADMIN for OWNER")
	}
}

// flakyStore wraps the memory store to make selected reads fail on
// demand.
type flakyStore struct {
	*memory.Store
	failList    bool
	failFindFor id.PrincipalID
}

func (s *flakyStore) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	if s.failList {
		return nil, errors.New("listing unavailable")
	}
	return s.Store.ListAssignments(ctx, filter)
}

func (s *flakyStore) FindActiveAssignment(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, now time.Time) (*assignment.Assignment, error) {
	if !s.failFindFor.IsNil() && principalID == s.failFindFor {
		return nil, errors.New("lookup unavailable")
	}
	return s.Store.FindActiveAssignment(ctx, principalID, tenantID, now)
}

func TestAssignEvictsCacheWhenDefaultSweepFails(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Store: memory.New()}
	cache := newMapCache()
	eng, err := New(WithStore(s), WithCache(cache))
	if err != nil {
		t.Fatal(err)
	}
	pid := seedPrincipal(t, s.Store, GlobalUser)
	tid := id.NewTenantID()

	mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{})
	ok, err := eng.HasPermission(ctx, pid, tid, "orders", "approve", AccessWrite, id.Nil)
	if err != nil || !ok {
		t.Fatalf("expected manager approval, got ok=%v err=%v", ok, err)
	}

	// The demotion is persisted before the default sweep runs.
	s.failList = true
	_, err = eng.Assign(ctx, pid, tid, TenantGuest, id.PrincipalID{}, AssignOptions{IsDefault: true})
	if err == nil {
		t.Fatal("expected the default sweep to fail")
	}
	s.failList = false

	// The next check must see the demoted row immediately, not a cached
	// manager set that lingers until the TTL runs out.
	ok, err = eng.HasPermission(ctx, pid, tid, "orders", "approve", AccessWrite, id.Nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected the stale manager grant to be evicted after the failed mutation")
	}
}

func TestCopyPermissionsPropagatesTargetReadFailure(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Store: memory.New()}
	eng, err := New(WithStore(s))
	if err != nil {
		t.Fatal(err)
	}
	tid := id.NewTenantID()
	src := seedPrincipal(t, s.Store, GlobalUser)
	dst := seedPrincipal(t, s.Store, GlobalUser)

	mustAssign(t, eng, src, tid, TenantManager, AssignOptions{})

	s.failFindFor = dst
	_, err = eng.CopyPermissions(ctx, src, dst, tid, id.PrincipalID{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	s.failFindFor = id.PrincipalID{}

	// Nothing may be written for the target while the read is failing.
	a, err := s.FindActiveAssignment(ctx, dst, tid, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Fatal("expected no assignment to be copied after the failed read")
	}
}

func TestSetDefaultTenantClearsRevokedRows(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	t1 := id.NewTenantID()
	t2 := id.NewTenantID()

	mustAssign(t, eng, pid, t1, TenantManager, AssignOptions{IsDefault: true})
	mustAssign(t, eng, pid, t2, TenantUser, AssignOptions{})

	// Revocation deactivates the row but leaves its default flag behind.
	if _, err := eng.Revoke(ctx, pid, t1); err != nil {
		t.Fatal(err)
	}

	changed, err := eng.SetDefaultTenant(ctx, pid, t2)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected default tenant change")
	}

	all, err := s.ListAssignments(ctx, &assignment.ListFilter{PrincipalID: &pid})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both rows to remain, got %d", len(all))
	}
	for _, a := range all {
		if a.IsDefaultTenant && a.TenantID != t2 {
			t.Fatalf("expected only %s to stay default, found flag on %s", t2, a.TenantID)
		}
		if a.TenantID == t1 && a.IsDefaultTenant {
			t.Fatal("expected the revoked row's default flag to be cleared")
		}
	}
}

func TestAssignReplacesExistingAssignment(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	pid := seedPrincipal(t, s, GlobalUser)
	tid := id.NewTenantID()

	first := mustAssign(t, eng, pid, tid, TenantGuest, AssignOptions{})
	second := mustAssign(t, eng, pid, tid, TenantManager, AssignOptions{})

	if first.ID != second.ID {
		t.Fatalf("expected the same row to be replaced, got %s and %s", first.ID, second.ID)
	}
	if second.Version <= first.Version {
		t.Fatalf("expected version to advance, got %d then %d", first.Version, second.Version)
	}

	all, err := s.FindAllActiveAssignments(ctx, pid, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single assignment per tenant, got %d", len(all))
	}
	if all[0].RoleType != string(TenantManager) {
		t.Fatalf("expected MANAGER after reassignment, got %s", all[0].RoleType)
	}
}
