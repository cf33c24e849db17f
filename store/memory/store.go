// Package memory provides an in-memory implementation of the Arbiter
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/id"
	"github.com/xraph/arbiter/principal"
)

// Compile-time interface checks.
var (
	_ principal.Store   = (*Store)(nil)
	_ assignment.Store  = (*Store)(nil)
	_ decisionlog.Store = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Arbiter entities.
// Assignments are keyed by (principal, tenant), matching the natural
// key enforced by the SQL backends.
type Store struct {
	mu sync.RWMutex

	principals   map[string]*principal.Principal
	assignments  map[string]*assignment.Assignment // pairKey(principal, tenant)
	decisionLogs map[string]*decisionlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		principals:   make(map[string]*principal.Principal),
		assignments:  make(map[string]*assignment.Assignment),
		decisionLogs: make(map[string]*decisionlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Principal Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePrincipal(_ context.Context, p *principal.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.ID.String()] = copyPrincipal(p)
	return nil
}

func (s *Store) FindPrincipal(_ context.Context, principalID id.PrincipalID) (*principal.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[principalID.String()]
	if !ok {
		return nil, nil
	}
	return copyPrincipal(p), nil
}

func (s *Store) UpdatePrincipal(_ context.Context, p *principal.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.principals[p.ID.String()]; !ok {
		return fmt.Errorf("principal %s: %w", p.ID, errNotFound)
	}
	s.principals[p.ID.String()] = copyPrincipal(p)
	return nil
}

func (s *Store) ListPrincipals(_ context.Context, filter *principal.ListFilter) ([]*principal.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*principal.Principal, 0, len(s.principals))
	for _, p := range s.principals {
		if filter != nil {
			if filter.GlobalRole != "" && p.GlobalRole != filter.GlobalRole {
				continue
			}
			if filter.IsActive != nil && p.IsActive != *filter.IsActive {
				continue
			}
			if filter.Search != "" && !matchesSearch(filter.Search, p.DisplayName, p.Email) {
				continue
			}
		}
		result = append(result, copyPrincipal(p))
	}
	return applyPagination(result, paginationPrin(filter)), nil
}

func (s *Store) CountPrincipals(ctx context.Context, filter *principal.ListFilter) (int64, error) {
	list, err := s.ListPrincipals(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) DeletePrincipal(_ context.Context, principalID id.PrincipalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.principals, principalID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) FindActiveAssignment(_ context.Context, principalID id.PrincipalID, tenantID id.TenantID, now time.Time) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[pairKey(principalID, tenantID)]
	if !ok || !a.EffectivelyActive(now) {
		return nil, nil
	}
	return copyAssignment(a), nil
}

func (s *Store) FindAllActiveAssignments(_ context.Context, principalID id.PrincipalID, now time.Time) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid := principalID.String()
	var result []*assignment.Assignment
	for _, a := range s.assignments {
		if a.PrincipalID.String() == pid && a.EffectivelyActive(now) {
			result = append(result, copyAssignment(a))
		}
	}
	return result, nil
}

func (s *Store) FindAssignmentsByTenantAndRole(_ context.Context, tenantID id.TenantID, roleType assignment.TenantRole, now time.Time) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tid := tenantID.String()
	var result []*assignment.Assignment
	for _, a := range s.assignments {
		if a.TenantID.String() == tid && a.RoleType == roleType && a.EffectivelyActive(now) {
			result = append(result, copyAssignment(a))
		}
	}
	return result, nil
}

func (s *Store) GetAssignment(_ context.Context, assignmentID id.AssignmentID) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assignments {
		if a.ID == assignmentID {
			return copyAssignment(a), nil
		}
	}
	return nil, fmt.Errorf("assignment %s: %w", assignmentID, errNotFound)
}

func (s *Store) UpsertAssignment(_ context.Context, a *assignment.Assignment) (*assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(a.PrincipalID, a.TenantID)
	existing, exists := s.assignments[key]
	if exists && a.Version != 0 && a.Version != existing.Version {
		return nil, fmt.Errorf("assignment %s/%s: %w", a.PrincipalID, a.TenantID, assignment.ErrVersionConflict)
	}

	saved := copyAssignment(a)
	now := time.Now()
	if exists {
		saved.ID = existing.ID
		saved.Version = existing.Version + 1
		saved.CreatedAt = existing.CreatedAt
	} else {
		if saved.ID.IsNil() {
			saved.ID = id.NewAssignmentID()
		}
		saved.Version = 1
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now

	s.assignments[key] = saved
	return copyAssignment(saved), nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if filter != nil {
			if filter.PrincipalID != nil && a.PrincipalID != *filter.PrincipalID {
				continue
			}
			if filter.TenantID != nil && a.TenantID != *filter.TenantID {
				continue
			}
			if filter.RoleType != "" && a.RoleType != filter.RoleType {
				continue
			}
			if filter.IsActive != nil && a.IsActive != *filter.IsActive {
				continue
			}
			if filter.IsDefault != nil && a.IsDefaultTenant != *filter.IsDefault {
				continue
			}
		}
		result = append(result, copyAssignment(a))
	}
	return applyPagination(result, paginationAssign(filter)), nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	list, err := s.ListAssignments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, a := range s.assignments {
		if a.IsActive && a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			a.IsActive = false
			a.Version++
			a.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Decision Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateDecisionLog(_ context.Context, e *decisionlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := copyDecisionLog(e)
	if entry.ID.IsNil() {
		entry.ID = id.NewDecisionLogID()
	}
	s.decisionLogs[entry.ID.String()] = entry
	return nil
}

func (s *Store) GetDecisionLog(_ context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.decisionLogs[logID.String()]
	if !ok {
		return nil, fmt.Errorf("decision log %s: %w", logID, errNotFound)
	}
	return copyDecisionLog(e), nil
}

func (s *Store) ListDecisionLogs(_ context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*decisionlog.Entry, 0, len(s.decisionLogs))
	for _, e := range s.decisionLogs {
		if filter != nil {
			if filter.PrincipalID != nil && e.PrincipalID != *filter.PrincipalID {
				continue
			}
			if filter.TenantID != nil && e.TenantID != *filter.TenantID {
				continue
			}
			if filter.Resource != "" && e.Resource != filter.Resource {
				continue
			}
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.Outcome != "" && e.Outcome != filter.Outcome {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyDecisionLog(e))
	}
	return applyPagination(result, paginationLog(filter)), nil
}

func (s *Store) CountDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	list, err := s.ListDecisionLogs(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeDecisionLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.decisionLogs {
		if e.CreatedAt.Before(before) {
			delete(s.decisionLogs, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteDecisionLogsByTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tid := tenantID.String()
	for k, e := range s.decisionLogs {
		if e.TenantID.String() == tid {
			delete(s.decisionLogs, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

var errNotFound = fmt.Errorf("not found")

func pairKey(principalID id.PrincipalID, tenantID id.TenantID) string {
	return principalID.String() + "/" + tenantID.String()
}

func copyPrincipal(p *principal.Principal) *principal.Principal {
	c := *p
	return &c
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	if a.AdditionalPermissions != nil {
		c.AdditionalPermissions = append([]string(nil), a.AdditionalPermissions...)
	}
	if a.RestrictedPermissions != nil {
		c.RestrictedPermissions = append([]string(nil), a.RestrictedPermissions...)
	}
	if a.AllowedSiteIDs != nil {
		c.AllowedSiteIDs = append([]id.SiteID(nil), a.AllowedSiteIDs...)
	}
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func copyDecisionLog(e *decisionlog.Entry) *decisionlog.Entry {
	c := *e
	return &c
}

func matchesSearch(search string, fields ...string) bool {
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

type pagOpts struct{ limit, offset int }

func paginationPrin(f *principal.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationAssign(f *assignment.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationLog(f *decisionlog.QueryFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset >= len(items) && p.offset > 0 {
		return nil
	}
	if p.offset > 0 {
		items = items[p.offset:]
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
