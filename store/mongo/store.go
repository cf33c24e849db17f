// Package mongo provides a MongoDB implementation of the Arbiter
// composite store using grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/id"
	"github.com/xraph/arbiter/principal"
	"github.com/xraph/arbiter/store"
)

// Collection name constants.
const (
	colPrincipals   = "arbiter_principals"
	colAssignments  = "arbiter_assignments"
	colDecisionLogs = "arbiter_decision_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB implementation of the composite Arbiter store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all arbiter collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("arbiter/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all arbiter collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colPrincipals: {
			{Keys: bson.D{{Key: "global_role", Value: 1}}},
			{Keys: bson.D{{Key: "is_active", Value: 1}}},
		},
		colAssignments: {
			{
				Keys:    bson.D{{Key: "principal_id", Value: 1}, {Key: "tenant_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "role_type", Value: 1}, {Key: "is_active", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colDecisionLogs: {
			{Keys: bson.D{{Key: "principal_id", Value: 1}, {Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "outcome", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Principal operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePrincipal(ctx context.Context, p *principal.Principal) error {
	t := now()
	p.CreatedAt = t
	p.UpdatedAt = t
	m := principalToModel(p)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("arbiter/mongo: create principal: %w", err)
	}
	return nil
}

func (s *Store) FindPrincipal(ctx context.Context, principalID id.PrincipalID) (*principal.Principal, error) {
	var m principalModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": principalID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("arbiter/mongo: find principal: %w", err)
	}
	return principalFromModel(&m), nil
}

func (s *Store) UpdatePrincipal(ctx context.Context, p *principal.Principal) error {
	p.UpdatedAt = now()
	m := principalToModel(p)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("arbiter/mongo: update principal: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("principal %s: %w", p.ID, errNotFound)
	}
	return nil
}

func (s *Store) ListPrincipals(ctx context.Context, filter *principal.ListFilter) ([]*principal.Principal, error) {
	var models []principalModel
	f := bson.M{}
	if filter != nil {
		if filter.GlobalRole != "" {
			f["global_role"] = filter.GlobalRole
		}
		if filter.IsActive != nil {
			f["is_active"] = *filter.IsActive
		}
		if filter.Search != "" {
			f["$or"] = []bson.M{
				{"display_name": bson.M{"$regex": filter.Search, "$options": "i"}},
				{"email": bson.M{"$regex": filter.Search, "$options": "i"}},
			}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("arbiter/mongo: list principals: %w", err)
	}
	result := make([]*principal.Principal, len(models))
	for i := range models {
		result[i] = principalFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountPrincipals(ctx context.Context, filter *principal.ListFilter) (int64, error) {
	f := bson.M{}
	if filter != nil {
		if filter.GlobalRole != "" {
			f["global_role"] = filter.GlobalRole
		}
		if filter.IsActive != nil {
			f["is_active"] = *filter.IsActive
		}
		if filter.Search != "" {
			f["$or"] = []bson.M{
				{"display_name": bson.M{"$regex": filter.Search, "$options": "i"}},
				{"email": bson.M{"$regex": filter.Search, "$options": "i"}},
			}
		}
	}
	count, err := s.mdb.NewFind((*principalModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter/mongo: count principals: %w", err)
	}
	return count, nil
}

func (s *Store) DeletePrincipal(ctx context.Context, principalID id.PrincipalID) error {
	_, err := s.mdb.NewDelete((*principalModel)(nil)).
		Filter(bson.M{"_id": principalID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("arbiter/mongo: delete principal: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

// activeFilter matches assignments that are active and not expired at t.
func activeFilter(t time.Time) []bson.M {
	return []bson.M{
		{"is_active": true},
		{"$or": []bson.M{
			{"expires_at": bson.M{"$exists": false}},
			{"expires_at": nil},
			{"expires_at": bson.M{"$gt": t}},
		}},
	}
}

func (s *Store) FindActiveAssignment(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, t time.Time) (*assignment.Assignment, error) {
	var m assignmentModel
	and := append([]bson.M{
		{"principal_id": principalID.String()},
		{"tenant_id": tenantID.String()},
	}, activeFilter(t)...)
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"$and": and}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("arbiter/mongo: find active assignment: %w", err)
	}
	return assignmentFromModel(&m), nil
}

func (s *Store) FindAllActiveAssignments(ctx context.Context, principalID id.PrincipalID, t time.Time) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	and := append([]bson.M{
		{"principal_id": principalID.String()},
	}, activeFilter(t)...)
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"$and": and}).
		Sort(bson.D{{Key: "granted_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("arbiter/mongo: find active assignments: %w", err)
	}
	return assignmentsFromModels(models), nil
}

func (s *Store) FindAssignmentsByTenantAndRole(ctx context.Context, tenantID id.TenantID, roleType assignment.TenantRole, t time.Time) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	and := append([]bson.M{
		{"tenant_id": tenantID.String()},
		{"role_type": roleType},
	}, activeFilter(t)...)
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"$and": and}).
		Sort(bson.D{{Key: "granted_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("arbiter/mongo: find assignments by tenant and role: %w", err)
	}
	return assignmentsFromModels(models), nil
}

func (s *Store) GetAssignment(ctx context.Context, assignmentID id.AssignmentID) (*assignment.Assignment, error) {
	var m assignmentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": assignmentID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("assignment %s: %w", assignmentID, errNotFound)
		}
		return nil, fmt.Errorf("arbiter/mongo: get assignment: %w", err)
	}
	return assignmentFromModel(&m), nil
}

// UpsertAssignment writes the (principal, tenant) document with a
// version check. The version filter on the update plus the unique
// (principal_id, tenant_id) index close the read-then-write race.
func (s *Store) UpsertAssignment(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, error) {
	var existing assignmentModel
	err := s.mdb.NewFind(&existing).
		Filter(bson.M{"principal_id": a.PrincipalID.String(), "tenant_id": a.TenantID.String()}).
		Scan(ctx)
	exists := true
	if err != nil {
		if !isNoDocuments(err) {
			return nil, fmt.Errorf("arbiter/mongo: find assignment for upsert: %w", err)
		}
		exists = false
	}

	t := now()
	saved := *a
	if exists {
		if a.Version != 0 && a.Version != existing.Version {
			return nil, fmt.Errorf("assignment %s/%s: %w", a.PrincipalID, a.TenantID, assignment.ErrVersionConflict)
		}
		aid, _ := id.ParseAssignmentID(existing.ID) //nolint:errcheck // stored IDs are always valid
		saved.ID = aid
		saved.Version = existing.Version + 1
		saved.CreatedAt = existing.CreatedAt
		saved.UpdatedAt = t

		m := assignmentToModel(&saved)
		res, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": existing.ID, "version": existing.Version}).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("arbiter/mongo: update assignment: %w", err)
		}
		if res.MatchedCount() == 0 {
			return nil, fmt.Errorf("assignment %s/%s: %w", a.PrincipalID, a.TenantID, assignment.ErrVersionConflict)
		}
	} else {
		if saved.ID.IsNil() {
			saved.ID = id.NewAssignmentID()
		}
		saved.Version = 1
		saved.CreatedAt = t
		saved.UpdatedAt = t
		m := assignmentToModel(&saved)
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return nil, fmt.Errorf("arbiter/mongo: insert assignment: %w", err)
		}
	}
	return &saved, nil
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	f := bson.M{}
	if filter != nil {
		if filter.PrincipalID != nil {
			f["principal_id"] = filter.PrincipalID.String()
		}
		if filter.TenantID != nil {
			f["tenant_id"] = filter.TenantID.String()
		}
		if filter.RoleType != "" {
			f["role_type"] = filter.RoleType
		}
		if filter.IsActive != nil {
			f["is_active"] = *filter.IsActive
		}
		if filter.IsDefault != nil {
			f["is_default_tenant"] = *filter.IsDefault
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("arbiter/mongo: list assignments: %w", err)
	}
	return assignmentsFromModels(models), nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	f := bson.M{}
	if filter != nil {
		if filter.PrincipalID != nil {
			f["principal_id"] = filter.PrincipalID.String()
		}
		if filter.TenantID != nil {
			f["tenant_id"] = filter.TenantID.String()
		}
		if filter.RoleType != "" {
			f["role_type"] = filter.RoleType
		}
		if filter.IsActive != nil {
			f["is_active"] = *filter.IsActive
		}
		if filter.IsDefault != nil {
			f["is_default_tenant"] = *filter.IsDefault
		}
	}
	count, err := s.mdb.NewFind((*assignmentModel)(nil)).
		Filter(f).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter/mongo: count assignments: %w", err)
	}
	return count, nil
}

func (s *Store) DeactivateExpired(ctx context.Context, t time.Time) (int64, error) {
	var models []assignmentModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"is_active": true, "expires_at": bson.M{"$lte": t}}).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter/mongo: find expired assignments: %w", err)
	}
	var count int64
	for i := range models {
		m := &models[i]
		version := m.Version
		m.IsActive = false
		m.Version = version + 1
		m.UpdatedAt = now()
		res, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.ID, "version": version}).
			Exec(ctx)
		if err != nil {
			return count, fmt.Errorf("arbiter/mongo: deactivate expired assignment: %w", err)
		}
		if res.MatchedCount() > 0 {
			count++
		}
	}
	return count, nil
}

func assignmentsFromModels(models []assignmentModel) []*assignment.Assignment {
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result
}

// ──────────────────────────────────────────────────
// Decision log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateDecisionLog(ctx context.Context, e *decisionlog.Entry) error {
	if e.ID.IsNil() {
		e.ID = id.NewDecisionLogID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	m := decisionLogToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("arbiter/mongo: create decision log: %w", err)
	}
	return nil
}

func (s *Store) GetDecisionLog(ctx context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	var m decisionLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": logID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("decision log %s: %w", logID, errNotFound)
		}
		return nil, fmt.Errorf("arbiter/mongo: get decision log: %w", err)
	}
	return decisionLogFromModel(&m), nil
}

func decisionLogFilter(filter *decisionlog.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.PrincipalID != nil {
		f["principal_id"] = filter.PrincipalID.String()
	}
	if filter.TenantID != nil {
		f["tenant_id"] = filter.TenantID.String()
	}
	if filter.Resource != "" {
		f["resource"] = filter.Resource
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	if filter.Outcome != "" {
		f["outcome"] = string(filter.Outcome)
	}
	if filter.After != nil || filter.Before != nil {
		dateFilter := bson.M{}
		if filter.After != nil {
			dateFilter["$gte"] = *filter.After
		}
		if filter.Before != nil {
			dateFilter["$lte"] = *filter.Before
		}
		f["created_at"] = dateFilter
	}
	return f
}

func (s *Store) ListDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	q := s.mdb.NewFind(&models).
		Filter(decisionLogFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("arbiter/mongo: list decision logs: %w", err)
	}
	result := make([]*decisionlog.Entry, len(models))
	for i := range models {
		result[i] = decisionLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*decisionLogModel)(nil)).
		Filter(decisionLogFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter/mongo: count decision logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeDecisionLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*decisionLogModel)(nil)).
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter/mongo: purge decision logs: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteDecisionLogsByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.mdb.NewDelete((*decisionLogModel)(nil)).
		Filter(bson.M{"tenant_id": tenantID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("arbiter/mongo: delete decision logs by tenant: %w", err)
	}
	return nil
}
