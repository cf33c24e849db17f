// Package postgres provides a PostgreSQL implementation of the Arbiter
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/id"
	"github.com/xraph/arbiter/principal"
	"github.com/xraph/arbiter/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// isUniqueViolation reports whether the error is a unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Store is a PostgreSQL implementation of the composite Arbiter store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("arbiter: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("arbiter: migration failed: %w", err)
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

// ──────────────────────────────────────────────────
// Principal operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePrincipal(ctx context.Context, p *principal.Principal) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	m := principalToModel(p)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("arbiter: create principal: %w", err)
	}
	return nil
}

func (s *Store) FindPrincipal(ctx context.Context, principalID id.PrincipalID) (*principal.Principal, error) {
	m := new(principalModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", principalID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("arbiter: find principal: %w", err)
	}
	return principalFromModel(m), nil
}

func (s *Store) UpdatePrincipal(ctx context.Context, p *principal.Principal) error {
	p.UpdatedAt = time.Now().UTC()
	m := principalToModel(p)
	_, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("arbiter: update principal: %w", err)
	}
	return nil
}

func (s *Store) ListPrincipals(ctx context.Context, filter *principal.ListFilter) ([]*principal.Principal, error) {
	var models []principalModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.GlobalRole != "" {
			q = q.Where("global_role = ?", filter.GlobalRole)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if filter.Search != "" {
			q = q.Where("(LOWER(display_name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("arbiter: list principals: %w", err)
	}
	result := make([]*principal.Principal, len(models))
	for i := range models {
		result[i] = principalFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountPrincipals(ctx context.Context, filter *principal.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*principalModel)(nil))
	if filter != nil {
		if filter.GlobalRole != "" {
			q = q.Where("global_role = ?", filter.GlobalRole)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if filter.Search != "" {
			q = q.Where("(LOWER(display_name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter: count principals: %w", err)
	}
	return count, nil
}

func (s *Store) DeletePrincipal(ctx context.Context, principalID id.PrincipalID) error {
	_, err := s.pgdb.NewDelete((*principalModel)(nil)).
		Where("id = ?", principalID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("arbiter: delete principal: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) FindActiveAssignment(ctx context.Context, principalID id.PrincipalID, tenantID id.TenantID, now time.Time) (*assignment.Assignment, error) {
	m := new(assignmentModel)
	err := s.pgdb.NewSelect(m).
		Where("principal_id = ?", principalID.String()).
		Where("tenant_id = ?", tenantID.String()).
		Where("is_active = ?", true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("arbiter: find active assignment: %w", err)
	}
	return assignmentFromModel(m), nil
}

func (s *Store) FindAllActiveAssignments(ctx context.Context, principalID id.PrincipalID, now time.Time) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	err := s.pgdb.NewSelect(&models).
		Where("principal_id = ?", principalID.String()).
		Where("is_active = ?", true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		OrderExpr("granted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("arbiter: find active assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) FindAssignmentsByTenantAndRole(ctx context.Context, tenantID id.TenantID, roleType assignment.TenantRole, now time.Time) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	err := s.pgdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID.String()).
		Where("role_type = ?", roleType).
		Where("is_active = ?", true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		OrderExpr("granted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("arbiter: find assignments by tenant and role: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) GetAssignment(ctx context.Context, assignmentID id.AssignmentID) (*assignment.Assignment, error) {
	m := new(assignmentModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", assignmentID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assignment %s: %w", assignmentID, errNotFound)
		}
		return nil, fmt.Errorf("arbiter: get assignment: %w", err)
	}
	return assignmentFromModel(m), nil
}

// UpsertAssignment writes the (principal, tenant) row inside a
// transaction: select the current row, check the version, then insert
// or update. A non-zero incoming Version that differs from the stored
// one fails with assignment.ErrVersionConflict.
func (s *Store) UpsertAssignment(ctx context.Context, a *assignment.Assignment) (*assignment.Assignment, error) {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("arbiter: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	existing := new(assignmentModel)
	err = tx.NewSelect(existing).
		Where("principal_id = ?", a.PrincipalID.String()).
		Where("tenant_id = ?", a.TenantID.String()).
		Scan(ctx)
	exists := true
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("arbiter: select assignment for upsert: %w", err)
		}
		exists = false
	}

	now := time.Now().UTC()
	saved := *a
	if exists {
		if a.Version != 0 && a.Version != existing.Version {
			return nil, fmt.Errorf("assignment %s/%s: %w", a.PrincipalID, a.TenantID, assignment.ErrVersionConflict)
		}
		aid, _ := id.ParseAssignmentID(existing.ID) //nolint:errcheck // stored IDs are always valid
		saved.ID = aid
		saved.Version = existing.Version + 1
		saved.CreatedAt = existing.CreatedAt
		saved.UpdatedAt = now

		m := assignmentToModel(&saved)
		res, err := tx.NewUpdate(m).
			WherePK().
			Where("version = ?", existing.Version).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("arbiter: update assignment: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("arbiter: update assignment rows: %w", err)
		}
		if n == 0 {
			// Lost a race with a concurrent writer between select and update.
			return nil, fmt.Errorf("assignment %s/%s: %w", a.PrincipalID, a.TenantID, assignment.ErrVersionConflict)
		}
	} else {
		if saved.ID.IsNil() {
			saved.ID = id.NewAssignmentID()
		}
		saved.Version = 1
		saved.CreatedAt = now
		saved.UpdatedAt = now
		m := assignmentToModel(&saved)
		if _, err := tx.NewInsert(m).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				// A concurrent writer created the row between the select
				// and the insert.
				return nil, fmt.Errorf("assignment %s/%s: %w", a.PrincipalID, a.TenantID, assignment.ErrVersionConflict)
			}
			return nil, fmt.Errorf("arbiter: insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("arbiter: commit tx: %w", err)
	}
	return &saved, nil
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.PrincipalID != nil {
			q = q.Where("principal_id = ?", filter.PrincipalID.String())
		}
		if filter.TenantID != nil {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if filter.RoleType != "" {
			q = q.Where("role_type = ?", filter.RoleType)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if filter.IsDefault != nil {
			q = q.Where("is_default_tenant = ?", *filter.IsDefault)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("arbiter: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*assignmentModel)(nil))
	if filter != nil {
		if filter.PrincipalID != nil {
			q = q.Where("principal_id = ?", filter.PrincipalID.String())
		}
		if filter.TenantID != nil {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if filter.RoleType != "" {
			q = q.Where("role_type = ?", filter.RoleType)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if filter.IsDefault != nil {
			q = q.Where("is_default_tenant = ?", *filter.IsDefault)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter: count assignments: %w", err)
	}
	return count, nil
}

func (s *Store) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.pgdb.NewUpdate((*assignmentModel)(nil)).
		Set("is_active = ?", false).
		Set("version = version + 1").
		Set("updated_at = ?", now.UTC()).
		Where("is_active = ?", true).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter: deactivate expired assignments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("arbiter: deactivate expired rows: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Decision log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateDecisionLog(ctx context.Context, e *decisionlog.Entry) error {
	if e.ID.IsNil() {
		e.ID = id.NewDecisionLogID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := decisionLogToModel(e)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("arbiter: create decision log: %w", err)
	}
	return nil
}

func (s *Store) GetDecisionLog(ctx context.Context, logID id.DecisionLogID) (*decisionlog.Entry, error) {
	m := new(decisionLogModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", logID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("decision log %s: %w", logID, errNotFound)
		}
		return nil, fmt.Errorf("arbiter: get decision log: %w", err)
	}
	return decisionLogFromModel(m), nil
}

func (s *Store) ListDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.PrincipalID != nil {
			q = q.Where("principal_id = ?", filter.PrincipalID.String())
		}
		if filter.TenantID != nil {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if filter.Resource != "" {
			q = q.Where("resource = ?", filter.Resource)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.Outcome != "" {
			q = q.Where("outcome = ?", string(filter.Outcome))
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("arbiter: list decision logs: %w", err)
	}
	result := make([]*decisionlog.Entry, len(models))
	for i := range models {
		result[i] = decisionLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	q := s.pgdb.NewSelect((*decisionLogModel)(nil))
	if filter != nil {
		if filter.PrincipalID != nil {
			q = q.Where("principal_id = ?", filter.PrincipalID.String())
		}
		if filter.TenantID != nil {
			q = q.Where("tenant_id = ?", filter.TenantID.String())
		}
		if filter.Resource != "" {
			q = q.Where("resource = ?", filter.Resource)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.Outcome != "" {
			q = q.Where("outcome = ?", string(filter.Outcome))
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter: count decision logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeDecisionLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*decisionLogModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("arbiter: purge decision logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("arbiter: purge decision logs rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteDecisionLogsByTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.pgdb.NewDelete((*decisionLogModel)(nil)).
		Where("tenant_id = ?", tenantID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("arbiter: delete decision logs by tenant: %w", err)
	}
	return nil
}
