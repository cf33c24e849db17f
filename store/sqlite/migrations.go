package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Arbiter store (SQLite).
var Migrations = migrate.NewGroup("arbiter")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_principals",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS arbiter_principals (
    id              TEXT PRIMARY KEY,
    global_role     TEXT NOT NULL,
    display_name    TEXT NOT NULL DEFAULT '',
    email           TEXT NOT NULL DEFAULT '',
    is_active       INTEGER NOT NULL DEFAULT 1,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_arbiter_principals_role ON arbiter_principals (global_role);
CREATE INDEX IF NOT EXISTS idx_arbiter_principals_active ON arbiter_principals (is_active);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS arbiter_principals`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_assignments",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS arbiter_assignments (
    id                      TEXT PRIMARY KEY,
    principal_id            TEXT NOT NULL,
    tenant_id               TEXT NOT NULL,
    role_type               TEXT NOT NULL,
    is_default_tenant       INTEGER NOT NULL DEFAULT 0,
    additional_permissions  TEXT NOT NULL DEFAULT '[]',
    restricted_permissions  TEXT NOT NULL DEFAULT '[]',
    allowed_site_ids        TEXT NOT NULL DEFAULT '[]',
    granted_by              TEXT NOT NULL DEFAULT '',
    granted_at              TEXT NOT NULL,
    expires_at              TEXT,
    is_active               INTEGER NOT NULL DEFAULT 1,
    version                 INTEGER NOT NULL DEFAULT 1,
    created_at              TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at              TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(principal_id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_arbiter_assign_principal ON arbiter_assignments (principal_id);
CREATE INDEX IF NOT EXISTS idx_arbiter_assign_tenant_role ON arbiter_assignments (tenant_id, role_type);
CREATE INDEX IF NOT EXISTS idx_arbiter_assign_expires ON arbiter_assignments (expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS arbiter_assignments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_decision_logs",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS arbiter_decision_logs (
    id              TEXT PRIMARY KEY,
    principal_id    TEXT NOT NULL,
    tenant_id       TEXT NOT NULL,
    site_id         TEXT NOT NULL DEFAULT '',
    resource        TEXT NOT NULL,
    action          TEXT NOT NULL,
    required_level  TEXT NOT NULL,
    outcome         TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    eval_time_ns    INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_arbiter_dlogs_principal ON arbiter_decision_logs (principal_id);
CREATE INDEX IF NOT EXISTS idx_arbiter_dlogs_tenant ON arbiter_decision_logs (tenant_id);
CREATE INDEX IF NOT EXISTS idx_arbiter_dlogs_outcome ON arbiter_decision_logs (tenant_id, outcome);
CREATE INDEX IF NOT EXISTS idx_arbiter_dlogs_created ON arbiter_decision_logs (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS arbiter_decision_logs`)
				return err
			},
		},
	)
}
