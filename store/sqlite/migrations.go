package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the permit store (SQLite).
var Migrations = migrate.NewGroup("permit")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_resolution_logs",
			Version: "20260901000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS permit_resolution_logs (
    id               TEXT PRIMARY KEY,
    resolution_id    TEXT NOT NULL,
    tenant_id        TEXT NOT NULL DEFAULT '',
    app_id           TEXT NOT NULL DEFAULT '',
    subject_id       TEXT NOT NULL DEFAULT '',
    scope            TEXT NOT NULL,
    scope_id         TEXT NOT NULL DEFAULT '',
    phase            TEXT NOT NULL,
    is_owner         INTEGER NOT NULL DEFAULT 0,
    from_cache       INTEGER NOT NULL DEFAULT 0,
    permission_count INTEGER NOT NULL DEFAULT 0,
    codes            TEXT NOT NULL DEFAULT '[]',
    error            TEXT NOT NULL DEFAULT '',
    duration_ns      INTEGER NOT NULL DEFAULT 0,
    metadata         TEXT NOT NULL DEFAULT '{}',
    created_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_permit_rlogs_tenant ON permit_resolution_logs (tenant_id);
CREATE INDEX IF NOT EXISTS idx_permit_rlogs_subject ON permit_resolution_logs (tenant_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_permit_rlogs_scope ON permit_resolution_logs (tenant_id, scope, scope_id);
CREATE INDEX IF NOT EXISTS idx_permit_rlogs_phase ON permit_resolution_logs (tenant_id, phase);
CREATE INDEX IF NOT EXISTS idx_permit_rlogs_created ON permit_resolution_logs (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS permit_resolution_logs`)
				return err
			},
		},
	)
}
