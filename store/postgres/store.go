// Package postgres provides a PostgreSQL implementation of the permit
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/resolutionlog"
	"github.com/xraph/permit/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL implementation of the composite permit store.
type Store struct {
	db  *grove.DB
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
		return fmt.Errorf("permit: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("permit: migration failed: %w", err)
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Resolution log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateResolutionLog(ctx context.Context, e *resolutionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := resolutionLogToModel(e)
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("permit: create resolution log: %w", err)
	}
	return nil
}

func (s *Store) GetResolutionLog(ctx context.Context, logID id.ResolutionLogID) (*resolutionlog.Entry, error) {
	m := new(resolutionLogModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", logID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("resolution log %s: %w", logID, resolutionlog.ErrNotFound)
		}
		return nil, fmt.Errorf("permit: get resolution log: %w", err)
	}
	return resolutionLogFromModel(m), nil
}

func (s *Store) ListResolutionLogs(ctx context.Context, filter *resolutionlog.QueryFilter) ([]*resolutionlog.Entry, error) {
	var models []resolutionLogModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.SubjectID != "" {
			q = q.Where("subject_id = ?", filter.SubjectID)
		}
		if filter.Scope != "" {
			q = q.Where("scope = ?", filter.Scope)
		}
		if filter.ScopeID != "" {
			q = q.Where("scope_id = ?", filter.ScopeID)
		}
		if filter.Phase != "" {
			q = q.Where("phase = ?", filter.Phase)
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
		return nil, fmt.Errorf("permit: list resolution logs: %w", err)
	}
	result := make([]*resolutionlog.Entry, len(models))
	for i := range models {
		result[i] = resolutionLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountResolutionLogs(ctx context.Context, filter *resolutionlog.QueryFilter) (int64, error) {
	q := s.pgdb.NewSelect((*resolutionLogModel)(nil))
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.SubjectID != "" {
			q = q.Where("subject_id = ?", filter.SubjectID)
		}
		if filter.Scope != "" {
			q = q.Where("scope = ?", filter.Scope)
		}
		if filter.ScopeID != "" {
			q = q.Where("scope_id = ?", filter.ScopeID)
		}
		if filter.Phase != "" {
			q = q.Where("phase = ?", filter.Phase)
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
		return 0, fmt.Errorf("permit: count resolution logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeResolutionLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*resolutionLogModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("permit: purge resolution logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("permit: purge resolution logs rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteResolutionLogsByTenant(ctx context.Context, tenantID string) error {
	_, err := s.pgdb.NewDelete((*resolutionLogModel)(nil)).
		Where("tenant_id = ?", tenantID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("permit: delete resolution logs by tenant: %w", err)
	}
	return nil
}
