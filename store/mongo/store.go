// Package mongo provides a MongoDB implementation of the permit composite
// store using grove's mongo driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/resolutionlog"
	"github.com/xraph/permit/store"
)

// Collection name constants.
const (
	colResolutionLogs = "permit_resolution_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite permit store.
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

// Migrate creates indexes for all permit collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("permit/mongo: migrate %s indexes: %w", col, err)
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

// migrationIndexes returns the index definitions for all permit collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colResolutionLogs: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "subject_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "scope", Value: 1}, {Key: "scope_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "phase", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Resolution log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateResolutionLog(ctx context.Context, e *resolutionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	m := resolutionLogToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("permit: create resolution log: %w", err)
	}
	return nil
}

func (s *Store) GetResolutionLog(ctx context.Context, logID id.ResolutionLogID) (*resolutionlog.Entry, error) {
	var m resolutionLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": logID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("resolution log %s: %w", logID, resolutionlog.ErrNotFound)
		}
		return nil, fmt.Errorf("permit: get resolution log: %w", err)
	}
	return resolutionLogFromModel(&m), nil
}

func (s *Store) ListResolutionLogs(ctx context.Context, filter *resolutionlog.QueryFilter) ([]*resolutionlog.Entry, error) {
	var models []resolutionLogModel
	q := s.mdb.NewFind(&models).
		Filter(logFilter(filter)).
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
		return nil, fmt.Errorf("permit: list resolution logs: %w", err)
	}
	result := make([]*resolutionlog.Entry, len(models))
	for i := range models {
		result[i] = resolutionLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountResolutionLogs(ctx context.Context, filter *resolutionlog.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*resolutionLogModel)(nil)).
		Filter(logFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("permit: count resolution logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeResolutionLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*resolutionLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("permit: purge resolution logs: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteResolutionLogsByTenant(ctx context.Context, tenantID string) error {
	_, err := s.mdb.NewDelete((*resolutionLogModel)(nil)).
		Many().
		Filter(bson.M{"tenant_id": tenantID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("permit: delete resolution logs by tenant: %w", err)
	}
	return nil
}

func logFilter(filter *resolutionlog.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.TenantID != "" {
		f["tenant_id"] = filter.TenantID
	}
	if filter.SubjectID != "" {
		f["subject_id"] = filter.SubjectID
	}
	if filter.Scope != "" {
		f["scope"] = filter.Scope
	}
	if filter.ScopeID != "" {
		f["scope_id"] = filter.ScopeID
	}
	if filter.Phase != "" {
		f["phase"] = filter.Phase
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
