package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/permit"
	"github.com/xraph/permit/permission"
)

// Compile-time interface check.
var _ permit.Cache = (*Redis)(nil)

// DefaultRedisPrefix namespaces keys written by the Redis cache.
const DefaultRedisPrefix = "permit:perms:"

// Redis shares permission lists across processes. Failures are logged
// and treated as misses so a Redis outage only costs extra fetches.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithRedisTTL sets the entry time-to-live.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithLogger sets the logger for Redis errors.
func WithLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis creates a cache backed by client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultRedisPrefix,
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedisFromURL parses a redis:// URL and creates a cache.
func NewRedisFromURL(rawURL string, opts ...RedisOption) (*Redis, error) {
	ro, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return NewRedis(redis.NewClient(ro), opts...), nil
}

// Get returns the cached permissions for key.
func (r *Redis) Get(ctx context.Context, key permit.CacheKey) (permission.Set, bool) {
	k := r.prefix + key.String()
	data, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logError("get", k, err)
		return nil, false
	}

	var perms permission.Set
	if err := json.Unmarshal(data, &perms); err != nil {
		r.client.Del(ctx, k)
		r.logError("decode", k, err)
		return nil, false
	}
	if perms == nil {
		perms = permission.Set{}
	}
	return perms, true
}

// Set stores perms for key.
func (r *Redis) Set(ctx context.Context, key permit.CacheKey, perms permission.Set) {
	k := r.prefix + key.String()
	if perms == nil {
		perms = permission.Set{}
	}
	data, err := json.Marshal(perms)
	if err != nil {
		r.logError("encode", k, err)
		return
	}
	if err := r.client.Set(ctx, k, data, r.ttl).Err(); err != nil {
		r.logError("set", k, err)
	}
}

// InvalidateSubject removes every entry of a subject in a tenant.
func (r *Redis) InvalidateSubject(ctx context.Context, tenantID, subjectID string) {
	r.deleteMatching(ctx, escapeGlob(r.prefix+permit.SubjectPrefix(tenantID, subjectID))+"*")
}

// Clear removes every entry under the prefix.
func (r *Redis) Clear(ctx context.Context) {
	r.deleteMatching(ctx, escapeGlob(r.prefix)+"*")
}

// Ping checks Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// Close closes the underlying client.
func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) deleteMatching(ctx context.Context, pattern string) {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logError("delete", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		r.logError("scan", pattern, err)
	}
}

func (r *Redis) logError(op, key string, err error) {
	r.logger.Warn("permit: redis cache error",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
