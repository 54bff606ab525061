package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/pkg/cache"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

const defaultRoleCacheTTL = 5 * time.Minute

type roleSource interface {
	HasRole(ctx context.Context, actorID int64, role models.Role, schoolID int64) (bool, error)
}

type roleGrantCache interface {
	Grant(ctx context.Context, key string) (bool, error)
	StoreGrant(ctx context.Context, key string, granted bool, ttl time.Duration) error
	Forget(ctx context.Context, pattern string) (int, error)
}

// CachedRoleProvider answers school-scoped role lookups from Redis, falling
// back to the role tables on a miss or cache failure. Cache errors never fail
// a lookup.
type CachedRoleProvider struct {
	source  roleSource
	cache   roleGrantCache
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCachedRoleProvider constructs the provider. A nil cache disables caching.
func NewCachedRoleProvider(source roleSource, grants roleGrantCache, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CachedRoleProvider {
	if ttl <= 0 {
		ttl = defaultRoleCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRoleProvider{source: source, cache: grants, metrics: metrics, ttl: ttl, logger: logger}
}

// HasRole reports whether actorID holds role in schoolID.
func (p *CachedRoleProvider) HasRole(ctx context.Context, actorID int64, role models.Role, schoolID int64) (bool, error) {
	key := cache.RoleKey(actorID, string(role), schoolID)

	if p.cache != nil {
		granted, err := p.cache.Grant(ctx, key)
		switch {
		case err == nil:
			p.metrics.RecordRoleLookup(RoleSourceCache)
			return granted, nil
		case !errors.Is(err, appErrors.ErrCacheMiss):
			p.metrics.RecordRoleCacheError("get")
			p.logger.Warn("role cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	granted, err := p.source.HasRole(ctx, actorID, role, schoolID)
	if err != nil {
		return false, err
	}
	p.metrics.RecordRoleLookup(RoleSourceStore)

	if p.cache != nil {
		if err := p.cache.StoreGrant(ctx, key, granted, p.ttl); err != nil {
			p.metrics.RecordRoleCacheError("set")
			p.logger.Debug("role cache write skipped", zap.Int64("actor_id", actorID), zap.Error(err))
		}
	}
	return granted, nil
}

// Invalidate drops every cached role answer of an actor, typically after a
// role assignment changed.
func (p *CachedRoleProvider) Invalidate(ctx context.Context, actorID int64) error {
	if p.cache == nil {
		return nil
	}
	if _, err := p.cache.Forget(ctx, cache.RolePattern(actorID)); err != nil {
		p.metrics.RecordRoleCacheError("forget")
		return err
	}
	return nil
}
