package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

const (
	grantYes = "1"
	grantNo  = "0"

	forgetBatch = 100
)

// RoleCacheRepository keeps role lookup answers in Redis as "1"/"0" values.
// Without a client every read misses and every write is dropped.
type RoleCacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRoleCacheRepository constructs the repository.
func NewRoleCacheRepository(client *redis.Client, logger *zap.Logger) *RoleCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleCacheRepository{client: client, logger: logger}
}

// Grant returns the cached answer under key or appErrors.ErrCacheMiss.
func (r *RoleCacheRepository) Grant(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return false, appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, appErrors.ErrCacheMiss
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return parseGrant(key, raw)
}

// StoreGrant caches an answer for ttl.
func (r *RoleCacheRepository) StoreGrant(ctx context.Context, key string, granted bool, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	value := grantNo
	if granted {
		value = grantYes
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Forget unlinks every key matching pattern and returns how many were removed.
func (r *RoleCacheRepository) Forget(ctx context.Context, pattern string) (int, error) {
	if r.client == nil {
		return 0, nil
	}

	removed := 0
	batch := make([]string, 0, forgetBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis unlink %s: %w", pattern, err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, forgetBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == forgetBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if err := flush(); err != nil {
		return removed, err
	}
	r.logger.Debug("role cache keys removed", zap.String("pattern", pattern), zap.Int("count", removed))
	return removed, nil
}

// Close releases the Redis connection if present.
func (r *RoleCacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func parseGrant(key, raw string) (bool, error) {
	switch raw {
	case grantYes:
		return true, nil
	case grantNo:
		return false, nil
	}
	return false, fmt.Errorf("unexpected role cache value %q under %s", raw, key)
}
