package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/admission-workflow-api/pkg/config"
)

const keyPrefix = "admissions"

// NewRedis returns a configured Redis client, failing fast when the server is unreachable.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// RoleKey is the cache key of a single school-scoped role lookup.
func RoleKey(actorID int64, role string, schoolID int64) string {
	return fmt.Sprintf("%s:roles:%d:%d:%s", keyPrefix, actorID, schoolID, role)
}

// RolePattern matches every cached role lookup of an actor.
func RolePattern(actorID int64) string {
	return fmt.Sprintf("%s:roles:%d:*", keyPrefix, actorID)
}
