package offline

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/config"
)

// Cache holds short-lived dashboard aggregates. The mirror is the source of
// truth; a cache miss just means recomputing from the local store.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Remove(ctx context.Context, keys ...string) error
}

// RedisCache delegates to the shared redis connection. All operations are
// no-ops when redis is not configured.
type RedisCache struct{}

func NewRedisCache() RedisCache { return RedisCache{} }

func (RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return config.GetRedisObject(ctx, key, dest)
}

func (RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return config.SetRedisObject(ctx, key, value, ttl)
}

func (RedisCache) Remove(ctx context.Context, keys ...string) error {
	return config.RemoveRedisKey(ctx, keys...)
}

func dashboardKey(profileId string) string {
	return fmt.Sprintf("dashboard:%s", profileId)
}
