package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces guard keys in a shared Redis.
const keyPrefix = "idem:"

var _ Guard = (*RedisGuard)(nil)

// RedisGuard is a Guard shared across worker replicas, backed by Redis
// SET NX with a TTL.
type RedisGuard struct {
	rdb *redis.Client
}

// NewRedis creates a guard on an existing Redis client.
func NewRedis(rdb *redis.Client) *RedisGuard {
	return &RedisGuard{rdb: rdb}
}

// Connect dials Redis at url (redis://...) and verifies the connection.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// MarkOnce implements Guard.
func (g *RedisGuard) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark idempotency key: %w", err)
	}
	return ok, nil
}

// Release implements Guard.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
