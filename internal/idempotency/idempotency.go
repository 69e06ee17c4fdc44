// Package idempotency guards against double-execution when an
// at-least-once-delivered message is redelivered after a worker crashed
// after cleanup but before ack. Backed by Redis, generalized behind a
// Locker interface.
package idempotency

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lockTTL = 10 * time.Minute

// Locker acquires and releases a per-submission processing lock.
type Locker interface {
	// Acquire returns true if the lock was newly acquired (first delivery),
	// false if it's already held (this is a redelivery/duplicate).
	Acquire(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}

const lockKeyPrefix = "judge-executor:lock:"

// RedisLocker implements Locker with Redis SETNX+TTL.
type RedisLocker struct {
	client *goredis.Client
}

// NewRedisLocker wraps an existing Redis client.
func NewRedisLocker(client *goredis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (r *RedisLocker) Acquire(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+id.String(), time.Now().Unix(), lockTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisLocker) Release(ctx context.Context, id uuid.UUID) error {
	return r.client.Expire(ctx, lockKeyPrefix+id.String(), lockTTL).Err()
}
