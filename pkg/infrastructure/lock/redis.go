package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisLocker serializes holders across processes through Redis
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	backoff time.Duration
	prefix  string
}

// Verify interface compliance
var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker whose locks expire after ttl unless released
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:  redislock.New(rdb),
		ttl:     ttl,
		backoff: 100 * time.Millisecond,
		prefix:  "costing:",
	}
}

// Acquire retries until the lock is obtained or ctx is done
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	held, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.backoff),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrNotObtained
		}
		return nil, err
	}

	return func(ctx context.Context) error {
		err := held.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// expired under us; nothing left to release
			return nil
		}
		return err
	}, nil
}
