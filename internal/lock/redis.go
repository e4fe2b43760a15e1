package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hospital-service/pkg/response"
)

// Locker hands out exclusive leases on a key. Release must be called with the
// token Acquire returned.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

// ErrNotHeld is returned by Release when the lease expired or belongs to
// someone else.
var ErrNotHeld = errors.New("lock not held")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	client   redis.UniversalClient
	retries  int
	interval time.Duration
}

func NewRedisLock(client redis.UniversalClient) *RedisLock {
	return &RedisLock{
		client:   client,
		retries:  5,
		interval: 100 * time.Millisecond,
	}
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// Acquire takes the lease with SETNX, polling a few times before giving up
// with response.ErrLocked.
func (r *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	const op = "lock.RedisLock.Acquire"

	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		ok, err := r.client.SetNX(ctx, lockKey(key), token, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			return token, nil
		}

		if attempt >= r.retries {
			return "", fmt.Errorf("%s: %s: %w", op, key, response.ErrLocked)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(r.interval):
		}
	}
}

func (r *RedisLock) Release(ctx context.Context, key, token string) error {
	const op = "lock.RedisLock.Release"

	n, err := releaseScript.Run(ctx, r.client, []string{lockKey(key)}, token).Int()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %s: %w", op, key, ErrNotHeld)
	}

	return nil
}

// SlotKey is the lock key guarding one doctor's slot array.
func SlotKey(doctorID string) string {
	return "slots:" + doctorID
}
