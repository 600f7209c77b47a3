package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/instance"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// LockName is the Redis lock shared by every cron worker replica.
	LockName       = "cron-worker"
	defaultLockTTL = 50 * time.Second
)

// Lock coordinates exclusive cron runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLock implements Lock using Redis SETNX + TTL. The stored value names
// the worker holding it.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	worker string
	owner  string
}

// NewRedisLock constructs a Redis-backed lock. The TTL should stay below the
// cron interval so a crashed worker does not block the next cycle.
func NewRedisLock(client redisStore, name string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{
		client: client,
		key:    client.LockKey(name),
		ttl:    ttl,
		worker: instance.GetID(),
	}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := fmt.Sprintf("%s:%s", l.worker, uuid.NewString())
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	defer func() { l.owner = "" }()

	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
