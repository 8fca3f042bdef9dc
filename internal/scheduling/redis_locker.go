package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLockerConfig tunes the distributed locker.
type RedisLockerConfig struct {
	Prefix     string
	TTL        time.Duration
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// RedisLocker is a Locker shared across API instances. Each resource-day is a
// SET NX key holding a random token; release deletes it only if the token
// still matches.
type RedisLocker struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewRedisLocker constructs a RedisLocker.
func NewRedisLocker(client *redis.Client, cfg RedisLockerConfig) *RedisLocker {
	if cfg.Prefix == "" {
		cfg.Prefix = "lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 25 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RedisLocker{
		client:     client,
		prefix:     cfg.Prefix,
		ttl:        cfg.TTL,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

type heldLock struct {
	name  string
	token string
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, keys []ResourceKey) (func(), error) {
	ordered := OrderKeys(keys)
	held := make([]heldLock, 0, len(ordered))
	for _, key := range ordered {
		lock, err := l.acquireOne(ctx, key)
		if err != nil {
			l.release(held)
			return nil, err
		}
		held = append(held, lock)
	}
	var once sync.Once
	return func() { once.Do(func() { l.release(held) }) }, nil
}

func (l *RedisLocker) acquireOne(ctx context.Context, key ResourceKey) (heldLock, error) {
	lock := heldLock{name: l.prefix + key.String(), token: uuid.NewString()}
	for {
		ok, err := l.client.SetNX(ctx, lock.name, lock.token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return heldLock{}, fmt.Errorf("%w: %s: %v", ErrLockUnavailable, key, ctx.Err())
			}
			return heldLock{}, fmt.Errorf("redis lock %s: %w", lock.name, err)
		}
		if ok {
			return lock, nil
		}
		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return heldLock{}, fmt.Errorf("%w: %s: %v", ErrLockUnavailable, key, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) release(held []heldLock) {
	// The request context may already be done; release on a fresh one.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(held) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.client, []string{held[i].name}, held[i].token).Err(); err != nil {
			l.logger.Warn("failed to release resource lock", zap.String("lock", held[i].name), zap.Error(err))
		}
	}
}
