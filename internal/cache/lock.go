package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock
var ErrLockHeld = errors.New("lock held")

// releases the key only while it still carries the caller's token
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker hands out distributed locks using SET NX with a TTL
type Locker struct {
	client   *redis.Client
	prefix   string
	unlockSc *redis.Script
}

// NewLocker creates a Locker on the cache's Redis connection
func NewLocker(c *RedisCache) *Locker {
	return &Locker{
		client:   c.Client(),
		prefix:   c.prefix + "lock:",
		unlockSc: redis.NewScript(unlockLua),
	}
}

// Acquire takes the lock for key. The returned unlock func may be called more
// than once. ErrLockHeld means someone else holds it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := l.prefix + key

	ok, err := l.client.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlockSc.Run(unlockCtx, l.client, []string{lk}, token).Err()
	}
	return unlock, nil
}
