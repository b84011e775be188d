package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when another request holds the lock.
// Callers surface it as a retry-later condition; nothing ever blocks or
// queues on a lock.
var ErrLockNotObtained = errors.New("lock not obtained")

// ErrLockerNotReady is returned when Redis is unavailable. Serialized write
// paths refuse to run unlocked rather than risk duplicate application.
var ErrLockerNotReady = errors.New("lock service not ready")

// Locker is the mutual-exclusion primitive used by the attendance and
// production write paths. TryLock either acquires the key immediately or
// fails; the TTL bounds how long a crashed holder can keep the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RedisLocker implements Locker with redislock's atomic SET NX.
type RedisLocker struct {
	client *redislock.Client
}

// NewLocker builds a RedisLocker. rdb may be nil; the locker then reports
// not-ready on every acquisition.
func NewLocker(rdb *redis.Client) *RedisLocker {
	if rdb == nil {
		return &RedisLocker{}
	}
	return &RedisLocker{client: redislock.New(rdb)}
}

// TryLock acquires key without retrying. The returned release func must be
// called on every exit path; the TTL is only the crash safety net.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l == nil || l.client == nil {
		return nil, ErrLockerNotReady
	}
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(context.WithoutCancel(ctx)) }, nil
}
