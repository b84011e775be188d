// Package cache wraps Redis for the three uses the application has: a
// read-through cache for hot collections, session storage, and short-lived
// mutual-exclusion locks. Redis is never the source of truth; every value
// here is reconstructible from MySQL. Cache failures therefore degrade to
// store reads and must never fail a request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Well-known cache keys. Inventory and options have no expiry and are
// explicitly invalidated on every mutation of the underlying collection.
const (
	KeyInventory = "cache:inventory"
	KeyOptions   = "cache:options"
)

// HolidayKey names the memoized holiday list for a year. The v2 suffix
// isolates the current payload shape from entries written by older builds.
func HolidayKey(year string) string { return "holidays_v2:" + year }

// SummaryKey names a cached attendance summary query result.
func SummaryKey(nickname, month string) string {
	return fmt.Sprintf("cache:attendance:summary:%s:%s", nickname, month)
}

// Store is a nil-safe JSON cache over Redis. A Store with a nil client
// behaves as an always-miss cache so the application keeps serving from
// MySQL when Redis is down.
type Store struct {
	rdb *redis.Client
	log *logrus.Logger
}

// NewStore returns a Store bound to rdb, which may be nil.
func NewStore(rdb *redis.Client, log *logrus.Logger) *Store {
	return &Store{rdb: rdb, log: log}
}

// Available reports whether a Redis connection is configured.
func (s *Store) Available() bool { return s != nil && s.rdb != nil }

// GetJSON loads the value under key into dest and reports whether the key
// was present. Read errors are logged and reported as a miss.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) bool {
	if !s.Available() {
		return false
	}
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache entry corrupt")
		return false
	}
	return true
}

// GetRaw returns the raw cached bytes under key, if any.
func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, bool) {
	if !s.Available() {
		return nil, false
	}
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		return nil, false
	}
	return val, true
}

// SetJSON stores v under key. ttl <= 0 means no expiry (the entry lives
// until invalidated). Write errors are logged and swallowed.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if !s.Available() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache marshal failed")
		return
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// Invalidate deletes the given keys. It runs on every mutation of a cached
// collection, whether or not an entry exists, and never fails the caller.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.Available() || len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.WithError(err).WithField("keys", keys).Warn("cache invalidate failed")
	}
}
