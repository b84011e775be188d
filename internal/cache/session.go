package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/minsu-dev/factory-ops/internal/model"
)

// ErrSessionStoreDown is returned when sessions cannot be read or written
// because Redis is unavailable. Unlike the cache, sessions cannot degrade:
// a login without a stored session would be unverifiable.
var ErrSessionStoreDown = errors.New("session store unavailable")

const sessionPrefix = "session:"

// SessionStore keeps authenticated identities in Redis under random UUID
// keys with a sliding 24h lifetime.
type SessionStore struct {
	rdb *redis.Client
	log *logrus.Logger
	ttl time.Duration
}

// NewSessionStore builds a SessionStore. rdb may be nil; every operation
// then fails with ErrSessionStoreDown.
func NewSessionStore(rdb *redis.Client, log *logrus.Logger, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, log: log, ttl: ttl}
}

// Create stores the identity and returns the opaque session id for the
// cookie.
func (s *SessionStore) Create(ctx context.Context, ident model.Identity) (string, error) {
	if s.rdb == nil {
		return "", ErrSessionStoreDown
	}
	id := uuid.NewString()
	raw, err := json.Marshal(ident)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, sessionPrefix+id, raw, s.ttl).Err(); err != nil {
		return "", ErrSessionStoreDown
	}
	return id, nil
}

// Get resolves a session id back to its identity. A missing or expired
// session reports found=false with no error. Each hit renews the TTL.
func (s *SessionStore) Get(ctx context.Context, id string) (model.Identity, bool, error) {
	var ident model.Identity
	if s.rdb == nil {
		return ident, false, ErrSessionStoreDown
	}
	raw, err := s.rdb.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return ident, false, nil
	}
	if err != nil {
		return ident, false, ErrSessionStoreDown
	}
	if err := json.Unmarshal(raw, &ident); err != nil {
		s.log.WithError(err).Warn("session payload corrupt")
		return ident, false, nil
	}
	_ = s.rdb.Expire(ctx, sessionPrefix+id, s.ttl).Err()
	return ident, true, nil
}

// Delete removes a session. Missing keys are not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) {
	if s.rdb == nil || id == "" {
		return
	}
	if err := s.rdb.Del(ctx, sessionPrefix+id).Err(); err != nil {
		s.log.WithError(err).Warn("session delete failed")
	}
}
