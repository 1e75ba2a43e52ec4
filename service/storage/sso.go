package storage

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// SsoStore maps a username to the token identifier (jti) of its most
// recently issued credential. Bind overwrites unconditionally: the
// newest login always wins, silently invalidating any still-unexpired
// prior credential for the account.
type SsoStore interface {
	Bind(ctx context.Context, username, jti string, ttl time.Duration) error
	// IsCurrent is true only when a binding exists and equals jti.
	IsCurrent(ctx context.Context, username, jti string) (bool, error)
	Invalidate(ctx context.Context, username string) error
}

// RedisSso keeps the binding under <prefix>:<username>, TTL equal to
// the credential's remaining lifetime.
type RedisSso struct {
	rdb    *redis.Client
	prefix string
}

var _ SsoStore = (*RedisSso)(nil)

func NewRedisSso(rdb *redis.Client, prefix string) *RedisSso {
	if prefix == "" {
		prefix = "sso:token"
	}
	return &RedisSso{rdb: rdb, prefix: prefix}
}

func (s *RedisSso) key(username string) string { return s.prefix + ":" + username }

func (s *RedisSso) Bind(ctx context.Context, username, jti string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(username), jti, ttl).Err()
}

func (s *RedisSso) IsCurrent(ctx context.Context, username, jti string) (bool, error) {
	v, err := s.rdb.Get(ctx, s.key(username)).Result()
	if pkgerrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == jti, nil
}

func (s *RedisSso) Invalidate(ctx context.Context, username string) error {
	return s.rdb.Del(ctx, s.key(username)).Err()
}

// MemorySso is the process-local SsoStore used in tests and
// single-node deployments without Redis.
type MemorySso struct {
	mu    sync.Mutex
	byKey map[string]ssoEntry
	Clock func() time.Time
}

type ssoEntry struct {
	jti      string
	expireAt time.Time
}

var _ SsoStore = (*MemorySso)(nil)

func NewMemorySso() *MemorySso {
	return &MemorySso{byKey: make(map[string]ssoEntry)}
}

func (s *MemorySso) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *MemorySso) Bind(_ context.Context, username, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := ssoEntry{jti: jti}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.byKey[username] = e
	return nil
}

func (s *MemorySso) IsCurrent(_ context.Context, username, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byKey[username]
	if !ok {
		return false, nil
	}
	if !e.expireAt.IsZero() && s.now().After(e.expireAt) {
		delete(s.byKey, username)
		return false, nil
	}
	return e.jti == jti, nil
}

func (s *MemorySso) Invalidate(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKey, username)
	return nil
}
