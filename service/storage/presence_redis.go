package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"chatgate/logger"
)

// Remove the record only when the stored session id matches.
// KEYS[1] = presence key, ARGV[1] = expected session id
// Returns: 1 removed, 0 no-op (absent or owned by a newer session).
const luaCompareAndDelete = `
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
local rec = cjson.decode(v)
if rec.sessionId == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`

// Remove the record only when lastActive <= cutoff. A concurrent Put
// rewrites lastActive, so a refreshed record survives the sweep.
// KEYS[1] = presence key, ARGV[1] = cutoff unix seconds
const luaDeleteIfStale = `
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
local rec = cjson.decode(v)
if tonumber(rec.lastActive) <= tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`

// Rewrite lastActive and reset the TTL only while the record exists,
// so a refresh racing a delete cannot bring the record back.
// KEYS[1] = presence key, ARGV[1] = lastActive unix seconds,
// ARGV[2] = ttl millis
const luaRefresh = `
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
local rec = cjson.decode(v)
rec.lastActive = tonumber(ARGV[1])
redis.call("SET", KEYS[1], cjson.encode(rec), "PX", ARGV[2])
return 1
`

// RedisPresence keeps one JSON value per user under
// <prefix>:<userId>, TTL = inactivity window.
type RedisPresence struct {
	rdb    *redis.Client
	prefix string

	luaCAD     *redis.Script
	luaStale   *redis.Script
	luaRefresh *redis.Script
}

var _ PresenceStore = (*RedisPresence)(nil)

func NewRedisPresence(rdb *redis.Client, prefix string) *RedisPresence {
	if prefix == "" {
		prefix = "chat:online"
	}
	return &RedisPresence{
		rdb:        rdb,
		prefix:     prefix,
		luaCAD:     redis.NewScript(luaCompareAndDelete),
		luaStale:   redis.NewScript(luaDeleteIfStale),
		luaRefresh: redis.NewScript(luaRefresh),
	}
}

func (s *RedisPresence) key(userID int) string {
	return s.prefix + ":" + strconv.Itoa(userID)
}

func (s *RedisPresence) Put(ctx context.Context, rec *PresenceRecord, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal presence record")
	}
	return s.rdb.Set(ctx, s.key(rec.UserID), b, ttl).Err()
}

func (s *RedisPresence) Get(ctx context.Context, userID int) (*PresenceRecord, error) {
	v, err := s.rdb.Get(ctx, s.key(userID)).Result()
	if pkgerrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec PresenceRecord
	if err := json.Unmarshal([]byte(v), &rec); err != nil {
		return nil, pkgerrors.Wrap(err, "unmarshal presence record")
	}
	return &rec, nil
}

func (s *RedisPresence) Delete(ctx context.Context, userID int) error {
	return s.rdb.Del(ctx, s.key(userID)).Err()
}

func (s *RedisPresence) CompareAndDelete(ctx context.Context, userID int, sessionID string) (bool, error) {
	rc, err := s.luaCAD.Run(ctx, s.rdb, []string{s.key(userID)}, sessionID).Int64()
	if err != nil {
		return false, err
	}
	return rc == 1, nil
}

func (s *RedisPresence) Refresh(ctx context.Context, userID int, lastActive int64, ttl time.Duration) (bool, error) {
	rc, err := s.luaRefresh.Run(ctx, s.rdb, []string{s.key(userID)}, lastActive, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return rc == 1, nil
}

func (s *RedisPresence) DeleteIfStale(ctx context.Context, userID int, cutoff int64) (bool, error) {
	rc, err := s.luaStale.Run(ctx, s.rdb, []string{s.key(userID)}, cutoff).Int64()
	if err != nil {
		return false, err
	}
	return rc == 1, nil
}

func (s *RedisPresence) ListAll(ctx context.Context) ([]*PresenceRecord, error) {
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*PresenceRecord, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // expired between SCAN and MGET
		}
		var rec PresenceRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			logger.Warnf("[presence] bad record under %s: %v", keys[i], err)
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}
