// Package redis keeps sessions in Redis. Users and verification codes stay
// in the SQL store; only the session collection is swappable.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/store"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps transport failures talking to Redis.
var ErrUnavailable = errors.New("redis: unavailable")

// ttlSlack keeps a session key around slightly past its logical expiry so the
// engine, not Redis, decides when a session is dead.
const ttlSlack = time.Minute

const extendScript = `
local cur = redis.call("HGET", KEYS[1], "expires_at")
if not cur or cur ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "expires_at", ARGV[2], "updated_at", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`

const deleteScript = `
local uid = redis.call("HGET", KEYS[1], "user_id")
if not uid then
  return 0
end
if ARGV[3] ~= "" and uid ~= ARGV[3] then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("ZREM", ARGV[1] .. uid, ARGV[2])
return 1
`

var (
	extendLua = redis.NewScript(extendScript)
	deleteLua = redis.NewScript(deleteScript)
)

// SessionStore is a store.Sessions backed by one hash per session plus a
// per-user sorted set indexed by creation time.
type SessionStore struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ store.Sessions = (*SessionStore)(nil)

// NewSessionStore returns a store writing keys under prefix.
func NewSessionStore(rdb redis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "authd"
	}
	return &SessionStore{rdb: rdb, prefix: prefix}
}

func (s *SessionStore) key(id string) string { return s.prefix + ":session:" + id }

func (s *SessionStore) indexPrefix() string { return s.prefix + ":user_sessions:" }

func (s *SessionStore) indexKey(userID string) string { return s.indexPrefix() + userID }

// Ping verifies the connection is alive.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *SessionStore) Close() error { return s.rdb.Close() }

func (s *SessionStore) CreateSession(ctx context.Context, sess domain.Session) error {
	key := s.key(sess.ID)

	created, err := s.rdb.HSetNX(ctx, key, "user_id", sess.UserID).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !created {
		return store.ErrAlreadyExists
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user_agent", sess.UserAgent,
			"expires_at", millis(sess.ExpiresAt),
			"created_at", millis(sess.CreatedAt),
			"updated_at", millis(sess.UpdatedAt),
		)
		pipe.PExpire(ctx, key, sess.ExpiresAt.Sub(sess.CreatedAt)+ttlSlack)
		pipe.ZAdd(ctx, s.indexKey(sess.UserID), redis.Z{
			Score:  float64(sess.CreatedAt.UnixMilli()),
			Member: sess.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SessionStore) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeSession(id, fields)
}

func (s *SessionStore) ListSessions(ctx context.Context, f store.SessionFilter) ([]domain.Session, error) {
	indexKey := s.indexKey(f.UserID)
	ids, err := s.rdb.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var (
		out   []domain.Session
		stale []any
	)
	for i, cmd := range cmds {
		sess, err := decodeSession(ids[i], cmd.Val())
		if errors.Is(err, store.ErrNotFound) {
			stale = append(stale, ids[i])
			continue
		}
		if err != nil {
			return nil, err
		}
		if !f.ActiveAt.IsZero() && !sess.ActiveAt(f.ActiveAt) {
			continue
		}
		out = append(out, sess)
	}

	// Keys Redis already expired leave members behind in the index.
	if len(stale) > 0 {
		if err := s.rdb.ZRem(ctx, indexKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	slices.SortFunc(out, func(a, b domain.Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *SessionStore) ExtendSession(ctx context.Context, id string, prev, next, now time.Time) (bool, error) {
	ttl := next.Sub(now) + ttlSlack
	res, err := extendLua.Run(ctx, s.rdb, []string{s.key(id)},
		millis(prev), millis(next), millis(now), ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res == 1, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.delete(ctx, id, "")
	return err
}

func (s *SessionStore) DeleteUserSession(ctx context.Context, userID, id string) error {
	deleted, err := s.delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return store.ErrNotFound
	}
	return nil
}

func (s *SessionStore) delete(ctx context.Context, id, owner string) (bool, error) {
	res, err := deleteLua.Run(ctx, s.rdb, []string{s.key(id)}, s.indexPrefix(), id, owner).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res == 1, nil
}

func (s *SessionStore) DeleteSessionsByUser(ctx context.Context, userID string) (int64, error) {
	indexKey := s.indexKey(userID)
	ids, err := s.rdb.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var dels []*redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			dels = append(dels, pipe.Del(ctx, s.key(id)))
		}
		pipe.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var n int64
	for _, cmd := range dels {
		n += cmd.Val()
	}
	return n, nil
}

// DeleteExpiredSessions walks every user index, removing sessions whose
// logical expiry has passed and members whose key Redis already dropped.
func (s *SessionStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64

	iter := s.rdb.Scan(ctx, 0, s.indexPrefix()+"*", 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		ids, err := s.rdb.ZRange(ctx, indexKey, 0, -1).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		for _, id := range ids {
			raw, err := s.rdb.HGet(ctx, s.key(id), "expires_at").Result()
			switch {
			case errors.Is(err, redis.Nil):
				if err := s.rdb.ZRem(ctx, indexKey, id).Err(); err != nil {
					return deleted, fmt.Errorf("%w: %v", ErrUnavailable, err)
				}
				continue
			case err != nil:
				return deleted, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}

			ms, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || ms > now.UnixMilli() {
				continue
			}
			ok, err := s.delete(ctx, id, "")
			if err != nil {
				return deleted, err
			}
			if ok {
				deleted++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return deleted, nil
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func decodeSession(id string, fields map[string]string) (domain.Session, error) {
	if len(fields) == 0 || fields["user_id"] == "" {
		return domain.Session{}, store.ErrNotFound
	}

	var times [3]time.Time
	for i, name := range []string{"expires_at", "created_at", "updated_at"} {
		ms, err := strconv.ParseInt(fields[name], 10, 64)
		if err != nil {
			return domain.Session{}, fmt.Errorf("redis: session %s has corrupt %s: %w", id, name, err)
		}
		times[i] = time.UnixMilli(ms).UTC()
	}

	return domain.Session{
		ID:        id,
		UserID:    fields["user_id"],
		UserAgent: fields["user_agent"],
		ExpiresAt: times[0],
		CreatedAt: times[1],
		UpdatedAt: times[2],
	}, nil
}
