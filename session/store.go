package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session exists for the queried jti or user.
var ErrNotFound = errors.New("session not found")

// ErrStoreUnavailable wraps every Redis transport failure so callers can keep
// infrastructure errors apart from authentication rejections.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrExpiryInPast is returned by Save when the computed absolute expiry is
// not in the future.
var ErrExpiryInPast = errors.New("session expiry must be in the future")

// saveSessionScript atomically replaces the user's current session: the
// previous jti row (if any) is deleted in the same script that writes the new
// row and repoints the user index. This enforces at most one live session per
// user without a read-modify-write race.
const saveSessionScript = `
local prev = redis.call("GET", KEYS[1])
if prev and prev ~= ARGV[1] then
  redis.call("DEL", ARGV[4] .. prev)
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
if prev then
  return prev
end
return ""
`

var saveSessionLua = redis.NewScript(saveSessionScript)

// deleteSessionScript removes a session row and clears the user index only
// when the index still points at the deleted jti, so a concurrent login that
// already replaced the session is not clobbered.
const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
if redis.call("GET", KEYS[2]) == ARGV[1] then
  redis.call("DEL", KEYS[2])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store. It persists at most one live
// session per user and answers jti lookups for the refresh pipeline.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) jtiKey(jti string) string {
	return s.prefix + ":jti:" + jti
}

func (s *Store) jtiKeyPrefix() string {
	return s.prefix + ":jti:"
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}

// Save persists the session keyed by jti and repoints the per-user index,
// replacing any previous session for the user in the same atomic script.
// expiresAt must already be an absolute instant in the future; raw configured
// lifetimes are normalized by the caller before they reach the store.
//
//	Performance: 1 Lua EVALSHA (replace + index update).
func (s *Store) Save(ctx context.Context, userID, jti, refreshHash string, expiresAt time.Time) error {
	now := time.Now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return ErrExpiryInPast
	}

	data, err := Encode(&Session{
		UserID:      userID,
		JTI:         jti,
		RefreshHash: refreshHash,
		CreatedAt:   now.Unix(),
		ExpiresAt:   expiresAt.Unix(),
	})
	if err != nil {
		return err
	}

	err = saveSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.userKey(userID), s.jtiKey(jti)},
		jti,
		data,
		ttl.Milliseconds(),
		s.jtiKeyPrefix(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// FindByJTI retrieves the session persisted under the given jti. The caller
// owns the expiry check: an expired row is still returned so the refresh
// pipeline can distinguish "expired" from "never existed".
//
//	Performance: 1 Redis GET.
func (s *Store) FindByJTI(ctx context.Context, jti string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.jtiKey(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return Decode(data)
}

// DeleteByJTI removes the session persisted under jti. Deleting an absent
// session is not an error.
func (s *Store) DeleteByJTI(ctx context.Context, jti string) error {
	data, err := s.redis.Get(ctx, s.jtiKey(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return err
	}

	err = deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.jtiKey(jti), s.userKey(sess.UserID)},
		jti,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// DeleteAllForUser removes every session for the user and returns the jtis
// that were deleted so the caller can revoke them. With the one-session-per-
// user invariant the slice holds at most one element, but the shape survives
// a future multi-session policy.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) ([]string, error) {
	jti, err := s.redis.Get(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	err = deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.jtiKey(jti), s.userKey(userID)},
		jti,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return []string{jti}, nil
}

// ListActive returns the user's sessions whose expiry is still in the
// future. Expired rows are filtered out even when Redis has not reclaimed
// them yet.
func (s *Store) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	jti, err := s.redis.Get(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sess, err := s.FindByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []*Session{}, nil
		}
		return nil, err
	}

	if sess.Expired(time.Now()) {
		return []*Session{}, nil
	}

	return []*Session{sess}, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
