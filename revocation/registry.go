// Package revocation maintains the Redis-backed blacklist of token ids.
// Revocation is an absorbing state: once a jti is recorded it stays invalid
// until the entry's retention lapses, at which point the token it named has
// itself expired and the entry is dead weight, not a correctness input.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps every Redis transport failure. A registry outage
// must never read as "token not revoked".
var ErrStoreUnavailable = errors.New("revocation store unavailable")

const minRetention = time.Second

// Registry records revoked token ids in Redis. Entries carry a TTL sized to
// the revoked token's remaining life so the set stays bounded without a
// separate pruning job.
type Registry struct {
	redis            redis.UniversalClient
	prefix           string
	defaultRetention time.Duration
}

// NewRegistry creates a revocation [Registry]. defaultRetention bounds
// entries whose expiry is unknown; it should match the longest token
// lifetime in use (normally the refresh TTL).
func NewRegistry(redis redis.UniversalClient, prefix string, defaultRetention time.Duration) *Registry {
	if defaultRetention <= 0 {
		defaultRetention = 7 * 24 * time.Hour
	}
	return &Registry{
		redis:            redis,
		prefix:           prefix,
		defaultRetention: defaultRetention,
	}
}

func (r *Registry) key(jti string) string {
	return r.prefix + ":revoked:" + jti
}

func (r *Registry) retention(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return r.defaultRetention
	}
	ttl := time.Until(expiresAt)
	if ttl < minRetention {
		return minRetention
	}
	return ttl
}

// Revoke records the jti as revoked until expiresAt. Revoking an already
// revoked jti is a no-op, not an error; the original retention window is
// kept.
//
//	Performance: 1 Redis SETNX.
func (r *Registry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("jti must not be empty")
	}

	err := r.redis.SetNX(ctx, r.key(jti), 1, r.retention(expiresAt)).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// RevokeMany records a batch of jtis under one retention window in a single
// pipelined round trip. Used on logout to kill a refresh token and its paired
// access token together.
func (r *Registry) RevokeMany(ctx context.Context, jtis []string, expiresAt time.Time) error {
	if len(jtis) == 0 {
		return nil
	}

	retention := r.retention(expiresAt)
	pipe := r.redis.Pipeline()
	for _, jti := range jtis {
		if jti == "" {
			continue
		}
		pipe.SetNX(ctx, r.key(jti), 1, retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// IsRevoked reports whether the jti is present in the registry. A transport
// failure is returned as an error; callers must fail closed rather than
// treat it as "not revoked".
//
//	Performance: 1 Redis EXISTS.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
