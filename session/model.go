// Package session provides Redis-backed refresh-session persistence and a
// compact binary session encoding.
//
// One logical session exists per user: saving a new session atomically
// replaces any previous one. A session binds a user to the argon2 hash of
// their current refresh token and its absolute expiry; the plaintext token is
// never stored.
//
// # What this package must NOT do
//
//   - Import authcore, token, or permission (no upward imports).
//   - Interpret JWT tokens or make authentication decisions.
//   - Persist a raw configured lifetime — only absolute expiries are written.
package session

import "time"

// Session is the server-side record of one refresh-token issuance.
type Session struct {
	UserID string
	JTI    string

	// RefreshHash is the PHC-encoded argon2 hash of the refresh token.
	RefreshHash string

	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the session's absolute expiry has been reached.
// A session is live only while expiresAt is strictly in the future; an
// expired row must be treated as absent even when it still exists in Redis.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}
