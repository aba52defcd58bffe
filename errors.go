package authcore

import "errors"

var (
	// ErrUnauthorized is the generic rejection returned to transports; individual
	// pipeline failures are collapsed into it before leaving the HTTP layer.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials rejects a login whose username or password failed
	// verification. Both causes share one sentinel on purpose.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid rejects a token with a bad signature, malformed claims, or
	// an elapsed expiry. Signature and expiry are never reported separately.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrTokenRevoked rejects a token whose id is present in the revocation registry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenMismatch rejects a refresh token that decodes correctly but does not
	// hash-match the persisted session.
	ErrTokenMismatch = errors.New("refresh token mismatch")
	// ErrSessionNotFound rejects a refresh whose token id has no persisted session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired rejects a refresh against a session whose expiry has passed,
	// even when the stored row still exists.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionOwnershipMismatch rejects a refresh whose token subject does not match
	// the user the session was persisted for.
	ErrSessionOwnershipMismatch = errors.New("session ownership mismatch")
	// ErrUserNotFound is returned when the identity behind a valid token no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrPermissionDenied rejects a request missing at least one required capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNoToken is returned by a strategy when the request carries no credential in
	// either the Authorization header or the expected cookie.
	ErrNoToken = errors.New("no token in request")
	// ErrConfigMissing marks a fatal configuration error (for example an absent signing
	// secret). It aborts startup and is never surfaced per-request.
	ErrConfigMissing = errors.New("configuration missing")
	// ErrEngineNotReady is returned when an Engine method runs before Build wired its
	// dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
)
