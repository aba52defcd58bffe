package authcore

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/claimpoint/authcore/internal/audit"
	"github.com/claimpoint/authcore/session"
	"github.com/claimpoint/authcore/token"
)

// Cookie names read by the strategies and written by [SetTokenCookies].
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// extractToken pulls the credential out of a request: the Authorization
// Bearer header wins, the named cookie is the fallback. An empty Bearer
// value does not fall through to the cookie.
func extractToken(r *http.Request, cookieName string) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", ErrNoToken
		}
		return parts[1], nil
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoToken
	}
	return cookie.Value, nil
}

// AuthenticateAccess runs the access pipeline against the request: extract,
// verify signature and expiry, check the jti class and the revocation
// registry, then resolve the identity. Each step either rejects with its
// sentinel or passes an enriched value forward; no step is skipped.
func (e *Engine) AuthenticateAccess(ctx context.Context, r *http.Request) (*Identity, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()

	raw, err := extractToken(r, AccessCookieName)
	if err != nil {
		return nil, err
	}

	claims, err := e.codec.DecodeAccess(raw)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !token.IsAccessID(claims.ID) {
		// A refresh token presented on the access path fails even though the
		// signature check above already rejected it: class is checked on its
		// own so a future shared-secret misconfiguration cannot reopen this.
		return nil, ErrTokenInvalid
	}

	revoked, err := e.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		e.metricInc(MetricTokenRevokedHit)
		return nil, ErrTokenRevoked
	}

	user, err := e.users.FindUserWithPermissions(claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if e.metrics != nil {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	return &Identity{
		ID:          user.ID,
		Username:    user.Username,
		RoleName:    user.RoleName,
		Permissions: append([]string(nil), user.Permissions...),
	}, nil
}

// AuthenticateRefresh runs the refresh pipeline: extract, verify, check the
// jti class and revocation registry, then bind the token to its persisted
// session — existence, expiry, ownership, and an argon2 match of the raw
// token against the stored hash, in that order. The result is a narrow
// [RefreshGrant], not a full identity.
func (e *Engine) AuthenticateRefresh(ctx context.Context, r *http.Request) (*RefreshGrant, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	raw, err := extractToken(r, RefreshCookieName)
	if err != nil {
		return nil, err
	}

	grant, err := e.authenticateRefreshToken(ctx, raw)
	if err != nil {
		e.refreshRejected(ctx, err)
		return nil, err
	}
	return grant, nil
}

func (e *Engine) authenticateRefreshToken(ctx context.Context, raw string) (*RefreshGrant, error) {
	claims, err := e.codec.DecodeRefresh(raw)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !token.IsRefreshID(claims.ID) {
		return nil, ErrTokenInvalid
	}

	revoked, err := e.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		e.metricInc(MetricTokenRevokedHit)
		return nil, ErrTokenRevoked
	}

	sess, err := e.sessions.FindByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}
	if sess.UserID != claims.Subject {
		return nil, ErrSessionOwnershipMismatch
	}

	ok, err := e.hasher.Verify(raw, sess.RefreshHash)
	if err != nil || !ok {
		return nil, ErrTokenMismatch
	}

	return &RefreshGrant{UserID: sess.UserID, JTI: sess.JTI}, nil
}

// refreshRejected records a failed refresh without leaking which step
// rejected it to anyone but the audit trail.
func (e *Engine) refreshRejected(ctx context.Context, cause error) {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, audit.EventRefreshInvalid, false, "", "", cause, nil)
}
