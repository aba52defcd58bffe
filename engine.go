package authcore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/claimpoint/authcore/internal/audit"
	"github.com/claimpoint/authcore/password"
	"github.com/claimpoint/authcore/permission"
	"github.com/claimpoint/authcore/revocation"
	"github.com/claimpoint/authcore/session"
	"github.com/claimpoint/authcore/token"
)

// Engine is the authentication core: credential verification, token
// issuance, refresh, logout, and permission checks. Build one with [Builder]
// at process start; all methods are safe for concurrent use afterwards.
type Engine struct {
	config      Config
	codec       *token.Codec
	hasher      *password.Hasher
	sessions    *session.Store
	revocations *revocation.Registry
	registry    *permission.Registry
	routes      *permission.Table
	users       UserProvider
	audit       *audit.Dispatcher
	metrics     *Metrics
}

// LoginResult is a successful login: the issued token pair and the resolved
// identity, so transports can set cookies and render the principal without a
// second lookup.
type LoginResult struct {
	Tokens   TokenPair
	Identity Identity
}

// RefreshResult is a successful refresh: a newly signed access token under a
// fresh jti. The refresh token itself is untouched.
type RefreshResult struct {
	AccessToken string
	AccessID    string
}

// Login verifies the credentials and, on success, issues a token pair and
// persists the refresh session (hashed, replacing any previous session for
// the user). Unknown username and wrong password are indistinguishable to the
// caller: both return [ErrInvalidCredentials] after a full-cost hash
// verification.
func (e *Engine) Login(ctx context.Context, username, plaintext string) (*LoginResult, error) {
	if e == nil || e.hasher == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	if username == "" || plaintext == "" {
		e.hasher.VerifyDummy(plaintext)
		return nil, e.loginFailure(ctx, username, ErrInvalidCredentials)
	}

	user, err := e.users.FindUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn the same argon2 cost as the mismatch path so response time
		// does not reveal whether the username exists.
		e.hasher.VerifyDummy(plaintext)
		return nil, e.loginFailure(ctx, username, ErrInvalidCredentials)
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.loginFailure(ctx, username, ErrInvalidCredentials)
	}

	// The credential lookup only vouches for {id, passwordHash}; the
	// identity is resolved through the permission lookup like any other
	// authenticated request.
	resolved, err := e.users.FindUserWithPermissions(user.ID)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, ErrUserNotFound
	}

	pair, err := e.codec.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	refreshHash, err := e.hasher.Hash(pair.RefreshToken)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(e.config.SessionLifetime())
	if err := e.sessions.Save(ctx, user.ID, pair.RefreshID, refreshHash, expiresAt); err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, audit.EventLoginSuccess, true, user.ID, pair.RefreshID, nil, nil)

	return &LoginResult{
		Tokens: pair,
		Identity: Identity{
			ID:          resolved.ID,
			Username:    resolved.Username,
			RoleName:    resolved.RoleName,
			Permissions: append([]string(nil), resolved.Permissions...),
		},
	}, nil
}

// Refresh exchanges an authenticated refresh grant for a new access token.
// The grant must come from [Engine.AuthenticateRefresh]; the session and
// refresh token are left in place, so one refresh token serves until it
// expires or is revoked.
func (e *Engine) Refresh(ctx context.Context, grant RefreshGrant) (*RefreshResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if grant.UserID == "" || grant.JTI == "" {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrTokenInvalid
	}

	signed, jti, err := e.codec.IssueAccess(grant.UserID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, audit.EventRefreshSuccess, true, grant.UserID, grant.JTI, nil, nil)

	return &RefreshResult{AccessToken: signed, AccessID: jti}, nil
}

// Logout ends the session identified by refreshJTI, revoking both the
// refresh token and its paired access token so the whole issuance dies at
// once. The session must belong to userID; a cross-user jti is rejected with
// [ErrSessionOwnershipMismatch] and nothing is invalidated.
func (e *Engine) Logout(ctx context.Context, userID, refreshJTI string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	sess, err := e.sessions.FindByJTI(ctx, refreshJTI)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if sess.UserID != userID {
		return ErrSessionOwnershipMismatch
	}

	if err := e.sessions.DeleteByJTI(ctx, refreshJTI); err != nil {
		return err
	}

	expiresAt := time.Unix(sess.ExpiresAt, 0)
	jtis := []string{refreshJTI}
	if accessID, ok := token.PairedAccessID(refreshJTI); ok {
		jtis = append(jtis, accessID)
	}
	if err := e.revocations.RevokeMany(ctx, jtis, expiresAt); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, audit.EventLogoutSession, true, userID, refreshJTI, nil, nil)

	return nil
}

// LogoutAll ends every session the user has and revokes each session's token
// pair. With the one-session-per-user policy this is at most one session,
// but the operation is total either way: no sessions is a successful no-op.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	jtis, err := e.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return err
	}

	all := make([]string, 0, len(jtis)*2)
	for _, jti := range jtis {
		all = append(all, jti)
		if accessID, ok := token.PairedAccessID(jti); ok {
			all = append(all, accessID)
		}
	}
	if len(all) > 0 {
		if err := e.revocations.RevokeMany(ctx, all, time.Time{}); err != nil {
			return err
		}
		e.metricInc(MetricSessionInvalidated)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, audit.EventLogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"sessions": strconv.Itoa(len(jtis))}
	})

	return nil
}

// Revoke blacklists a single token id until expiresAt (zero means the
// default retention). It does not touch sessions; use [Engine.Logout] to end
// a session.
func (e *Engine) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if e == nil || e.revocations == nil {
		return ErrEngineNotReady
	}
	if err := e.revocations.Revoke(ctx, jti, expiresAt); err != nil {
		return err
	}
	e.emitAudit(ctx, audit.EventTokenRevoked, true, "", jti, nil, nil)
	return nil
}

// Authorize checks the identity against the route's required capabilities.
// A route absent from the table requires nothing beyond authentication.
func (e *Engine) Authorize(ctx context.Context, route string, identity *Identity) error {
	if e == nil {
		return ErrEngineNotReady
	}

	required := e.routes.Required(route)
	if len(required) == 0 {
		return nil
	}
	if identity == nil {
		return ErrUnauthorized
	}
	if !permission.Check(required, identity.Permissions) {
		e.metricInc(MetricPermissionDenied)
		e.emitAudit(ctx, audit.EventPermissionDenied, false, identity.ID, "", ErrPermissionDenied, func() map[string]string {
			return map[string]string{"route": route}
		})
		return ErrPermissionDenied
	}

	return nil
}

// Ping reports Redis availability and round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessions.Ping(ctx)
}

// Close drains the audit dispatcher. Call it on shutdown; the engine is
// unusable afterwards only for auditing, all other paths keep working.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many audit events were discarded under load.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) loginFailure(ctx context.Context, username string, err error) error {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, audit.EventLoginFailure, false, "", "", err, func() map[string]string {
		return map[string]string{"identifier": username}
	})
	return err
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID, jti string, cause error, metaFn func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		JTI:       jti,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metaFn != nil {
		event.Metadata = metaFn()
	}

	e.audit.Emit(ctx, event)
}
