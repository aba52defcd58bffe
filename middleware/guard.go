// Package middleware adapts the engine's request pipelines to net/http.
package middleware

import (
	"context"
	"net/http"

	authcore "github.com/claimpoint/authcore"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by [Guard].
func IdentityFromContext(ctx context.Context) (*authcore.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authcore.Identity)
	return id, ok
}

// Guard authenticates the request's access token and attaches the resolved
// identity to the context. Every rejection is a generic 401; the cause stays
// in the audit trail, never in the response body.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := authcore.WithClientIP(r.Context(), r.RemoteAddr)
			identity, err := engine.AuthenticateAccess(ctx, r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoute enforces the route's capability requirements on top of
// [Guard]. Authentication failures are 401; an authenticated identity
// missing a capability is 403.
func RequireRoute(engine *authcore.Engine, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if err := engine.Authorize(r.Context(), route, identity); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
