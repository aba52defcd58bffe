package authcore

import (
	"net/http"
	"time"
)

// SetTokenCookies writes the access_token and refresh_token cookies for a
// freshly issued pair. Both are httpOnly with SameSite=Strict; Secure
// follows ProductionMode. MaxAge matches each token's lifetime so the
// browser drops the cookie when the token inside it dies.
func (e *Engine) SetTokenCookies(w http.ResponseWriter, pair TokenPair) {
	if e == nil {
		return
	}
	http.SetCookie(w, e.tokenCookie(AccessCookieName, pair.AccessToken, e.codec.AccessTTL()))
	http.SetCookie(w, e.tokenCookie(RefreshCookieName, pair.RefreshToken, e.codec.RefreshTTL()))
}

// SetAccessCookie rewrites only the access_token cookie, used after a
// refresh when the refresh token stays in place.
func (e *Engine) SetAccessCookie(w http.ResponseWriter, accessToken string) {
	if e == nil {
		return
	}
	http.SetCookie(w, e.tokenCookie(AccessCookieName, accessToken, e.codec.AccessTTL()))
}

// ClearTokenCookies expires both token cookies, used on logout.
func (e *Engine) ClearTokenCookies(w http.ResponseWriter) {
	if e == nil {
		return
	}
	http.SetCookie(w, e.expiredCookie(AccessCookieName))
	http.SetCookie(w, e.expiredCookie(RefreshCookieName))
}

func (e *Engine) tokenCookie(name, value string, lifetime time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   int(lifetime.Seconds()),
		HttpOnly: true,
		Secure:   e.config.Cookie.ProductionMode,
		SameSite: http.SameSiteStrictMode,
	}
}

func (e *Engine) expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   e.config.Cookie.ProductionMode,
		SameSite: http.SameSiteStrictMode,
	}
}
