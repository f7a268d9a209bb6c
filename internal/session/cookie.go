// Package session handles delivery of the refresh token to the client.
// The token itself is stateless; the only session state a client holds
// is this http-only cookie, unreadable by script.
package session

import (
	"net/http"
	"time"
)

const CookieName = "refresh_token"

// CookieOptions defines how the refresh cookie is issued.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// normalize applies safe defaults without breaking callers.
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if !o.HttpOnly {
		o.HttpOnly = true // the whole point of the cookie transport
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// SetRefreshCookie issues the refresh-token cookie to the client.
func SetRefreshCookie(
	w http.ResponseWriter,
	refreshToken string,
	ttl time.Duration,
	opts CookieOptions,
) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    refreshToken,
		Path:     opts.Path,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearRefreshCookie removes the refresh-token cookie from the client.
// This is the entire logout mechanism: the token itself stays valid
// until natural expiry, there is no server-side denylist.
func ClearRefreshCookie(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     opts.Path,
		MaxAge:   -1,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
