// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of passkeyd.
//
// passkeyd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package http

import (
	"context"
	"net/http"
)

type contextKey int

const identityKey contextKey = iota

// Identity is the verified session identity the access gate attaches to the
// request context.
type Identity struct {
	UserID   string
	Username string
}

// IdentityFrom returns the identity the access gate attached to ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// AccessGate guards routes behind a valid session cookie. Page mode
// redirects to the login URL; API mode answers 401 JSON. Both expire the
// cookie when the presented token is missing or invalid, so stale cookies
// do not loop.
type AccessGate struct {
	verifier TokenVerifier
	loginURL string
	secure   bool
}

// NewAccessGate creates a gate validating cookies with verifier.
func NewAccessGate(verifier TokenVerifier) *AccessGate {
	return &AccessGate{
		verifier: verifier,
		loginURL: "/login",
	}
}

// WithLoginURL sets the redirect target for page mode.
func (g *AccessGate) WithLoginURL(url string) *AccessGate {
	g.loginURL = url
	return g
}

// WithSecureCookies marks cleared cookies Secure.
func (g *AccessGate) WithSecureCookies(secure bool) *AccessGate {
	g.secure = secure
	return g
}

// RequirePage guards a page route, redirecting unauthenticated requests to
// the login URL.
func (g *AccessGate) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := g.authenticate(r)
		if !ok {
			expireSessionCookie(w, g.secure)
			http.Redirect(w, r, g.loginURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

// RequireAPI guards an API route, answering 401 JSON for unauthenticated
// requests.
func (g *AccessGate) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := g.authenticate(r)
		if !ok {
			expireSessionCookie(w, g.secure)
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

func (g *AccessGate) authenticate(r *http.Request) (Identity, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}
	claims, err := g.verifier.Verify(cookie.Value)
	if err != nil {
		return Identity{}, false
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, true
}

func withIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + ErrorCodeUnauthorized + `","message":"authentication required"}` + "\n"))
}
