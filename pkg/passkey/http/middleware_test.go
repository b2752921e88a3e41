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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passkeyd/passkeyd/pkg/session"
)

func newGate(t *testing.T) (*AccessGate, *session.Issuer) {
	t.Helper()
	issuer, err := session.NewIssuer([]byte(testSecret))
	require.NoError(t, err)
	verifier, err := session.NewVerifier([]byte(testSecret))
	require.NoError(t, err)
	return NewAccessGate(verifier), issuer
}

func echoIdentity(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User", identity.UserID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAccessGate_RequireAPI(t *testing.T) {
	gate, issuer := newGate(t)
	handler := gate.RequireAPI(echoIdentity(t))

	// No cookie.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/authn/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	// Invalid token.
	req := httptest.NewRequest(http.MethodGet, "/api/authn/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token: identity flows into the request context.
	token, err := issuer.Issue("user-1", "alice", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/authn/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Header().Get("X-User"))
}

func TestAccessGate_RequirePage(t *testing.T) {
	gate, issuer := newGate(t)
	gate.WithLoginURL("/signin")
	handler := gate.RequirePage(echoIdentity(t))

	// Unauthenticated page requests redirect to the login URL and clear the
	// stale cookie.
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired-or-garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	// Authenticated requests pass through.
	token, err := issuer.Issue("user-1", "alice", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityFrom_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFrom(req.Context())
	assert.False(t, ok)
}
