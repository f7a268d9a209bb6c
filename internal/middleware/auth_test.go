package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-auth-service/internal/auth/token"
)

func newTestMiddleware() (*AuthMiddleware, *token.Issuer) {
	issuer := token.NewIssuer("test-secret", "social-auth-service", 15*time.Minute, time.Hour)
	return NewAuthMiddleware(issuer), issuer
}

func echoAccountID(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := AccountIDFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id))
	})
}

func TestRequireAuthValidToken(t *testing.T) {
	mw, issuer := newTestMiddleware()

	pair, err := issuer.Issue("u-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	mw.RequireAuth(echoAccountID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-42", rec.Body.String())
}

func TestRequireAuthMissingHeader(t *testing.T) {
	mw, _ := newTestMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()

	mw.RequireAuth(echoAccountID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsRefreshToken(t *testing.T) {
	mw, issuer := newTestMiddleware()

	pair, err := issuer.Issue("u-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	rec := httptest.NewRecorder()

	mw.RequireAuth(echoAccountID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthForgedToken(t *testing.T) {
	mw, _ := newTestMiddleware()

	other := token.NewIssuer("other-secret", "social-auth-service", time.Minute, time.Hour)
	pair, err := other.Issue("u-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	mw.RequireAuth(echoAccountID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
