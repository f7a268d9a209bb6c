package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"social-auth-service/internal/auth/provider"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New("client-id", "client-secret", "http://localhost/callback")
	require.NoError(t, err)

	p.graphBaseURL = srv.URL
	p.oauthConfig.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/authorize",
		TokenURL: srv.URL + "/token",
	}

	return p
}

func TestExchangeCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fb-token","token_type":"bearer"}`))
	})

	p := newTestProvider(t, mux)

	tokens, err := p.ExchangeCode(context.Background(), "the-code", "")
	require.NoError(t, err)
	assert.Equal(t, "fb-token", tokens.AccessToken)
}

func TestFetchProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,name,email", r.URL.Query().Get("fields"))
		w.Write([]byte(`{"id":"fb-7","name":"Alice Smith","email":"alice@example.com"}`))
	})

	p := newTestProvider(t, mux)

	profile, err := p.FetchProfile(context.Background(), &provider.Tokens{AccessToken: "fb-token"})
	require.NoError(t, err)

	assert.Equal(t, "facebook", profile.Provider)
	assert.Equal(t, "fb-7", profile.SubjectID)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
}

func TestFetchProfileUpstreamRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid OAuth access token"}}`, http.StatusUnauthorized)
	})

	p := newTestProvider(t, mux)

	_, err := p.FetchProfile(context.Background(), &provider.Tokens{AccessToken: "stale"})

	var profErr *provider.ProfileError
	require.ErrorAs(t, err, &profErr)
	assert.Equal(t, "facebook", profErr.Provider)
}
