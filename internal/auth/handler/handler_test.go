package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-auth-service/internal/auth/account"
	"social-auth-service/internal/auth/attempt"
	"social-auth-service/internal/auth/provider"
	"social-auth-service/internal/auth/service"
	"social-auth-service/internal/auth/token"
	"social-auth-service/internal/auth/verification"
	"social-auth-service/internal/middleware"
	"social-auth-service/internal/session"
)

type stubService struct {
	registerErr    error
	loginErr       error
	socialErr      error
	refreshErr     error
	verifyErr      error
	account        *account.Account
	pair           token.Pair
	access         string
	providers      []string
	gotProvider    string
	gotSocialInput service.SocialLoginInput
}

func (s *stubService) Register(ctx context.Context, username, email, password string) error {
	return s.registerErr
}

func (s *stubService) Login(ctx context.Context, email, password string) (*account.Account, token.Pair, error) {
	if s.loginErr != nil {
		return nil, token.Pair{}, s.loginErr
	}
	return s.account, s.pair, nil
}

func (s *stubService) SocialLogin(ctx context.Context, providerName string, in service.SocialLoginInput) (*account.Account, token.Pair, error) {
	s.gotProvider = providerName
	s.gotSocialInput = in
	if s.socialErr != nil {
		return nil, token.Pair{}, s.socialErr
	}
	return s.account, s.pair, nil
}

func (s *stubService) AuthorizationURL(providerName, state, codeChallenge string) (string, error) {
	if providerName != "google" {
		return "", provider.ErrUnsupportedProvider
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state + "&code_challenge=" + codeChallenge, nil
}

func (s *stubService) Refresh(refreshToken string) (string, error) {
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	return s.access, nil
}

func (s *stubService) VerifyEmail(ctx context.Context, verifyToken string) error {
	return s.verifyErr
}

func (s *stubService) Me(ctx context.Context, accountID string) (*account.Account, []string, error) {
	return s.account, s.providers, nil
}

func newTestRouter(t *testing.T, svc *stubService) (*gin.Engine, *attempt.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	attempts := attempt.NewStore(client)
	h := NewHandler(svc, attempts, 14*24*time.Hour, session.CookieOptions{})

	issuer := token.NewIssuer("test-secret", "social-auth-service", 15*time.Minute, time.Hour)
	authMW := middleware.NewAuthMiddleware(issuer)

	r := gin.New()
	h.RegisterRoutes(r, middleware.GinRequireAuth(authMW))
	return r, attempts
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func testAccount() *account.Account {
	return &account.Account{
		ID:            "u-1",
		Username:      "alice",
		Email:         "alice@example.com",
		EmailVerified: true,
	}
}

func TestRegisterEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{})

	rec := doJSON(r, http.MethodPost, "/auth/register/",
		`{"username":"alice","email":"alice@example.com","password":"Secret123!"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")
}

func TestRegisterEndpointValidationError(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{
		registerErr: &service.ValidationError{Msg: "email already registered"},
	})

	rec := doJSON(r, http.MethodPost, "/auth/register/",
		`{"username":"alice","email":"alice@example.com","password":"Secret123!"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"email already registered"}`, rec.Body.String())
}

func TestLoginEndpointSetsRefreshCookie(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{
		account: testAccount(),
		pair:    token.Pair{AccessToken: "acc", RefreshToken: "ref"},
	})

	rec := doJSON(r, http.MethodPost, "/auth/login/",
		`{"email":"alice@example.com","password":"Secret123!"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Access  string         `json:"access"`
		Refresh string         `json:"refresh"`
		User    map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "acc", body.Access)
	assert.Equal(t, "ref", body.Refresh)
	assert.Equal(t, "alice", body.User["username"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Equal(t, "ref", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginEndpointFailureShapeIsUniform(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{loginErr: service.ErrInvalidCredentials})

	unknownEmail := doJSON(r, http.MethodPost, "/auth/login/",
		`{"email":"nobody@example.com","password":"x"}`)
	wrongPassword := doJSON(r, http.MethodPost, "/auth/login/",
		`{"email":"alice@example.com","password":"wrong"}`)

	assert.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	assert.Equal(t, unknownEmail.Code, wrongPassword.Code)
	assert.Equal(t, unknownEmail.Body.String(), wrongPassword.Body.String())
}

func TestRefreshEndpointWithoutCookie(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{})

	rec := doJSON(r, http.MethodPost, "/auth/token/refresh/", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"no refresh token"}`, rec.Body.String())
}

func TestRefreshEndpointInvalidToken(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{refreshErr: token.ErrInvalidToken})

	req := httptest.NewRequest(http.MethodPost, "/auth/token/refresh/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tampered"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{access: "new-access"})

	req := httptest.NewRequest(http.MethodPost, "/auth/token/refresh/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "valid-refresh"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"access":"new-access"}`, rec.Body.String())
}

func TestLogoutEndpointClearsCookie(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{})

	rec := doJSON(r, http.MethodPost, "/auth/logout/", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestVerifyEmailEndpointInvalidToken(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{verifyErr: verification.ErrTokenNotFound})

	req := httptest.NewRequest(http.MethodGet, "/auth/verify-email/?token=never-issued", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid token"}`, rec.Body.String())
}

func TestSocialLoginEndpoint(t *testing.T) {
	svc := &stubService{
		account: testAccount(),
		pair:    token.Pair{AccessToken: "acc", RefreshToken: "ref"},
	}
	r, _ := newTestRouter(t, svc)

	rec := doJSON(r, http.MethodPost, "/auth/social/google/",
		`{"code":"the-code","code_verifier":"the-verifier"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "google", svc.gotProvider)
	assert.Equal(t, "the-code", svc.gotSocialInput.Code)
	assert.Equal(t, "the-verifier", svc.gotSocialInput.CodeVerifier)
}

func TestSocialLoginEndpointUnsupportedProvider(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{
		socialErr: provider.ErrUnsupportedProvider,
	})

	rec := doJSON(r, http.MethodPost, "/auth/social/myspace/", `{"code":"x"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"unsupported provider"}`, rec.Body.String())
}

func TestSocialLoginEndpointRequiresCredentials(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{})

	rec := doJSON(r, http.MethodPost, "/auth/social/google/", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	svc := &stubService{
		account:   testAccount(),
		providers: []string{"github", "google"},
	}
	r, _ := newTestRouter(t, svc)

	issuer := token.NewIssuer("test-secret", "social-auth-service", 15*time.Minute, time.Hour)
	pair, err := issuer.Issue("u-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, []any{"github", "google"}, body["providers"])
}

func TestMeEndpointUnauthenticated(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthLoginRedirect(t *testing.T) {
	r, attempts := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/oauth/login/google", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	assert.NotEmpty(t, location.Query().Get("code_challenge"))

	// The attempt is retrievable exactly once under the state nonce.
	a, err := attempts.Consume(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "google", a.Provider)
	assert.NotEmpty(t, a.Verifier)
}

func TestOAuthCallback(t *testing.T) {
	svc := &stubService{
		account: testAccount(),
		pair:    token.Pair{AccessToken: "acc", RefreshToken: "ref"},
	}
	r, attempts := newTestRouter(t, svc)

	require.NoError(t, attempts.Create(context.Background(), attempt.Attempt{
		State:    "state-1",
		Provider: "google",
		Verifier: "verifier-1",
	}))

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/google?state=state-1&code=the-code", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "the-code", svc.gotSocialInput.Code)
	assert.Equal(t, "verifier-1", svc.gotSocialInput.CodeVerifier)
}

func TestOAuthCallbackForgedState(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/google?state=forged&code=x", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid state"}`, rec.Body.String())
}

func TestOAuthCallbackStateBoundToProvider(t *testing.T) {
	r, attempts := newTestRouter(t, &stubService{})

	require.NoError(t, attempts.Create(context.Background(), attempt.Attempt{
		State:    "state-1",
		Provider: "google",
		Verifier: "verifier-1",
	}))

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/github?state=state-1&code=x", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOAuthCallbackProviderError(t *testing.T) {
	r, _ := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet,
		"/oauth/callback/google?error=access_denied&error_description=user+cancelled", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
