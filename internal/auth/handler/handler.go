package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"social-auth-service/internal/auth/account"
	"social-auth-service/internal/auth/attempt"
	"social-auth-service/internal/auth/provider"
	"social-auth-service/internal/auth/service"
	"social-auth-service/internal/auth/token"
	"social-auth-service/internal/auth/verification"
	"social-auth-service/internal/logger"
	"social-auth-service/internal/session"
)

// AuthService is the orchestrator surface the handlers depend on.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, email, password string) (*account.Account, token.Pair, error)
	SocialLogin(ctx context.Context, providerName string, in service.SocialLoginInput) (*account.Account, token.Pair, error)
	AuthorizationURL(providerName, state, codeChallenge string) (string, error)
	Refresh(refreshToken string) (string, error)
	VerifyEmail(ctx context.Context, verifyToken string) error
	Me(ctx context.Context, accountID string) (*account.Account, []string, error)
}

type Handler struct {
	svc        AuthService
	attempts   *attempt.Store
	refreshTTL time.Duration
	cookieOpts session.CookieOptions
}

func NewHandler(
	svc AuthService,
	attempts *attempt.Store,
	refreshTTL time.Duration,
	cookieOpts session.CookieOptions,
) *Handler {
	return &Handler{
		svc:        svc,
		attempts:   attempts,
		refreshTTL: refreshTTL,
		cookieOpts: cookieOpts,
	}
}

// RegisterRoutes mounts the auth API. requireAuth guards the
// authenticated endpoints.
func (h *Handler) RegisterRoutes(r *gin.Engine, requireAuth gin.HandlerFunc) {
	r.POST("/auth/register/", h.Register)
	r.GET("/auth/verify-email/", h.VerifyEmail)
	r.POST("/auth/login/", h.Login)
	r.POST("/auth/token/refresh/", h.Refresh)
	r.POST("/auth/logout/", h.Logout)
	r.POST("/auth/social/:provider/", h.SocialLogin)

	r.GET("/oauth/login/:provider", h.OAuthLogin)
	r.GET("/oauth/callback/:provider", h.OAuthCallback)

	r.GET("/auth/me/", requireAuth, h.Me)
}

func userPayload(acc *account.Account) gin.H {
	return gin.H{
		"id":             acc.ID,
		"username":       acc.Username,
		"email":          acc.Email,
		"email_verified": acc.EmailVerified,
	}
}

// tokenResponse writes the standard login response and delivers the
// refresh token through the http-only cookie as well as the body.
func (h *Handler) tokenResponse(c *gin.Context, acc *account.Account, pair token.Pair) {
	session.SetRefreshCookie(c.Writer, pair.RefreshToken, h.refreshTTL, h.cookieOpts)

	c.JSON(http.StatusOK, gin.H{
		"access":  pair.AccessToken,
		"refresh": pair.RefreshToken,
		"user":    userPayload(acc),
	})
}

// respondError maps the core error taxonomy onto terse JSON responses
// with a stable detail field. Upstream provider detail is logged, never
// forwarded verbatim.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		exchangeErr   *provider.ExchangeError
		profileErr    *provider.ProfileError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": validationErr.Msg})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid credentials"})

	case errors.Is(err, provider.ErrUnsupportedProvider):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unsupported provider"})

	case errors.As(err, &exchangeErr):
		logger.Warn("code exchange failed", map[string]any{
			"provider": exchangeErr.Provider,
			"error":    exchangeErr.Err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{"detail": "code exchange failed"})

	case errors.As(err, &profileErr):
		logger.Warn("profile fetch failed", map[string]any{
			"provider": profileErr.Provider,
			"error":    profileErr.Err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to fetch user from provider"})

	case errors.Is(err, verification.ErrTokenNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid token"})

	case errors.Is(err, token.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})

	default:
		logger.Error("unhandled auth error", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}
