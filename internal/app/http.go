package app

import (
	"context"
	"strings"

	"social-auth-service/internal/auth/account"
	"social-auth-service/internal/auth/attempt"
	"social-auth-service/internal/auth/handler"
	"social-auth-service/internal/auth/provider"
	"social-auth-service/internal/auth/provider/facebook"
	"social-auth-service/internal/auth/provider/github"
	"social-auth-service/internal/auth/provider/google"
	"social-auth-service/internal/auth/provider/linkedin"
	"social-auth-service/internal/auth/reconcile"
	"social-auth-service/internal/auth/service"
	"social-auth-service/internal/auth/token"
	"social-auth-service/internal/auth/verification"
	"social-auth-service/internal/config"
	"social-auth-service/internal/logger"
	"social-auth-service/internal/mailer"
	"social-auth-service/internal/middleware"
	"social-auth-service/internal/session"

	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	accountStore := account.NewStore(infra.DB)
	ledger := verification.NewLedger(infra.DB)
	attempts := attempt.NewStore(infra.Redis.Client)

	issuer := token.NewIssuer(
		cfg.JWTSecret,
		"social-auth-service",
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	mergePolicy, err := reconcile.ParseMergePolicy(cfg.EmailMergePolicy)
	if err != nil {
		return nil, nil, err
	}
	reconciler := reconcile.NewEngine(infra.DB, mergePolicy)

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var sender mailer.Sender = mailer.ConsoleSender{}
	if cfg.SMTPAddr != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPAddr, cfg.EmailFrom)
	}

	authService := service.New(
		accountStore,
		ledger,
		issuer,
		registry,
		reconciler,
		sender,
		cfg.BaseURL,
	)

	authHandler := handler.NewHandler(
		authService,
		attempts,
		cfg.RefreshTokenTTL,
		session.CookieOptions{Secure: cfg.Production()},
	)

	authMiddleware := middleware.NewAuthMiddleware(issuer)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	authHandler.RegisterRoutes(router, middleware.GinRequireAuth(authMiddleware))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		if err := infra.Redis.Close(); err != nil {
			return err
		}
		return infra.DB.Close()
	}, nil
}

// setupProviders registers every provider with complete credentials and
// skips the rest, so unconfigured providers fail per-request instead of
// blocking startup.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	redirectBase := cfg.OAuthRedirectURI
	if redirectBase == "" {
		redirectBase = cfg.BaseURL + "/oauth/callback"
	}
	redirectBase = strings.TrimRight(redirectBase, "/")

	var providers []provider.OAuthProvider

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, redirectBase+"/google")
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		p, err := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, redirectBase+"/github")
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		p, err := facebook.New(cfg.FacebookClientID, cfg.FacebookClientSecret, redirectBase+"/facebook")
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.LinkedInClientID != "" && cfg.LinkedInClientSecret != "" {
		p, err := linkedin.New(cfg.LinkedInClientID, cfg.LinkedInClientSecret, redirectBase+"/linkedin")
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		logger.Warn("no oauth providers configured, social login disabled", nil)
	}

	return provider.NewRegistry(providers...), nil
}
