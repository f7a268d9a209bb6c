// Package service sequences the auth components for each entry point:
// register, login, social login, refresh, logout, verify-email. It is
// the only place that decides; stores, adapters and issuers below it
// hold facts and mechanics.
package service

import (
	"context"
	"errors"
	"strings"

	"social-auth-service/internal/auth"
	"social-auth-service/internal/auth/account"
	"social-auth-service/internal/auth/credentials"
	"social-auth-service/internal/auth/provider"
	"social-auth-service/internal/auth/token"
	"social-auth-service/internal/auth/verification"
	"social-auth-service/internal/logger"
	"social-auth-service/internal/mailer"
)

// ErrInvalidCredentials is deliberately unspecific: a wrong password and
// an unknown email are indistinguishable, which blocks account
// enumeration through the login endpoint.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports malformed or conflicting registration input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Reconciler resolves a provider profile to a local account.
type Reconciler interface {
	Reconcile(ctx context.Context, p *auth.Profile) (*account.Account, error)
}

type Service struct {
	store      *account.Store
	ledger     *verification.Ledger
	issuer     *token.Issuer
	registry   *provider.Registry
	reconciler Reconciler
	mailer     mailer.Sender
	baseURL    string
}

func New(
	store *account.Store,
	ledger *verification.Ledger,
	issuer *token.Issuer,
	registry *provider.Registry,
	reconciler Reconciler,
	sender mailer.Sender,
	baseURL string,
) *Service {
	return &Service{
		store:      store,
		ledger:     ledger,
		issuer:     issuer,
		registry:   registry,
		reconciler: reconciler,
		mailer:     sender,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Register creates an unverified account and issues a verification
// token. The user logs in separately; no session tokens are returned.
// The verification email is best-effort and never fails the request.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return &ValidationError{Msg: "username is required"}
	}
	if email == "" || !strings.Contains(email, "@") {
		return &ValidationError{Msg: "a valid email is required"}
	}

	hash, err := credentials.HashPassword(password)
	if errors.Is(err, credentials.ErrPasswordTooShort) {
		return &ValidationError{Msg: "password must be at least 8 characters"}
	}
	if err != nil {
		return err
	}

	acc, err := s.store.Create(ctx, username, email, hash)
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		return &ValidationError{Msg: "email already registered"}
	case errors.Is(err, account.ErrUsernameTaken):
		return &ValidationError{Msg: "username already taken"}
	case err != nil:
		return err
	}

	verifyToken, err := s.ledger.Issue(ctx, acc.ID)
	if err != nil {
		return err
	}

	verifyURL := s.baseURL + "/auth/verify-email/?token=" + verifyToken
	if err := s.mailer.SendVerificationEmail(acc.Email, verifyURL); err != nil {
		logger.Error("verification email failed", map[string]any{
			"account_id": acc.ID,
			"error":      err.Error(),
		})
	}

	return nil
}

// Login authenticates a password account and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*account.Account, token.Pair, error) {
	acc, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, account.ErrNotFound) {
		return nil, token.Pair{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, token.Pair{}, err
	}

	// Social-only accounts have no password to check.
	if !acc.PasswordHash.Valid {
		return nil, token.Pair{}, ErrInvalidCredentials
	}

	if err := credentials.VerifyPassword(acc.PasswordHash.String, password); err != nil {
		return nil, token.Pair{}, ErrInvalidCredentials
	}

	pair, err := s.issuer.Issue(acc.ID)
	if err != nil {
		return nil, token.Pair{}, err
	}

	return acc, pair, nil
}

// SocialLoginInput carries the client side of a social login: either an
// authorization code (with optional PKCE verifier) or provider
// credentials obtained by the client directly.
type SocialLoginInput struct {
	Code         string
	CodeVerifier string
	AccessToken  string
	IDToken      string
}

// SocialLogin runs exchange, profile fetch and reconciliation, then
// issues a token pair. The two network calls happen outside the
// reconciliation transaction; they cannot be rolled back anyway.
func (s *Service) SocialLogin(
	ctx context.Context,
	providerName string,
	in SocialLoginInput,
) (*account.Account, token.Pair, error) {

	p, err := s.registry.Get(providerName)
	if err != nil {
		return nil, token.Pair{}, err
	}

	tokens := &provider.Tokens{
		AccessToken: in.AccessToken,
		IDToken:     in.IDToken,
	}

	if in.Code != "" && tokens.AccessToken == "" && tokens.IDToken == "" {
		tokens, err = p.ExchangeCode(ctx, in.Code, in.CodeVerifier)
		if err != nil {
			return nil, token.Pair{}, err
		}
	}

	profile, err := p.FetchProfile(ctx, tokens)
	if err != nil {
		return nil, token.Pair{}, err
	}

	acc, err := s.reconciler.Reconcile(ctx, profile)
	if err != nil {
		return nil, token.Pair{}, err
	}

	pair, err := s.issuer.Issue(acc.ID)
	if err != nil {
		return nil, token.Pair{}, err
	}

	logger.Info("social login", map[string]any{
		"provider":   providerName,
		"account_id": acc.ID,
	})

	return acc, pair, nil
}

// AuthorizationURL builds the provider redirect URL for the
// server-initiated flow.
func (s *Service) AuthorizationURL(providerName, state, codeChallenge string) (string, error) {
	p, err := s.registry.Get(providerName)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state, codeChallenge), nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Service) Refresh(refreshToken string) (string, error) {
	return s.issuer.Refresh(refreshToken)
}

// VerifyEmail consumes a verification token.
func (s *Service) VerifyEmail(ctx context.Context, verifyToken string) error {
	_, err := s.ledger.Consume(ctx, verifyToken)
	return err
}

// Me returns the account and its linked providers for an authenticated
// account id taken from verified access-token claims.
func (s *Service) Me(ctx context.Context, accountID string) (*account.Account, []string, error) {
	acc, err := s.store.ByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	providers, err := s.store.Providers(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	return acc, providers, nil
}
