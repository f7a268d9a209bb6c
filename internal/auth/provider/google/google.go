package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"social-auth-service/internal/auth"
	"social-auth-service/internal/auth/provider"
	"social-auth-service/internal/logger"
)

const (
	providerName = "google"
	issuerURL    = "https://accounts.google.com"
)

type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	client      *http.Client

	userinfoURL string
}

func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
		client:      provider.NewHTTPClient(),
		userinfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*provider.Tokens, error) {

	opts := []oauth2.AuthCodeOption{}
	if codeVerifier != "" {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	}

	token, err := p.oauthConfig.Exchange(provider.WithClient(ctx, p.client), code, opts...)
	if err != nil {
		return nil, &provider.ExchangeError{Provider: providerName, Err: err}
	}

	tokens := &provider.Tokens{AccessToken: token.AccessToken}
	if raw, ok := token.Extra("id_token").(string); ok {
		tokens.IDToken = raw
	}

	return tokens, nil
}

// FetchProfile prefers the id_token: its signature and issuer are
// verified locally before any claim is trusted. An access token alone
// falls back to the userinfo endpoint.
func (p *Provider) FetchProfile(
	ctx context.Context,
	tokens *provider.Tokens,
) (*auth.Profile, error) {

	if tokens.IDToken != "" {
		return p.profileFromIDToken(ctx, tokens.IDToken)
	}
	if tokens.AccessToken != "" {
		return p.profileFromUserinfo(ctx, tokens.AccessToken)
	}
	return nil, &provider.ProfileError{
		Provider: providerName,
		Err:      errors.New("no id_token or access_token"),
	}
}

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (c googleClaims) profile() *auth.Profile {
	return &auth.Profile{
		Provider:      providerName,
		SubjectID:     c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		DisplayName:   c.Name,
		Raw: map[string]any{
			"email":   c.Email,
			"name":    c.Name,
			"picture": c.Picture,
		},
	}
}

func (p *Provider) profileFromIDToken(ctx context.Context, rawIDToken string) (*auth.Profile, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, &provider.ProfileError{Provider: providerName, Err: err}
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, &provider.ProfileError{Provider: providerName, Err: err}
	}

	if claims.Subject == "" {
		return nil, &provider.ProfileError{
			Provider: providerName,
			Err:      errors.New("id_token missing sub claim"),
		}
	}

	logger.Info("google oidc verified", map[string]any{
		"issuer":         idToken.Issuer,
		"email_present":  claims.Email != "",
		"email_verified": claims.EmailVerified,
	})

	return claims.profile(), nil
}

func (p *Provider) profileFromUserinfo(ctx context.Context, accessToken string) (*auth.Profile, error) {
	var claims googleClaims
	err := provider.GetJSON(ctx, p.client, p.userinfoURL, accessToken, "", &claims)
	if err != nil {
		return nil, &provider.ProfileError{Provider: providerName, Err: err}
	}

	if claims.Subject == "" {
		return nil, &provider.ProfileError{
			Provider: providerName,
			Err:      errors.New("userinfo missing sub"),
		}
	}

	// Userinfo responses for the email scope carry email_verified too;
	// absent claims default to false and the merge policy handles it.
	return claims.profile(), nil
}
