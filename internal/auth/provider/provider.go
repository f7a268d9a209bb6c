package provider

import (
	"context"

	"social-auth-service/internal/auth"
)

// Tokens is the result of redeeming an authorization code, or the
// provider credentials a client supplied directly.
type Tokens struct {
	AccessToken string
	IDToken     string
}

// OAuthProvider defines the contract every external auth provider must
// implement. Implementations return identity facts only and must not
// perform user creation, linking, or session management. Adapters differ
// only in endpoints, scopes, and whether an id_token is available.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google", "linkedin").
	Name() string

	// AuthCodeURL returns the OAuth authorization URL.
	// State and PKCE parameters are provided by the caller.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode redeems the single-use authorization code at the
	// provider token endpoint. codeVerifier may be empty when the client
	// did not use PKCE. Never retried: the code would be spent anyway.
	ExchangeCode(ctx context.Context, code string, codeVerifier string) (*Tokens, error)

	// FetchProfile resolves provider credentials to a normalized profile.
	// The profile always carries at least SubjectID.
	FetchProfile(ctx context.Context, tokens *Tokens) (*auth.Profile, error)
}
