package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"

	"social-auth-service/internal/auth"
	"social-auth-service/internal/auth/provider"
)

const (
	providerName = "github"
	acceptHeader = "application/vnd.github+json"
)

type Provider struct {
	oauthConfig *oauth2.Config
	client      *http.Client

	apiBaseURL string
}

func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oauth2github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		client:     provider.NewHTTPClient(),
		apiBaseURL: "https://api.github.com",
	}, nil
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
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

	return &provider.Tokens{AccessToken: token.AccessToken}, nil
}

// FetchProfile reads /user, falling back to /user/emails when the
// profile email is hidden (common for github accounts).
func (p *Provider) FetchProfile(
	ctx context.Context,
	tokens *provider.Tokens,
) (*auth.Profile, error) {

	if tokens.AccessToken == "" {
		return nil, &provider.ProfileError{
			Provider: providerName,
			Err:      errors.New("no access_token"),
		}
	}

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}

	err := provider.GetJSON(ctx, p.client, p.apiBaseURL+"/user", tokens.AccessToken, acceptHeader, &user)
	if err != nil {
		return nil, &provider.ProfileError{Provider: providerName, Err: err}
	}

	if user.ID == 0 {
		return nil, &provider.ProfileError{
			Provider: providerName,
			Err:      errors.New("user response missing id"),
		}
	}

	email := user.Email
	emailVerified := email != ""

	if email == "" {
		email, emailVerified = p.primaryEmail(ctx, tokens.AccessToken)
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &auth.Profile{
		Provider:      providerName,
		SubjectID:     fmt.Sprintf("%d", user.ID),
		Email:         email,
		EmailVerified: emailVerified,
		DisplayName:   name,
		Raw: map[string]any{
			"email":      email,
			"name":       name,
			"avatar_url": user.AvatarURL,
		},
	}, nil
}

// primaryEmail is best-effort: a missing email is not a profile failure,
// reconciliation can proceed on subject id alone.
func (p *Provider) primaryEmail(ctx context.Context, accessToken string) (string, bool) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}

	err := provider.GetJSON(ctx, p.client, p.apiBaseURL+"/user/emails", accessToken, acceptHeader, &emails)
	if err != nil || len(emails) == 0 {
		return "", false
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified
		}
	}

	return emails[0].Email, emails[0].Verified
}
