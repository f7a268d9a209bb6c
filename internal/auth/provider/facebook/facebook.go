package facebook

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	oauth2facebook "golang.org/x/oauth2/facebook"

	"social-auth-service/internal/auth"
	"social-auth-service/internal/auth/provider"
)

const providerName = "facebook"

type Provider struct {
	oauthConfig *oauth2.Config
	client      *http.Client

	graphBaseURL string
}

func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("facebook oauth config missing required fields")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oauth2facebook.Endpoint,
			Scopes:       []string{"public_profile", "email"},
		},
		client:       provider.NewHTTPClient(),
		graphBaseURL: "https://graph.facebook.com",
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

	var me struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	url := p.graphBaseURL + "/me?fields=id,name,email"
	if err := provider.GetJSON(ctx, p.client, url, tokens.AccessToken, "", &me); err != nil {
		return nil, &provider.ProfileError{Provider: providerName, Err: err}
	}

	if me.ID == "" {
		return nil, &provider.ProfileError{
			Provider: providerName,
			Err:      errors.New("graph response missing id"),
		}
	}

	return &auth.Profile{
		Provider:  providerName,
		SubjectID: me.ID,
		Email:     me.Email,
		// Facebook only returns addresses it has confirmed itself.
		EmailVerified: me.Email != "",
		DisplayName:   me.Name,
		Raw: map[string]any{
			"email": me.Email,
			"name":  me.Name,
		},
	}, nil
}
