package linkedin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	oauth2linkedin "golang.org/x/oauth2/linkedin"

	"social-auth-service/internal/auth"
	"social-auth-service/internal/auth/provider"
)

const providerName = "linkedin"

type Provider struct {
	oauthConfig *oauth2.Config
	client      *http.Client

	apiBaseURL string
}

func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("linkedin oauth config missing required fields")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oauth2linkedin.Endpoint,
			Scopes:       []string{"r_liteprofile", "r_emailaddress"},
		},
		client:     provider.NewHTTPClient(),
		apiBaseURL: "https://api.linkedin.com",
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

// FetchProfile reads /v2/me and resolves the member email through the
// emailAddress projection endpoint.
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
		ID        string `json:"id"`
		FirstName string `json:"localizedFirstName"`
		LastName  string `json:"localizedLastName"`
	}

	err := provider.GetJSON(ctx, p.client, p.apiBaseURL+"/v2/me", tokens.AccessToken, "", &me)
	if err != nil {
		return nil, &provider.ProfileError{Provider: providerName, Err: err}
	}

	if me.ID == "" {
		return nil, &provider.ProfileError{
			Provider: providerName,
			Err:      errors.New("profile response missing id"),
		}
	}

	email := p.memberEmail(ctx, tokens.AccessToken)
	name := strings.TrimSpace(me.FirstName + " " + me.LastName)

	return &auth.Profile{
		Provider:      providerName,
		SubjectID:     me.ID,
		Email:         email,
		EmailVerified: email != "",
		DisplayName:   name,
		Raw: map[string]any{
			"email": email,
			"name":  name,
		},
	}, nil
}

// memberEmail is best-effort, same policy as the github adapter.
func (p *Provider) memberEmail(ctx context.Context, accessToken string) string {
	var result struct {
		Elements []struct {
			Handle struct {
				EmailAddress string `json:"emailAddress"`
			} `json:"handle~"`
		} `json:"elements"`
	}

	url := p.apiBaseURL + "/v2/emailAddress?q=members&projection=(elements*(handle~))"
	if err := provider.GetJSON(ctx, p.client, url, accessToken, "", &result); err != nil {
		return ""
	}

	if len(result.Elements) == 0 {
		return ""
	}
	return result.Elements[0].Handle.EmailAddress
}
