package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Esha-Sharmaa/noting-backend/pkg/httpclient"
)

// googleUserInfoURL is the endpoint serving the authenticated user's profile.
const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOAuthConfig holds the provider settings for Google login.
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleOAuth implements the Google login flow: redirect URL construction,
// code exchange, and profile fetch.
type GoogleOAuth struct {
	config *oauth2.Config
	client *httpclient.Client
}

// NewGoogleOAuth creates a Google OAuth provider.
func NewGoogleOAuth(cfg GoogleOAuthConfig, client *httpclient.Client) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		client: client,
	}
}

// AuthCodeURL returns the provider URL to redirect the user to.
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's profile.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*OAuthProfile, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	return g.fetchProfile(ctx, token.AccessToken)
}

// googleUserInfo is the userinfo response shape.
type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// fetchProfile loads the user profile with the provider access token.
func (g *GoogleOAuth) fetchProfile(ctx context.Context, accessToken string) (*OAuthProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "google userinfo")
	}
	defer func() { _ = resp.Body.Close() }()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}

	return &OAuthProfile{
		OAuthID:   info.ID,
		Email:     info.Email,
		FullName:  info.Name,
		AvatarURL: info.Picture,
	}, nil
}
