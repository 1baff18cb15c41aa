package oidc

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/mkammes/taskpilot/internal/models"
)

// Client drives the OAuth2 authorization-code flow for a configured
// OIDC provider.
type Client struct {
	config *oauth2.Config
}

// NewClient builds an OAuth2 client from a stored provider config. A
// nil client secret means a public client (PKCE-style flow).
func NewClient(oidcConfig *models.OIDCConfig) *Client {
	secret := ""
	if oidcConfig.ClientSecret != nil {
		secret = *oidcConfig.ClientSecret
	}

	return &Client{config: &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: secret,
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  oidcConfig.Issuer + "/oauth2/authorize",
			TokenURL: oidcConfig.Issuer + "/oauth2/token",
		},
	}}
}

// ExchangeCode trades an authorization code for a token set.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// AuthCodeURL returns the provider URL to send the browser to.
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
