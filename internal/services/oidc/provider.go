package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
)

// DefaultProviderName is the provider record the API authenticates
// against. Multiple providers can be stored; only one is active.
const DefaultProviderName = "default"

// Provider manages OIDC provider configuration
type Provider struct {
	repo *database.OIDCConfigRepository
}

// NewProvider creates a new OIDC provider manager
func NewProvider(repo *database.OIDCConfigRepository) *Provider {
	return &Provider{repo: repo}
}

// GetConfig retrieves OIDC configuration for a provider
func (p *Provider) GetConfig(ctx context.Context, providerName string) (*models.OIDCConfig, error) {
	config, err := p.repo.GetByProvider(ctx, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return config, nil
}

// GetLoginConfig returns the configuration needed for frontend OIDC login.
// The authorization endpoint comes from the provider's discovery document
// when reachable, falling back to issuer-based construction.
func (p *Provider) GetLoginConfig(ctx context.Context, providerName string) (*LoginConfig, error) {
	config, err := p.GetConfig(ctx, providerName)
	if err != nil {
		return nil, err
	}

	var authEndpoint, tokenEndpoint string
	if discovery, err := fetchDiscovery(ctx, config.Issuer); err == nil {
		authEndpoint = discovery.AuthorizationEndpoint
		tokenEndpoint = discovery.TokenEndpoint
	}

	// Hosted-domain providers (e.g. Cognito) serve OAuth2 endpoints from
	// a separate domain rather than the issuer.
	if config.Domain != nil && *config.Domain != "" {
		baseURL := *config.Domain
		if !strings.HasPrefix(baseURL, "https://") {
			baseURL = "https://" + baseURL
		}
		authEndpoint = baseURL + "/oauth2/authorize"
		tokenEndpoint = baseURL + "/oauth2/token"
	}

	if authEndpoint == "" {
		authEndpoint = joinIssuerPath(config.Issuer, "oauth2/authorize")
	}
	if tokenEndpoint == "" {
		tokenEndpoint = joinIssuerPath(config.Issuer, "oauth2/token")
	}

	return &LoginConfig{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientID:              config.ClientID,
		RedirectURI:           config.RedirectURI,
		Scope:                 "openid email profile",
	}, nil
}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

func fetchDiscovery(ctx context.Context, issuer string) (*discoveryDocument, error) {
	discoveryURL := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	if doc.AuthorizationEndpoint == "" {
		return nil, fmt.Errorf("discovery document missing authorization_endpoint")
	}

	return &doc, nil
}

func joinIssuerPath(issuer, path string) string {
	return strings.TrimSuffix(issuer, "/") + "/" + path
}

// LoginConfig contains OIDC login configuration for frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}
