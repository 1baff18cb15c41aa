package oidc

import (
	"strings"
	"testing"

	"github.com/mkammes/taskpilot/internal/models"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	secret := "test-secret"

	t.Run("confidential client", func(t *testing.T) {
		t.Parallel()

		client := NewClient(&models.OIDCConfig{
			ClientID:     "test-client-id",
			ClientSecret: &secret,
			RedirectURI:  "http://localhost:3000/callback",
			Issuer:       "https://auth.example.com",
		})

		if client.config.ClientID != "test-client-id" {
			t.Errorf("ClientID = %q, want %q", client.config.ClientID, "test-client-id")
		}
		if client.config.ClientSecret != secret {
			t.Errorf("ClientSecret = %q, want %q", client.config.ClientSecret, secret)
		}
		if client.config.RedirectURL != "http://localhost:3000/callback" {
			t.Errorf("RedirectURL = %q", client.config.RedirectURL)
		}
		if client.config.Endpoint.AuthURL != "https://auth.example.com/oauth2/authorize" {
			t.Errorf("AuthURL = %q", client.config.Endpoint.AuthURL)
		}
		if client.config.Endpoint.TokenURL != "https://auth.example.com/oauth2/token" {
			t.Errorf("TokenURL = %q", client.config.Endpoint.TokenURL)
		}
	})

	t.Run("public client has empty secret", func(t *testing.T) {
		t.Parallel()

		client := NewClient(&models.OIDCConfig{
			ClientID:    "test-client-id",
			RedirectURI: "http://localhost:3000/callback",
			Issuer:      "https://auth.example.com",
		})

		if client.config.ClientSecret != "" {
			t.Errorf("ClientSecret = %q, want empty for public client", client.config.ClientSecret)
		}
	})
}

func TestClient_AuthCodeURL(t *testing.T) {
	t.Parallel()

	client := NewClient(&models.OIDCConfig{
		ClientID:    "test-client-id",
		RedirectURI: "http://localhost:3000/callback",
		Issuer:      "https://auth.example.com",
	})

	url := client.AuthCodeURL("test-state-123")

	if !strings.HasPrefix(url, "https://auth.example.com/oauth2/authorize?") {
		t.Errorf("AuthCodeURL = %q, want authorize endpoint prefix", url)
	}
	if !strings.Contains(url, "state=test-state-123") {
		t.Errorf("AuthCodeURL = %q, missing state parameter", url)
	}
	if !strings.Contains(url, "client_id=test-client-id") {
		t.Errorf("AuthCodeURL = %q, missing client_id parameter", url)
	}
}
