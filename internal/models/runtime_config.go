package models

import (
	"time"

	"github.com/google/uuid"
)

// OIDCConfig is a configured identity provider. Domain covers
// providers whose OAuth2 endpoints live on a separate host from the
// issuer, like Cognito custom domains.
type OIDCConfig struct {
	ID           uuid.UUID `json:"id"`
	Provider     string    `json:"provider"`
	Issuer       string    `json:"issuer"`
	Domain       *string   `json:"domain,omitempty"`
	ClientID     string    `json:"client_id"`
	ClientSecret *string   `json:"client_secret,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	JWKSUrl      *string   `json:"jwks_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CorsConfig is the stored browser origin allowlist. AllowedOrigins is
// comma-separated.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RatelimitConfig is the stored request rate in limiter notation, e.g.
// "5-S" or "100-M".
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
