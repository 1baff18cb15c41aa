package oidc

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/mkammes/taskpilot/internal/models"
)

// Verifier checks token signatures against the provider's JWKS and
// enforces the expected issuer.
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
}

func NewVerifier(jwksManager *JWKSManager, issuer string) *Verifier {
	return &Verifier{jwksManager: jwksManager, issuer: issuer}
}

// Verify validates the token's signature and standard claims, then
// returns the claims the rest of the service cares about.
func (v *Verifier) Verify(ctx context.Context, tokenString string, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	iss, ok := token.Get("iss")
	if !ok {
		return nil, fmt.Errorf("token missing issuer claim")
	}
	if issStr, ok := iss.(string); !ok || issStr != v.issuer {
		return nil, fmt.Errorf("token issuer mismatch: expected %s, got %v", v.issuer, iss)
	}

	claims := &models.JWTClaims{
		Sub:   stringClaim(token, "sub"),
		Email: stringClaim(token, "email"),
		Name:  stringClaim(token, "name"),
		Iss:   stringClaim(token, "iss"),
		Exp:   int64Claim(token, "exp"),
		Iat:   int64Claim(token, "iat"),
	}

	// aud may be a string or an array of strings depending on provider.
	if aud, ok := token.Get("aud"); ok {
		switch a := aud.(type) {
		case string:
			claims.Aud = a
		case []string:
			if len(a) > 0 {
				claims.Aud = a[0]
			}
		case []any:
			if len(a) > 0 {
				if s, ok := a[0].(string); ok {
					claims.Aud = s
				}
			}
		}
	}

	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	if raw, ok := token.Get(name); ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}

// int64Claim handles the representations jwx uses for numeric date
// claims: time.Time for registered ones, float64 for private ones.
func int64Claim(token jwt.Token, name string) int64 {
	raw, ok := token.Get(name)
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case time.Time:
		return v.Unix()
	case float64:
		return int64(v)
	}
	return 0
}
