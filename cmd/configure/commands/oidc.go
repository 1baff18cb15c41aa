package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
)

// NewOIDCCmd creates the command that creates or updates an OIDC
// provider configuration.
func NewOIDCCmd() *cobra.Command {
	var issuer, domain, clientID, clientSecret, redirectURI string

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Configure OIDC provider",
		Long:  "Configure an OIDC provider for authentication. Provider name can be any identifier (e.g., 'cognito', 'okta', 'auth0')",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if provider == "" {
				return fmt.Errorf("provider name cannot be empty")
			}
			if issuer == "" || clientID == "" || redirectURI == "" {
				return fmt.Errorf("required flags: --issuer, --client-id, --redirect-uri (--client-secret is optional for public clients)")
			}

			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			oidcRepo := database.NewOIDCConfigRepository(db)
			ctx := context.Background()

			// Standard discovery location; providers that publish keys
			// elsewhere can be fixed up directly in the database.
			jwksURL := issuer + "/.well-known/jwks.json"

			var domainPtr, secretPtr *string
			if domain != "" {
				domainPtr = &domain
			}
			if clientSecret != "" {
				secretPtr = &clientSecret
			}

			existing, err := oidcRepo.GetByProvider(ctx, provider)
			if err == nil && existing != nil {
				existing.Issuer = issuer
				existing.ClientID = clientID
				existing.RedirectURI = redirectURI
				existing.JWKSUrl = &jwksURL
				existing.ClientSecret = secretPtr
				if domainPtr != nil {
					existing.Domain = domainPtr
				}

				if err := oidcRepo.Update(ctx, existing); err != nil {
					return fmt.Errorf("failed to update OIDC config: %w", err)
				}
				fmt.Printf("Updated OIDC configuration for provider: %s\n", provider)
				return nil
			}

			created := &models.OIDCConfig{
				ID:           uuid.New(),
				Provider:     provider,
				Issuer:       issuer,
				Domain:       domainPtr,
				ClientID:     clientID,
				ClientSecret: secretPtr,
				RedirectURI:  redirectURI,
				JWKSUrl:      &jwksURL,
			}
			if err := oidcRepo.Create(ctx, created); err != nil {
				return fmt.Errorf("failed to create OIDC config: %w", err)
			}
			fmt.Printf("Created OIDC configuration for provider: %s\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&domain, "domain", "", "OAuth2 domain (optional, e.g., for Cognito custom domains like 'idp.example.com')")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (optional for public clients like Cognito SPAs)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")

	return cmd
}
