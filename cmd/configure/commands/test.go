package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/services/oidc"
)

// NewTestCmd creates the test command, which checks that a configured
// provider's endpoints are reachable.
func NewTestCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test an OIDC provider configuration",
		Long:  "Validate a configured provider by probing its discovery and JWKS endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				return fmt.Errorf("--provider is required")
			}

			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			oidcConfig, err := database.NewOIDCConfigRepository(db).GetByProvider(ctx, provider)
			if err != nil {
				return fmt.Errorf("failed to get OIDC config: %w", err)
			}

			fmt.Printf("Testing OIDC configuration for provider: %s\n", provider)
			fmt.Printf("Issuer: %s\n", oidcConfig.Issuer)

			client := &http.Client{Timeout: 10 * time.Second}

			discoveryURL := oidcConfig.Issuer + "/.well-known/openid-configuration"
			fmt.Printf("\nTesting discovery endpoint: %s\n", discoveryURL)
			if err := probeEndpoint(client, discoveryURL); err != nil {
				return fmt.Errorf("discovery endpoint: %w", err)
			}
			fmt.Println("✓ Discovery endpoint is accessible")

			if oidcConfig.JWKSUrl != nil {
				fmt.Printf("\nTesting JWKS endpoint: %s\n", *oidcConfig.JWKSUrl)
				if err := probeEndpoint(client, *oidcConfig.JWKSUrl); err != nil {
					return fmt.Errorf("JWKS endpoint: %w", err)
				}
				fmt.Println("✓ JWKS endpoint is accessible")
			}

			// Show the authorization URL a browser would be sent to, so
			// redirect URI and client ID mistakes surface here instead of
			// during a login attempt.
			authURL := oidc.NewClient(oidcConfig).AuthCodeURL("configure-test")
			fmt.Printf("\nAuthorization URL:\n  %s\n", authURL)

			fmt.Println("\n✓ OIDC configuration test passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider name to test (required)")

	return cmd
}

func probeEndpoint(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("returned status %d", resp.StatusCode)
	}
	return nil
}
