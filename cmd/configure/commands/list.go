package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkammes/taskpilot/internal/database"
)

// NewListCmd creates the list command for OIDC providers.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			configs, err := database.NewOIDCConfigRepository(db).GetAll(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list OIDC configs: %w", err)
			}
			if len(configs) == 0 {
				fmt.Println("No OIDC providers configured")
				return nil
			}

			fmt.Println("Configured OIDC providers:")
			for _, cfg := range configs {
				fmt.Printf("  - Provider: %s\n", cfg.Provider)
				fmt.Printf("    Issuer: %s\n", cfg.Issuer)
				fmt.Printf("    Client ID: %s\n", cfg.ClientID)
				fmt.Printf("    Redirect URI: %s\n", cfg.RedirectURI)
				if cfg.JWKSUrl != nil {
					fmt.Printf("    JWKS URL: %s\n", *cfg.JWKSUrl)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
