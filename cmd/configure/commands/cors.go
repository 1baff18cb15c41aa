package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
)

// NewCorsCmd creates the cors command group.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "Show or update the database-stored CORS origin allowlist",
	}

	cmd.AddCommand(newCorsShowCmd())
	cmd.AddCommand(newCorsSetCmd())

	return cmd
}

func newCorsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			cors, err := database.NewCorsConfigRepository(db).Get(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get CORS config: %w", err)
			}
			if cors == nil {
				fmt.Println("No CORS configuration in database. Use 'cors set' to add one.")
				return nil
			}

			fmt.Println("CORS configuration:")
			fmt.Printf("  Allowed origins: %s\n", cors.AllowedOrigins)
			fmt.Printf("  Allow credentials: %v\n", cors.AllowCredentials)
			fmt.Printf("  Max-Age: %d\n", cors.MaxAge)
			return nil
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the CORS origin allowlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			origins = strings.TrimSpace(origins)
			if origins == "" {
				return fmt.Errorf("--origins is required (comma-separated list)")
			}

			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			err = database.NewCorsConfigRepository(db).Set(context.Background(), &models.CorsConfig{
				AllowedOrigins:   origins,
				AllowCredentials: allowCreds,
				MaxAge:           maxAge,
			})
			if err != nil {
				return fmt.Errorf("failed to set CORS config: %w", err)
			}

			fmt.Println("CORS configuration updated. The server picks it up within a minute.")
			return nil
		},
	}

	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}
