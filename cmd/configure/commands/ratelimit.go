package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
)

// NewRatelimitCmd creates the ratelimit command group.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "Show or update the database-stored request rate, e.g. 5-S or 100-M",
	}

	cmd.AddCommand(newRatelimitShowCmd())
	cmd.AddCommand(newRatelimitSetCmd())

	return cmd
}

func newRatelimitShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			limit, err := database.NewRatelimitConfigRepository(db).Get(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get rate limit config: %w", err)
			}
			if limit == nil {
				fmt.Println("No rate limit configuration in database. Use 'ratelimit set' to add one.")
				return nil
			}

			fmt.Printf("Rate limit: %s\n", limit.Rate)
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
			}

			db, cleanup, err := openDB()
			if err != nil {
				return err
			}
			defer cleanup()

			err = database.NewRatelimitConfigRepository(db).Set(context.Background(), &models.RatelimitConfig{Rate: rate})
			if err != nil {
				return fmt.Errorf("failed to set rate limit config: %w", err)
			}

			fmt.Println("Rate limit updated. The server picks it up within a minute.")
			return nil
		},
	}

	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}
