package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mkammes/taskpilot/internal/database"
	"github.com/mkammes/taskpilot/internal/models"
)

// NewPlanCmd creates the plan command group. Subscriptions have no
// billing integration; plans are administered here.
func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage user subscription plans",
		Long:  "Show, set, or cancel a user's subscription plan",
	}

	cmd.AddCommand(newPlanShowCmd())
	cmd.AddCommand(newPlanSetCmd())
	cmd.AddCommand(newPlanCancelCmd())

	return cmd
}

func newPlanShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <email>",
		Short: "Show a user's current plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			userRepo, subRepo, cleanup, err := planDeps()
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := userRepo.GetByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to find user %s: %w", args[0], err)
			}

			sub, err := subRepo.GetByUserID(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("failed to load subscription: %w", err)
			}
			if sub == nil {
				fmt.Printf("User %s is on the free plan (no subscription record)\n", user.Email)
				return nil
			}

			fmt.Printf("User: %s\n", user.Email)
			fmt.Printf("Plan: %s\n", sub.PlanName)
			fmt.Printf("Status: %s\n", sub.Status)
			fmt.Printf("Started: %s\n", sub.StartedAt.Format(time.RFC3339))
			if sub.EndsAt != nil {
				fmt.Printf("Ends: %s\n", sub.EndsAt.Format(time.RFC3339))
			}
			if sub.CancelledAt != nil {
				fmt.Printf("Cancelled: %s\n", sub.CancelledAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newPlanSetCmd() *cobra.Command {
	var durationDays int

	cmd := &cobra.Command{
		Use:   "set <email> <plan>",
		Short: "Set a user's plan (free, pro, enterprise)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := models.SubscriptionPlan(args[1])
			switch plan {
			case models.SubscriptionPlanFree, models.SubscriptionPlanPro, models.SubscriptionPlanEnterprise:
			default:
				return fmt.Errorf("invalid plan %q: must be free, pro, or enterprise", args[1])
			}

			ctx := context.Background()
			userRepo, subRepo, cleanup, err := planDeps()
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := userRepo.GetByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to find user %s: %w", args[0], err)
			}

			now := time.Now().UTC()
			sub := &models.Subscription{
				ID:        uuid.New(),
				UserID:    user.ID,
				PlanName:  plan,
				Status:    models.SubscriptionStatusActive,
				StartedAt: now,
				Metadata:  models.Metadata{"source": "configure_cli"},
			}
			if durationDays > 0 {
				ends := now.AddDate(0, 0, durationDays)
				sub.EndsAt = &ends
			}

			if err := subRepo.Upsert(ctx, sub); err != nil {
				return fmt.Errorf("failed to save subscription: %w", err)
			}

			fmt.Printf("Set %s to plan %s\n", user.Email, plan)
			return nil
		},
	}

	cmd.Flags().IntVar(&durationDays, "days", 0, "Plan duration in days (0 = open-ended)")
	return cmd
}

func newPlanCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <email>",
		Short: "Cancel a user's subscription, reverting them to free",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			userRepo, subRepo, cleanup, err := planDeps()
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := userRepo.GetByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to find user %s: %w", args[0], err)
			}

			if err := subRepo.Cancel(ctx, user.ID, time.Now().UTC()); err != nil {
				return fmt.Errorf("failed to cancel subscription: %w", err)
			}

			fmt.Printf("Cancelled subscription for %s\n", user.Email)
			return nil
		},
	}
}

// planDeps wires up the repositories shared by the plan subcommands.
func planDeps() (*database.UserRepository, *database.SubscriptionRepository, func(), error) {
	db, cleanup, err := openDB()
	if err != nil {
		return nil, nil, nil, err
	}
	return database.NewUserRepository(db), database.NewSubscriptionRepository(db), cleanup, nil
}
