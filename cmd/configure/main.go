package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkammes/taskpilot/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "taskpilot-configure",
		Short: "Configuration tool for the TaskPilot API",
		Long:  "CLI tool for configuring OIDC providers, CORS, rate limits, and subscription plans",
	}

	rootCmd.AddCommand(commands.NewOIDCCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewPlanCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
