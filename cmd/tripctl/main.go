package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tripdesk/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tripctl",
		Short: "tripctl - admin tool for the trip desk",
		Long: `tripctl runs maintenance tasks against the trip desk database:
schema migration, on-demand reconciliation, settlement exports and
bearer tokens for API access.

Configuration is read from the same environment variables (and optional
TRIPDESK_CONFIG file) as the server.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.ReconcileCmd())
	rootCmd.AddCommand(cli.ExportCmd())
	rootCmd.AddCommand(cli.TokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
