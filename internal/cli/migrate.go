package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tripdesk/internal/app"
)

// MigrateCmd returns the migrate command.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the trip and audit tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := connect(ctx, false)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := app.MigrateDatabase(ctx, b.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("✓ schema up to date"))
			return nil
		},
	}
}
