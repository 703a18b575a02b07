package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tripdesk/internal/app"
	"tripdesk/internal/domain"
	"tripdesk/internal/service"
)

// ReconcileCmd returns the reconcile command.
func ReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass now",
		Long: `Brings every non-cancelled trip's status in line with its date:
past trips become completed, today's and future trips become active.

Fails if another instance is already running a pass.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := connect(ctx, true)
			if err != nil {
				return err
			}
			defer b.Close()

			services, err := app.NewServices(b.db, b.redis, nil, b.cfg)
			if err != nil {
				return err
			}
			defer services.Notifications.Wait()

			result, err := services.Reconciler.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			printReconcileResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func printReconcileResult(w io.Writer, result service.ReconcileResult) {
	fmt.Fprintf(w, "Reconciled %s: checked %d trip(s)\n", result.Today.Format(time.DateOnly), result.Checked)
	for _, ch := range result.Updated {
		fmt.Fprintf(w, "  %s  %s → %s\n", ch.TripID, statusColor(ch.From), statusColor(ch.To))
	}

	updated := color.New(color.FgGreen).Sprintf("%d updated", len(result.Updated))
	skipped := fmt.Sprintf("%d skipped", result.Skipped)
	failed := fmt.Sprintf("%d failed", result.Failed)
	if result.Failed > 0 {
		failed = color.New(color.FgRed).Sprint(failed)
	}
	fmt.Fprintf(w, "%s, %s, %s\n", updated, skipped, failed)
}

func statusColor(s domain.TripStatus) string {
	switch s {
	case domain.TripStatusCompleted:
		return color.New(color.FgHiGreen).Sprint(s)
	case domain.TripStatusCancelled:
		return color.New(color.FgRed).Sprint(s)
	default:
		return color.New(color.FgHiBlue).Sprint(s)
	}
}
