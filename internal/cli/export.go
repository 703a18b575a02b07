package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tripdesk/internal/clock"
	"tripdesk/internal/export"
	"tripdesk/internal/repository"
	"tripdesk/internal/repository/postgres"
)

// ExportCmd returns the export command.
func ExportCmd() *cobra.Command {
	var from, to, format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a settlement statement for a date range",
		Long: `Writes a settlement statement (xlsx or pdf) covering trips dated
between --from and --to, inclusive.

Examples:
  tripctl export --from 2024-06-01 --to 2024-06-30
  tripctl export --from 2024-06-01 --format pdf --out june.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			filter, err := dateRange(from, to)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := connect(ctx, false)
			if err != nil {
				return err
			}
			defer b.Close()

			trips, err := postgres.NewTripRepository(b.db).GetMany(ctx, filter)
			if err != nil {
				return err
			}
			stmt := export.Statement{
				From:        filter.DateFrom,
				To:          filter.DateTo,
				GeneratedAt: time.Now(),
				Trips:       trips,
			}
			data, err := export.Render(f, stmt)
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("settlement_%s.%s", stmt.Period(), f)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d trip(s) to %s\n", len(trips), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first trip date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last trip date, YYYY-MM-DD")
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default settlement_<from>_<to>.<format>)")
	return cmd
}

func dateRange(from, to string) (repository.TripFilter, error) {
	var f repository.TripFilter
	if from != "" {
		d, err := clock.ParseDate(from)
		if err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
		f.DateFrom = d
	}
	if to != "" {
		d, err := clock.ParseDate(to)
		if err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
		f.DateTo = d
	}
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateTo.Before(f.DateFrom) {
		return f, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return f, nil
}
