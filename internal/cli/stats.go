package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/cumpli/internal/focus"
)

func newStatsCmd(g *globalFlags) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show progress, category split and focus time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("invalid --days %d: must be positive", days)
			}
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				sum, err := s.svc.Stats(ctx)
				if err != nil {
					return err
				}
				today, err := s.store.GetTodayFocus(ctx)
				if err != nil {
					return err
				}
				daily, err := s.svc.DailyFocus(ctx, days)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Pending:    %d\n", sum.Pending)
				fmt.Fprintf(out, "Completed:  %d\n", sum.Completed)
				fmt.Fprintf(out, "Progress:   %.0f%%\n", sum.Progress*100)
				fmt.Fprintf(out, "Focus:      %s total, %s today\n", focus.FormatCompact(sum.FocusTime), focus.FormatCompact(today))

				if len(sum.ByCategory) > 0 {
					fmt.Fprintln(out, "\nBy category:")
					for _, c := range sum.ByCategory {
						fmt.Fprintf(out, "  %-8s %3d  %5.1f%%\n", c.Category.Label(), c.Count, c.Fraction*100)
					}
				}
				if len(daily) > 0 {
					fmt.Fprintf(out, "\nFocus, last %d days:\n", days)
					for _, d := range daily {
						fmt.Fprintf(out, "  %s  %-8s %d sessions\n", d.Date, focus.FormatCompact(d.Total), d.Sessions)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Days of focus history to show")
	return cmd
}
