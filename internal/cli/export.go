package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/cumpli/internal/export"
)

func newExportCmd(g *globalFlags) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every activity as CSV or JSON",
		Long: `Export every activity, pending and completed.

The format follows --format, or the extension of --out. Use --out - to
write to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			}
			if format == "" {
				format = "csv"
			}
			if format != "csv" && format != "json" {
				return fmt.Errorf("invalid format %q: use csv or json", format)
			}
			if out == "" {
				out = fmt.Sprintf("cumpli-export-%s.%s", time.Now().Format("2006-01-02"), format)
			}

			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				activities, err := s.svc.Activities(ctx)
				if err != nil {
					return err
				}
				if out == "-" {
					if format == "json" {
						return export.WriteJSON(cmd.OutOrStdout(), activities)
					}
					return export.WriteCSV(cmd.OutOrStdout(), activities)
				}

				if format == "json" {
					err = export.ToJSON(activities, out)
				} else {
					err = export.ToCSV(activities, out)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d activities to %s\n", len(activities), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default cumpli-export-<date>.<format>)")
	return cmd
}
