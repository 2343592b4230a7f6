package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/cumpli/internal/store"
)

var prefKeys = []string{"theme", "notifications", "reminder-lead"}

func newPrefsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				p, err := s.svc.Preferences(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "theme:          %s\n", p.Theme)
				fmt.Fprintf(out, "notifications:  %t\n", p.NotificationsEnabled)
				fmt.Fprintf(out, "reminder-lead:  %d min\n", p.ReminderLeadMinutes)
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change a preference (theme, notifications, reminder-lead)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: prefKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := strings.ToLower(args[0]), strings.TrimSpace(args[1])
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				switch key {
				case "theme":
					if err := s.svc.SetTheme(store.Theme(strings.ToLower(value))); err != nil {
						return err
					}
				case "notifications":
					on, err := strconv.ParseBool(value)
					if err != nil {
						return fmt.Errorf("invalid notifications value %q: use true or false", value)
					}
					if err := s.svc.SetNotifications(ctx, on); err != nil {
						return err
					}
				case "reminder-lead":
					n, err := strconv.Atoi(value)
					if err != nil {
						return fmt.Errorf("invalid reminder-lead %q: minutes expected", value)
					}
					if err := s.svc.SetReminderLead(ctx, n); err != nil {
						return err
					}
				default:
					return fmt.Errorf("unknown preference %q: use one of %s", key, strings.Join(prefKeys, ", "))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
				return nil
			})
		},
	}

	raw := &cobra.Command{
		Use:   "raw [key]",
		Short: "Dump the stored settings table, or one stored value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				if len(args) == 1 {
					v, err := s.store.GetSetting(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				}
				settings, err := s.store.GetAllSettings()
				if err != nil {
					return err
				}
				for _, st := range settings {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", st.Key, st.Value)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(set, raw)
	return cmd
}
