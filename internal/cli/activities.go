package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/store"
)

const dueLayout = "2006-01-02 15:04"

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, g, nil)
	if err != nil {
		return err
	}
	err = fn(ctx, s)
	if cerr := s.Close(context.Background()); err == nil {
		err = cerr
	}
	return err
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid activity id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newAddCmd(g *globalFlags) *cobra.Command {
	var (
		desc, due, priority, category string
		remind                        bool
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add an activity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := app.NewDraft(time.Now())
			d.Title = strings.Join(args, " ")
			d.Description = desc
			d.HasReminder = remind
			if due != "" {
				t, err := time.ParseInLocation(dueLayout, due, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --due %q: use %q", due, "YYYY-MM-DD HH:MM")
				}
				d.DueAt = t
			}
			if priority != "" {
				p, ok := store.ParsePriority(priority)
				if !ok {
					return fmt.Errorf("invalid --priority %q: use urgent, high, medium or low", priority)
				}
				d.Priority = p
			}
			if category != "" {
				c := store.Category(strings.ToLower(category))
				if !c.Valid() {
					return fmt.Errorf("invalid --category %q: use school, home, work or other", category)
				}
				d.Category = c
			}

			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				a, err := s.svc.Create(ctx, d)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %q due %s\n", a.ID, a.Title, a.DueAt.Local().Format(dueLayout))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")
	cmd.Flags().StringVar(&due, "due", "", "Due time as YYYY-MM-DD HH:MM (default tomorrow 08:00)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "urgent, high, medium or low")
	cmd.Flags().StringVarP(&category, "category", "c", "", "school, home, work or other")
	cmd.Flags().BoolVarP(&remind, "remind", "r", false, "Remind before the due time")
	return cmd
}

func newListCmd(g *globalFlags) *cobra.Command {
	var (
		completed, reminders bool
		category, search     string
		sortBy               string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List pending activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := query.DefaultFilter()
			f.Search = search
			f.RemindersOnly = reminders
			switch sortBy {
			case "", "priority":
			case "date", "due":
				f.Sort = store.SortByDate
			default:
				return fmt.Errorf("invalid --sort %q: use priority or date", sortBy)
			}
			if category != "" {
				c := store.Category(strings.ToLower(category))
				if !c.Valid() {
					return fmt.Errorf("invalid --category %q", category)
				}
				f.Category = &c
			}

			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				var (
					items []store.Activity
					err   error
				)
				if completed {
					items, err = s.store.ListCompleted(ctx)
				} else {
					items, err = s.store.ListPending(ctx, query.Resolve(f))
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch st := query.StateFor(f, items, nil).(type) {
				case query.EmptySearch:
					fmt.Fprintf(out, "No activities match %q.\n", st.Query)
				case query.Empty:
					fmt.Fprintln(out, "No activities.")
				default:
					fmt.Fprintln(out, renderTable(items, time.Now()))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "List completed activities instead")
	cmd.Flags().BoolVarP(&reminders, "reminders", "r", false, "Only activities with a reminder (sorted by due time)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only this category")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Match title or description")
	cmd.Flags().StringVar(&sortBy, "sort", "priority", "priority or date")
	return cmd
}

func renderTable(items []store.Activity, now time.Time) string {
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		flags := ""
		if a.HasReminder {
			flags += "⏰"
		}
		if a.InProgress {
			flags += "▶"
		}
		due := a.DueAt.Local().Format(dueLayout)
		if a.Overdue(now) {
			due += " !"
		}
		focused := ""
		if a.Accumulated > 0 {
			focused = focus.FormatCompact(a.Accumulated)
		}
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10), a.Title, a.Priority.String(), a.Category.Label(), due, focused, flags,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Title", "Priority", "Category", "Due", "Focus", "").
		Rows(rows...).
		Render()
}

func newDoneCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>...",
		Short: "Mark activities completed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setCompleted(cmd, g, args, true)
		},
	}
}

func newReopenCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <id>...",
		Short: "Mark completed activities pending again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setCompleted(cmd, g, args, false)
		},
	}
}

func setCompleted(cmd *cobra.Command, g *globalFlags, args []string, completed bool) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	verb := "Completed"
	if !completed {
		verb = "Reopened"
	}
	return withSession(cmd, g, func(ctx context.Context, s *session) error {
		var errs []error
		for _, id := range ids {
			a, err := s.svc.SetCompleted(ctx, id, completed)
			if err != nil {
				errs = append(errs, fmt.Errorf("#%d: %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %q\n", verb, a.ID, a.Title)
		}
		return errors.Join(errs...)
	})
}

func newRmCmd(g *globalFlags) *cobra.Command {
	var allCompleted bool
	cmd := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete activities",
		Args: func(cmd *cobra.Command, args []string) error {
			if allCompleted {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				out := cmd.OutOrStdout()
				if allCompleted {
					n, err := s.svc.DeleteCompleted(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Deleted %d completed activities\n", n)
					return nil
				}
				var errs []error
				for _, id := range ids {
					if err := s.svc.Delete(ctx, id); err != nil {
						errs = append(errs, fmt.Errorf("#%d: %w", id, err))
						continue
					}
					fmt.Fprintf(out, "Deleted #%d\n", id)
				}
				return errors.Join(errs...)
			})
		},
	}
	cmd.Flags().BoolVar(&allCompleted, "completed", false, "Delete every completed activity")
	return cmd
}

// lineSink prints the ongoing focus notification on one refreshed line.
type lineSink struct {
	out io.Writer
}

func (l lineSink) Post(n notify.Notification) {
	if n.Kind == notify.Ongoing {
		fmt.Fprintf(l.out, "\r%s ", n.Title)
		return
	}
	fmt.Fprintf(l.out, "\n%s: %s\n", n.Title, n.Body)
}

func (l lineSink) Dismiss(string) {
	fmt.Fprintln(l.out)
}

func newFocusCmd(g *globalFlags) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "focus <id>",
		Short: "Time a focus session in the foreground until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]
			out := cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, g, lineSink{out: out})
			if err != nil {
				return err
			}
			defer s.Close(context.Background())

			if reset {
				if err := s.svc.ResetFocusTime(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(out, "Reset focus time for #%d\n", id)
				return nil
			}

			if _, err := s.svc.ToggleFocus(ctx, id); err != nil {
				if errors.Is(err, focus.ErrSessionActive) {
					return fmt.Errorf("another activity is being timed: %w", err)
				}
				return err
			}
			<-ctx.Done()

			sum, err := s.svc.StopFocus(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Focused %s on %q (total %s)\n",
				focus.FormatCompact(sum.Session), sum.Title, focus.FormatClock(sum.Total))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Discard the accumulated focus time instead")
	return cmd
}
