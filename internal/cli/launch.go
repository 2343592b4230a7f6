package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/cumpli/internal/config"
	"github.com/sadopc/cumpli/internal/logging"
	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/tui"
)

func runTUI(cmd *cobra.Command, g *globalFlags) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events := notify.NewChan(64)
	s, err := openSession(ctx, g, events)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	report, err := s.svc.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover state: %w", err)
	}
	logging.Info("cli", "startup: db=%s cleared=%d rearmed=%d", s.cfg.DBPath, report.ClearedInProgress, report.Rearmed)
	if report.Interrupted != "" {
		events.Post(notify.Notification{
			ID:     "focus_interrupted",
			Kind:   notify.Alert,
			Title:  "Focus interrupted",
			Body:   fmt.Sprintf("%q was being timed when cumpli last exited", report.Interrupted),
			Silent: true,
			At:     time.Now(),
		})
	}

	model := tui.NewApp(ctx, s.svc, events.Events(), tui.Options{
		Bell: s.cfg.Notifications.Bell,
		Info: []tui.Info{
			{Label: "Database", Value: s.cfg.DBPath},
			{Label: "Config", Value: configPathOrDefault(g)},
			{Label: "Log file", Value: s.cfg.Log.File},
		},
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return err
	}
	if n := events.Dropped(); n > 0 {
		logging.Debug("cli", "dropped %d notifications", n)
	}
	return nil
}

func configPathOrDefault(g *globalFlags) string {
	if g.configPath != "" {
		return g.configPath
	}
	return config.DefaultPath()
}
