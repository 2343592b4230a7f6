package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/store"
)

type prefsMsg struct {
	res query.Result[store.Preferences]
}

// Info is a read-only line shown under the preferences, such as the
// database path.
type Info struct {
	Label string
	Value string
}

type settingsModel struct {
	ctx    context.Context
	svc    *app.Service
	feed   <-chan query.Result[store.Preferences]
	info   []Info
	width  int
	height int

	prefs      store.Preferences
	loaded     bool
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	theme         *store.Theme
	notifications *bool
	leadMinutes   *string
}

func newSettingsModel(ctx context.Context, svc *app.Service, info []Info) settingsModel {
	var (
		theme store.Theme
		on    bool
		lead  string
	)
	return settingsModel{
		ctx:           ctx,
		svc:           svc,
		feed:          svc.WatchPreferences(ctx),
		info:          info,
		prefs:         store.DefaultPreferences(),
		theme:         &theme,
		notifications: &on,
		leadMinutes:   &lead,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) wait() tea.Cmd {
	return waitFor(s.feed, func(r query.Result[store.Preferences]) tea.Msg { return prefsMsg{res: r} })
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(prefsMsg); ok {
		if msg.res.Err == nil {
			s.prefs = msg.res.Value
			s.loaded = true
		}
		return s, s.wait()
	}

	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.theme = s.prefs.Theme
	*s.notifications = s.prefs.NotificationsEnabled
	*s.leadMinutes = strconv.Itoa(s.prefs.ReminderLeadMinutes)

	themeOptions := make([]huh.Option[store.Theme], len(store.Themes))
	for i, t := range store.Themes {
		themeOptions[i] = huh.NewOption(strings.ToUpper(string(t[:1]))+string(t[1:]), t)
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[store.Theme]().Title("Theme").Options(themeOptions...).Value(s.theme),
			huh.NewConfirm().Title("Notifications").Affirmative("On").Negative("Off").Value(s.notifications),
			huh.NewInput().Title("Remind me (minutes before due)").Value(s.leadMinutes).Validate(validateLead),
		).Title("Preferences"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func validateLead(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return errors.New("enter a positive number of minutes")
	}
	if n > store.MaxReminderLeadMinutes {
		return fmt.Errorf("at most %d minutes (one year)", store.MaxReminderLeadMinutes)
	}
	return nil
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		s.formActive = false
		s.form = nil
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.save()
	}
	return s, cmd
}

// save writes only the preferences that changed.
func (s settingsModel) save() tea.Cmd {
	svc, ctx, old := s.svc, s.ctx, s.prefs
	theme, on := *s.theme, *s.notifications
	lead, _ := strconv.Atoi(strings.TrimSpace(*s.leadMinutes))

	return func() tea.Msg {
		var errs []error
		if theme != old.Theme {
			errs = append(errs, svc.SetTheme(theme))
		}
		if on != old.NotificationsEnabled {
			errs = append(errs, svc.SetNotifications(ctx, on))
		}
		if lead != old.ReminderLeadMinutes {
			errs = append(errs, svc.SetReminderLead(ctx, lead))
		}
		if err := errors.Join(errs...); err != nil {
			return errStatus("Saving settings failed: %v", err)
		}
		return okStatus("Settings saved")
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	label := lipgloss.NewStyle().Width(26)
	notifications := "off"
	if s.prefs.NotificationsEnabled {
		notifications = "on"
	}
	rows := []string{
		title,
		"",
		fmt.Sprintf("  %s %s", label.Render("Theme"), highlightStyle.Render(string(s.prefs.Theme))),
		fmt.Sprintf("  %s %s", label.Render("Notifications"), highlightStyle.Render(notifications)),
		fmt.Sprintf("  %s %s", label.Render("Reminder lead"), highlightStyle.Render(fmt.Sprintf("%d min", s.prefs.ReminderLeadMinutes))),
	}
	if len(s.info) > 0 {
		rows = append(rows, "")
		for _, in := range s.info {
			rows = append(rows, fmt.Sprintf("  %s %s", label.Render(in.Label), mutedStyle.Render(in.Value)))
		}
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit preferences"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
