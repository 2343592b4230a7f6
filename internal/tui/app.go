package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/export"
	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/store"
)

// Options tune the root model.
type Options struct {
	// Bell rings the terminal bell when a reminder fires.
	Bell bool
	// ExportDir is where exports are written. Defaults to the home directory.
	ExportDir string
	// Info lines are shown read-only on the settings view.
	Info []Info
}

// App is the root Bubble Tea model.
type App struct {
	ctx    context.Context
	svc    *app.Service
	events <-chan notify.Event
	opts   Options
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	activities activitiesModel
	completed  completedModel
	stats      statsModel
	focus      focusModel
	settings   settingsModel

	pendingFeed <-chan query.Result[int]
	pending     int

	help      help.Model
	status    string
	statusErr bool
	// ongoing is the text of the focus notification, empty when idle.
	ongoing string
}

// NewApp builds the root model. events carries the notifications posted by
// the service; ctx bounds every live query the views start.
func NewApp(ctx context.Context, svc *app.Service, events <-chan notify.Event, opts Options) App {
	h := help.New()
	h.ShowAll = false

	return App{
		ctx:         ctx,
		svc:         svc,
		events:      events,
		opts:        opts,
		activeView:  viewActivities,
		activities:  newActivitiesModel(ctx, svc),
		completed:   newCompletedModel(ctx, svc),
		stats:       newStatsModel(ctx, svc),
		focus:       newFocusModel(ctx, svc),
		settings:    newSettingsModel(ctx, svc, opts.Info),
		pendingFeed: svc.WatchPendingCount(ctx),
		help:        h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.activities.init(),
		a.completed.wait(),
		a.stats.init(),
		a.focus.init(),
		a.settings.wait(),
		a.waitPending(),
		a.waitNotify(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) waitPending() tea.Cmd {
	return waitFor(a.pendingFeed, func(r query.Result[int]) tea.Msg { return pendingCountMsg{res: r} })
}

func (a App) waitNotify() tea.Cmd {
	return waitFor(a.events, func(e notify.Event) tea.Msg { return notifyMsg{event: e} })
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.activities.setSize(a.width, contentHeight)
		a.completed.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.focus.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A view capturing input (form, search, confirmation) sees keys first.
		if a.isCapturing() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewActivities
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewCompleted
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewStats
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewFocus
			return a.syncFocus()
		case key.Matches(msg, keys.Tab5):
			a.activeView = viewSettings
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			if a.activeView == viewFocus {
				return a.syncFocus()
			}
			return a, nil
		}

	case tickMsg:
		a.focus, cmd = a.focus.update(msg)
		return a, tea.Batch(tickCmd(), cmd)

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		a.exportPicking = false
		return a, nil

	case notifyMsg:
		return a.handleNotify(msg.event)

	case pendingCountMsg:
		if msg.res.Err == nil {
			a.pending = msg.res.Value
		}
		return a, a.waitPending()

	// Live query results go to their owner whatever view is showing.
	case listStateMsg, categoryCountsMsg:
		a.activities, cmd = a.activities.update(msg)
		return a, cmd
	case completedDataMsg:
		a.completed, cmd = a.completed.update(msg)
		return a, cmd
	case statsDataMsg, dailyFocusMsg:
		a.stats, cmd = a.stats.update(msg)
		return a, cmd
	case todayFocusMsg, sessionsMsg:
		a.focus, cmd = a.focus.update(msg)
		return a, cmd
	case focusStoppedMsg:
		a.focus, cmd = a.focus.update(msg)
		a.status = "Stopped after " + focus.FormatCompact(msg.summary.Session)
		a.statusErr = false
		return a, cmd
	case prefsMsg:
		a.settings, cmd = a.settings.update(msg)
		if msg.res.Err != nil {
			return a, cmd
		}
		applyTheme(msg.res.Value.Theme)
		return a, tea.Batch(cmd, a.syncPrefs(msg.res.Value))
	}

	return a.updateActiveView(msg)
}

func (a App) syncFocus() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.focus, cmd = a.focus.sync()
	return a, cmd
}

// handleNotify shows alerts in the status bar and keeps the ongoing focus
// notification in the footer.
func (a App) handleNotify(e notify.Event) (tea.Model, tea.Cmd) {
	next := a.waitNotify()
	switch {
	case e.Dismissed:
		if e.ID == focus.NotificationID {
			a.ongoing = ""
		}
	case e.Kind == notify.Ongoing:
		a.ongoing = e.Title
	case e.Kind == notify.Alert:
		a.status = fmt.Sprintf("%s: %s", e.Title, e.Body)
		a.statusErr = false
		if a.opts.Bell && !e.Silent {
			return a, tea.Batch(next, ringBell)
		}
	}
	return a, next
}

// syncPrefs applies preferences that may have been changed by another
// cumpli process, such as notifications turned off from the CLI.
func (a App) syncPrefs(p store.Preferences) tea.Cmd {
	svc, ctx := a.svc, a.ctx
	return func() tea.Msg {
		if err := svc.ApplyPreferences(ctx, p); err != nil {
			return errStatus("Applying preferences failed: %v", err)
		}
		return nil
	}
}

func ringBell() tea.Msg {
	fmt.Fprint(os.Stderr, "\a")
	return nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewActivities:
		a.activities, cmd = a.activities.update(msg)
	case viewCompleted:
		a.completed, cmd = a.completed.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewFocus:
		a.focus, cmd = a.focus.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isCapturing() bool {
	switch a.activeView {
	case viewActivities:
		return a.activities.capturing()
	case viewCompleted:
		return a.completed.capturing()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewActivities:
		content = a.activities.view()
	case viewCompleted:
		content = a.completed.view()
	case viewStats:
		content = a.stats.view()
	case viewFocus:
		content = a.focus.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("cumpli")
	title += mutedStyle.Render(fmt.Sprintf(" %d pending", a.pending))
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = statusBarStyle.Render(" " + a.status)
		}
	}

	focusInfo := ""
	if a.ongoing != "" {
		focusInfo = successStyle.Render(" ● " + a.ongoing)
	}

	left := footerStyle.Render(helpView)
	right := focusInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export Activities"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	svc, ctx, dir := a.svc, a.ctx, a.opts.ExportDir
	return func() tea.Msg {
		activities, err := svc.Activities(ctx)
		if err != nil {
			return errStatus("Export error: %v", err)
		}

		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("cumpli-export-%s.csv", dateStr))
			if err := export.ToCSV(activities, path); err != nil {
				return errStatus("CSV error: %v", err)
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("cumpli-export-%s.json", dateStr))
			if err := export.ToJSON(activities, path); err != nil {
				return errStatus("JSON error: %v", err)
			}
		}
		return exportDoneMsg{path: path}
	}
}
