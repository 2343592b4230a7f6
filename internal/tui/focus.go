package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/store"
)

type todayFocusMsg struct {
	res query.Result[time.Duration]
}

type sessionsMsg struct {
	feed <-chan query.Result[[]store.FocusSession]
	res  query.Result[[]store.FocusSession]
}

// focusStoppedMsg tells the view a session ended so it stops offering resume.
type focusStoppedMsg struct {
	summary focus.Summary
}

// focusModel shows the running session. When idle it remembers the last
// activity so space resumes it.
type focusModel struct {
	ctx    context.Context
	svc    *app.Service
	today  <-chan query.Result[time.Duration]
	width  int
	height int

	snap    focus.Snapshot
	running bool

	lastID    int64
	lastTitle string

	todayTotal   time.Duration
	sessions     []store.FocusSession
	sessionsFeed <-chan query.Result[[]store.FocusSession]
	stopSessions context.CancelFunc
}

func newFocusModel(ctx context.Context, svc *app.Service) focusModel {
	st := svc.Store()
	return focusModel{
		ctx:   ctx,
		svc:   svc,
		today: query.Watch(ctx, st, st.GetTodayFocus),
	}
}

func (f *focusModel) setSize(w, h int) {
	f.width = w
	f.height = h
}

func (f focusModel) init() tea.Cmd {
	return f.waitToday()
}

func (f focusModel) waitToday() tea.Cmd {
	return waitFor(f.today, func(r query.Result[time.Duration]) tea.Msg { return todayFocusMsg{res: r} })
}

func (f focusModel) waitSessions() tea.Cmd {
	feed := f.sessionsFeed
	return waitFor(feed, func(r query.Result[[]store.FocusSession]) tea.Msg {
		return sessionsMsg{feed: feed, res: r}
	})
}

// follow switches the session history to activity id.
func (f *focusModel) follow(id int64, title string) tea.Cmd {
	if id == f.lastID && f.sessionsFeed != nil {
		return nil
	}
	f.lastID, f.lastTitle = id, title
	f.sessions = nil
	if f.stopSessions != nil {
		f.stopSessions()
		f.stopSessions = nil
		f.sessionsFeed = nil
	}
	if id == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(f.ctx)
	st := f.svc.Store()
	f.stopSessions = cancel
	f.sessionsFeed = query.Watch(ctx, st, func(ctx context.Context) ([]store.FocusSession, error) {
		return st.ListFocusSessions(ctx, id)
	})
	return f.waitSessions()
}

// sync reads the timer; it runs on every tick.
func (f focusModel) sync() (focusModel, tea.Cmd) {
	f.snap, f.running = f.svc.CurrentFocus()
	if f.running {
		return f, f.follow(f.snap.ActivityID, f.snap.Title)
	}
	return f, nil
}

func (f focusModel) update(msg tea.Msg) (focusModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return f.sync()

	case todayFocusMsg:
		if msg.res.Err == nil {
			f.todayTotal = msg.res.Value
		}
		return f, f.waitToday()

	case sessionsMsg:
		if msg.feed != f.sessionsFeed {
			return f, nil
		}
		if msg.res.Err == nil {
			f.sessions = msg.res.Value
		}
		return f, f.waitSessions()

	case focusStoppedMsg:
		f.running = false
		return f, f.follow(0, "")

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Pause):
			return f, f.toggle()
		case key.Matches(msg, keys.Stop):
			return f, f.stop()
		case key.Matches(msg, keys.Reset):
			return f, f.reset()
		}
	}
	return f, nil
}

func (f focusModel) toggle() tea.Cmd {
	svc, ctx := f.svc, f.ctx
	if f.running {
		return func() tea.Msg {
			sum, err := svc.PauseFocus(ctx)
			if err != nil && !errors.Is(err, focus.ErrNoSession) {
				return errStatus("Pause failed: %v", err)
			}
			return okStatus("Paused after %s", focus.FormatCompact(sum.Session))
		}
	}
	if f.lastID == 0 {
		return func() tea.Msg { return errStatus("Pick an activity and press f to start focusing") }
	}
	id, title := f.lastID, f.lastTitle
	return func() tea.Msg {
		if _, err := svc.ToggleFocus(ctx, id); err != nil {
			return errStatus("Resume failed: %v", err)
		}
		return okStatus("Resumed %q", truncate(title, 30))
	}
}

func (f focusModel) stop() tea.Cmd {
	if !f.running {
		return nil
	}
	svc, ctx := f.svc, f.ctx
	return func() tea.Msg {
		sum, err := svc.StopFocus(ctx)
		if err != nil && !errors.Is(err, focus.ErrNoSession) {
			return errStatus("Stop failed: %v", err)
		}
		return focusStoppedMsg{summary: sum}
	}
}

func (f focusModel) reset() tea.Cmd {
	if f.lastID == 0 {
		return nil
	}
	svc, ctx, id, title := f.svc, f.ctx, f.lastID, f.lastTitle
	return func() tea.Msg {
		err := svc.ResetFocusTime(ctx, id)
		switch {
		case errors.Is(err, focus.ErrSessionActive):
			return errStatus("Pause before resetting the time")
		case err != nil:
			return errStatus("Reset failed: %v", err)
		}
		return okStatus("Reset focus time for %q", truncate(title, 30))
	}
}

func (f focusModel) view() string {
	w := f.width - 4
	left := f.renderClock(w/2 - 1)
	right := f.renderHistory(w - w/2 - 1)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (f focusModel) renderClock(w int) string {
	if f.running {
		clock := clockRunningStyle.Width(w - 6).Render(focus.FormatClock(f.snap.Elapsed))
		content := lipgloss.JoinVertical(lipgloss.Center,
			successStyle.Render("●  FOCUSING"),
			"",
			clock,
			"",
			highlightStyle.Render(truncate(f.snap.Title, w-8)),
			mutedStyle.Render("this session "+focus.FormatCompact(f.snap.Elapsed-f.snap.Base)),
			"",
			mutedStyle.Render("space: pause  s: stop"),
		)
		return activePanelStyle.Width(w).Render(content)
	}

	hint := "Select an activity and press f to focus"
	title := ""
	if f.lastID != 0 {
		hint = "space: resume  s: stop  R: reset time"
		title = highlightStyle.Render(truncate(f.lastTitle, w-8))
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		mutedStyle.Render("■  IDLE"),
		"",
		clockIdleStyle.Width(w-6).Render(focus.FormatClock(0)),
		"",
		title,
		"",
		mutedStyle.Render(hint),
	)
	return panelStyle.Width(w).Render(content)
}

func (f focusModel) renderHistory(w int) string {
	rows := []string{
		titleStyle.Render("Today"),
		highlightStyle.Render(focus.FormatCompact(f.todayTotal)) + mutedStyle.Render(" focused"),
		"",
	}
	if f.lastID == 0 {
		rows = append(rows, mutedStyle.Render("No session selected"))
		return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
	}

	rows = append(rows, subtitleStyle.Render("Sessions"))
	if len(f.sessions) == 0 {
		rows = append(rows, mutedStyle.Render("none recorded yet"))
	}
	limit := max(1, f.height-14)
	for i, s := range f.sessions {
		if i >= limit {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("… %d more", len(f.sessions)-i)))
			break
		}
		rows = append(rows, fmt.Sprintf("%s  %s",
			mutedStyle.Render(s.StartedAt.Local().Format("Jan 02 15:04")),
			focus.FormatCompact(s.Duration),
		))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
