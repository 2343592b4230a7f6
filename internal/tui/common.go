package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/query"
)

// viewState represents the currently active view.
type viewState int

const (
	viewActivities viewState = iota
	viewCompleted
	viewStats
	viewFocus
	viewSettings
)

var viewNames = []string{"Activities", "Completed", "Stats", "Focus", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type notifyMsg struct {
	event notify.Event
}

type pendingCountMsg struct {
	res query.Result[int]
}

// --- Helpers ---

func errStatus(format string, args ...any) tea.Msg {
	return statusMsg{text: fmt.Sprintf(format, args...), isError: true}
}

func okStatus(format string, args ...any) tea.Msg {
	return statusMsg{text: fmt.Sprintf(format, args...)}
}

// waitFor returns a command that delivers the next value from ch as a
// message, or nothing once ch is closed. Views re-issue it after every
// message to keep listening.
func waitFor[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

// formatDue renders a due time relative to now: "today 14:00",
// "tomorrow 08:00", "Mon 02 Jan 08:00".
func formatDue(due, now time.Time) string {
	due = due.Local()
	now = now.Local()
	y1, m1, d1 := due.Date()
	y2, m2, d2 := now.Date()
	// Calendar days are counted in UTC so DST shifts do not skew them.
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	day := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)

	switch day.Sub(today) / (24 * time.Hour) {
	case 0:
		return "today " + due.Format("15:04")
	case 1:
		return "tomorrow " + due.Format("15:04")
	case -1:
		return "yesterday " + due.Format("15:04")
	}
	if y1 != y2 {
		return due.Format("02 Jan 2006 15:04")
	}
	return due.Format("Mon 02 Jan 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
