package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/store"
)

type completedDataMsg struct {
	res query.Result[[]store.Activity]
}

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmOne
	confirmAll
)

type completedModel struct {
	ctx    context.Context
	svc    *app.Service
	feed   <-chan query.Result[[]store.Activity]
	width  int
	height int

	loaded  bool
	err     error
	items   []store.Activity
	cursor  int
	confirm confirmKind
}

func newCompletedModel(ctx context.Context, svc *app.Service) completedModel {
	return completedModel{
		ctx:  ctx,
		svc:  svc,
		feed: svc.WatchCompleted(ctx),
	}
}

func (c *completedModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

func (c completedModel) wait() tea.Cmd {
	return waitFor(c.feed, func(r query.Result[[]store.Activity]) tea.Msg { return completedDataMsg{res: r} })
}

func (c completedModel) capturing() bool {
	return c.confirm != confirmNone
}

func (c completedModel) update(msg tea.Msg) (completedModel, tea.Cmd) {
	switch msg := msg.(type) {
	case completedDataMsg:
		c.loaded = true
		c.err = msg.res.Err
		if msg.res.Err == nil {
			c.items = msg.res.Value
		}
		if c.cursor >= len(c.items) {
			c.cursor = max(0, len(c.items)-1)
		}
		return c, c.wait()

	case tea.KeyMsg:
		if c.confirm != confirmNone {
			kind := c.confirm
			c.confirm = confirmNone
			if key.Matches(msg, keys.Confirm) {
				return c, c.delete(kind)
			}
			return c, nil
		}

		switch {
		case key.Matches(msg, keys.Up):
			if c.cursor > 0 {
				c.cursor--
			}
		case key.Matches(msg, keys.Down):
			if c.cursor < len(c.items)-1 {
				c.cursor++
			}
		case key.Matches(msg, keys.Complete):
			if c.cursor < len(c.items) {
				return c, c.reopen(c.items[c.cursor])
			}
		case key.Matches(msg, keys.Delete):
			if c.cursor < len(c.items) {
				c.confirm = confirmOne
			}
		case key.Matches(msg, keys.DeleteAll):
			if len(c.items) > 0 {
				c.confirm = confirmAll
			}
		}
	}
	return c, nil
}

func (c completedModel) reopen(act store.Activity) tea.Cmd {
	svc, ctx := c.svc, c.ctx
	return func() tea.Msg {
		if _, err := svc.SetCompleted(ctx, act.ID, false); err != nil {
			return errStatus("Reopen failed: %v", err)
		}
		return okStatus("Reopened %q", truncate(act.Title, 30))
	}
}

func (c completedModel) delete(kind confirmKind) tea.Cmd {
	svc, ctx := c.svc, c.ctx
	if kind == confirmAll {
		return func() tea.Msg {
			n, err := svc.DeleteCompleted(ctx)
			if err != nil {
				return errStatus("Delete failed: %v", err)
			}
			return okStatus("Deleted %d completed activities", n)
		}
	}
	if c.cursor >= len(c.items) {
		return nil
	}
	act := c.items[c.cursor]
	return func() tea.Msg {
		if err := svc.Delete(ctx, act.ID); err != nil {
			return errStatus("Delete failed: %v", err)
		}
		return okStatus("Deleted %q", truncate(act.Title, 30))
	}
}

func (c completedModel) view() string {
	w := c.width - 4
	rows := []string{titleStyle.Render(fmt.Sprintf("Completed (%d)", len(c.items))), ""}

	switch {
	case !c.loaded:
		rows = append(rows, mutedStyle.Render("Loading..."))
	case c.err != nil:
		rows = append(rows, errorStyle.Render("Could not load completed activities: "+c.err.Error()))
	case len(c.items) == 0:
		rows = append(rows, mutedStyle.Render("Nothing completed yet."))
	default:
		visible := max(1, c.height-8)
		start := 0
		if c.cursor >= visible {
			start = c.cursor - visible + 1
		}
		end := min(len(c.items), start+visible)
		titleWidth := max(12, w-36)

		for i := start; i < end; i++ {
			act := c.items[i]
			cursor := "  "
			style := mutedStyle.Strikethrough(true)
			if i == c.cursor {
				cursor = "> "
				style = selectedItemStyle
			}
			spent := ""
			if act.Accumulated > 0 {
				spent = focus.FormatCompact(act.Accumulated)
			}
			rows = append(rows, fmt.Sprintf("%s%s %s %s %s",
				cursor,
				successStyle.Render("✓"),
				style.Render(fmt.Sprintf("%-*s", titleWidth, truncate(act.Title, titleWidth))),
				categoryStyle(act.Category).Render(fmt.Sprintf("%-7s", act.Category.Label())),
				mutedStyle.Render(spent),
			))
		}
	}

	rows = append(rows, "")
	switch c.confirm {
	case confirmOne:
		rows = append(rows, warningStyle.Render("Delete this activity? y to confirm, any key to cancel"))
	case confirmAll:
		rows = append(rows, warningStyle.Render(fmt.Sprintf("Delete all %d completed activities? y to confirm", len(c.items))))
	default:
		rows = append(rows, mutedStyle.Render("  x: reopen  d: delete  D: delete all"))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
