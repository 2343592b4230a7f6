package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/stats"
	"github.com/sadopc/cumpli/internal/store"
)

var focusRanges = []int{7, 14, 30}

type statsDataMsg struct {
	res query.Result[stats.Summary]
}

type dailyFocusMsg struct {
	feed <-chan query.Result[[]store.DailyFocus]
	res  query.Result[[]store.DailyFocus]
}

type statsModel struct {
	ctx    context.Context
	svc    *app.Service
	feed   <-chan query.Result[stats.Summary]
	width  int
	height int

	loaded  bool
	err     error
	summary stats.Summary

	rangeIdx  int
	daily     []store.DailyFocus
	dailyFeed <-chan query.Result[[]store.DailyFocus]
	stopDaily context.CancelFunc

	categoryChart barchart.Model
	focusChart    barchart.Model
}

func newStatsModel(ctx context.Context, svc *app.Service) statsModel {
	m := statsModel{
		ctx:           ctx,
		svc:           svc,
		feed:          svc.WatchStats(ctx),
		categoryChart: barchart.New(40, 10),
		focusChart:    barchart.New(60, 10),
	}
	m.watchDaily()
	return m
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
	s.buildCharts()
}

func (s statsModel) days() int {
	return focusRanges[s.rangeIdx]
}

// watchDaily (re)starts the focus-per-day query for the selected range.
func (s *statsModel) watchDaily() {
	if s.stopDaily != nil {
		s.stopDaily()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	days, svc := s.days(), s.svc
	s.stopDaily = cancel
	s.dailyFeed = query.Watch(ctx, svc.Store(), func(ctx context.Context) ([]store.DailyFocus, error) {
		return svc.DailyFocus(ctx, days)
	})
}

func (s statsModel) init() tea.Cmd {
	return tea.Batch(s.wait(), s.waitDaily())
}

func (s statsModel) wait() tea.Cmd {
	return waitFor(s.feed, func(r query.Result[stats.Summary]) tea.Msg { return statsDataMsg{res: r} })
}

func (s statsModel) waitDaily() tea.Cmd {
	feed := s.dailyFeed
	return waitFor(feed, func(r query.Result[[]store.DailyFocus]) tea.Msg {
		return dailyFocusMsg{feed: feed, res: r}
	})
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsDataMsg:
		s.loaded = true
		s.err = msg.res.Err
		if msg.res.Err == nil {
			s.summary = msg.res.Value
			s.buildCharts()
		}
		return s, s.wait()

	case dailyFocusMsg:
		// Results from a range that is no longer selected are dropped.
		if msg.feed != s.dailyFeed {
			return s, nil
		}
		if msg.res.Err == nil {
			s.daily = msg.res.Value
			s.buildCharts()
		}
		return s, s.waitDaily()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			if s.rangeIdx > 0 {
				s.rangeIdx--
				s.watchDaily()
				return s, s.waitDaily()
			}
		case key.Matches(msg, keys.Right):
			if s.rangeIdx < len(focusRanges)-1 {
				s.rangeIdx++
				s.watchDaily()
				return s, s.waitDaily()
			}
		}
	}
	return s, nil
}

func (s *statsModel) buildCharts() {
	chartHeight := 10
	if s.height > 36 {
		chartHeight = 14
	}
	catWidth := max(20, (s.width-12)/3)
	focusWidth := max(30, s.width-12-catWidth)

	s.categoryChart = barchart.New(catWidth, chartHeight)
	var bars []barchart.BarData
	for _, share := range s.summary.ByCategory {
		bars = append(bars, barchart.BarData{
			Label: share.Category.Label(),
			Values: []barchart.BarValue{{
				Name:  share.Category.Label(),
				Value: float64(share.Count),
				Style: categoryStyle(share.Category),
			}},
		})
	}
	if len(bars) > 0 {
		s.categoryChart.PushAll(bars)
	}
	s.categoryChart.Draw()

	s.focusChart = barchart.New(focusWidth, chartHeight)
	s.focusChart.PushAll(s.focusBars())
	s.focusChart.Draw()
}

// focusBars has one bar per day in the range, oldest first, in minutes.
func (s statsModel) focusBars() []barchart.BarData {
	byDate := make(map[string]time.Duration, len(s.daily))
	for _, d := range s.daily {
		byDate[d.Date] = d.Total
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := s.days()
	label := "Mon 02"
	if days > 7 {
		label = "02"
	}

	bars := make([]barchart.BarData, 0, days)
	for d := today.AddDate(0, 0, 1-days); !d.After(today); d = d.AddDate(0, 0, 1) {
		total := byDate[d.Format("2006-01-02")]
		bars = append(bars, barchart.BarData{
			Label: d.Format(label),
			Values: []barchart.BarValue{{
				Name:  "focus",
				Value: total.Minutes(),
				Style: lipgloss.NewStyle().Foreground(colorSuccess),
			}},
		})
	}
	return bars
}

func (s statsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Stats")

	if !s.loaded {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render("Loading...")))
	}
	if s.err != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", errorStyle.Render("Could not load stats: "+s.err.Error())))
	}

	sum := s.summary
	overview := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s %s", mutedStyle.Render("Pending:  "), highlightStyle.Render(fmt.Sprint(sum.Pending))),
		fmt.Sprintf("%s %s", mutedStyle.Render("Completed:"), successStyle.Render(fmt.Sprint(sum.Completed))),
		fmt.Sprintf("%s %s", mutedStyle.Render("Focus:    "), accentStyle.Render(focus.FormatCompact(sum.FocusTime))),
		"",
		renderProgress(sum.Progress, max(10, w/3)),
	)

	var legend []string
	for _, share := range sum.ByCategory {
		legend = append(legend, fmt.Sprintf("%s %s %d (%.0f%%)",
			categoryStyle(share.Category).Render("●"), share.Category.Label(), share.Count, share.Fraction*100))
	}
	categories := mutedStyle.Render("No activities yet")
	if len(legend) > 0 {
		categories = lipgloss.JoinVertical(lipgloss.Left,
			subtitleStyle.Render("By category"),
			s.categoryChart.View(),
			strings.Join(legend, "  "),
		)
	}

	focusPanel := lipgloss.JoinVertical(lipgloss.Left,
		subtitleStyle.Render(fmt.Sprintf("Focus minutes, last %d days", s.days())),
		s.focusChart.View(),
	)

	charts := lipgloss.JoinHorizontal(lipgloss.Top, categories, "   ", focusPanel)
	nav := mutedStyle.Render("  ←/→: focus range")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, "", overview, "", charts, "", nav),
	)
}

// renderProgress draws a bar for a fraction in [0, 1].
func renderProgress(frac float64, width int) string {
	frac = min(1, max(0, frac))
	filled := int(frac * float64(width))
	bar := successStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%% done", bar, frac*100)
}
