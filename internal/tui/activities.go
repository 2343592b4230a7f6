package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/query"
	"github.com/sadopc/cumpli/internal/store"
)

type listStateMsg struct {
	state query.ListState
}

type categoryCountsMsg struct {
	res query.Result[map[store.Category]int]
}

type activitiesModel struct {
	ctx    context.Context
	svc    *app.Service
	engine *query.Engine
	counts <-chan query.Result[map[store.Category]int]
	width  int
	height int

	state      query.ListState
	filter     query.FilterState
	byCategory map[store.Category]int
	cursor     int

	search    textinput.Model
	searching bool

	confirmDelete bool

	formActive bool
	form       *huh.Form
	fields     activityFields
	editingID  int64 // 0 while creating

	now func() time.Time
}

func newActivitiesModel(ctx context.Context, svc *app.Service) activitiesModel {
	ti := textinput.New()
	ti.Placeholder = "search title or description"
	ti.Prompt = "/ "
	ti.CharLimit = 80

	return activitiesModel{
		ctx:    ctx,
		svc:    svc,
		engine: svc.NewListEngine(ctx),
		counts: svc.WatchCategoryCounts(ctx),
		state:  query.Loading{},
		filter: query.DefaultFilter(),
		search: ti,
		fields: newActivityFields(),
		now:    time.Now,
	}
}

func (a *activitiesModel) setSize(w, h int) {
	a.width = w
	a.height = h
	a.search.Width = max(10, w/3)
}

func (a activitiesModel) init() tea.Cmd {
	return tea.Batch(a.waitList(), a.waitCounts())
}

func (a activitiesModel) waitList() tea.Cmd {
	return waitFor(a.engine.States(), func(st query.ListState) tea.Msg { return listStateMsg{state: st} })
}

func (a activitiesModel) waitCounts() tea.Cmd {
	return waitFor(a.counts, func(r query.Result[map[store.Category]int]) tea.Msg { return categoryCountsMsg{res: r} })
}

// capturing reports whether keys belong to the view rather than the app.
func (a activitiesModel) capturing() bool {
	return a.formActive || a.searching || a.confirmDelete
}

func (a activitiesModel) items() []store.Activity {
	if s, ok := a.state.(query.Success); ok {
		return s.Activities
	}
	return nil
}

func (a activitiesModel) selected() (store.Activity, bool) {
	items := a.items()
	if a.cursor < 0 || a.cursor >= len(items) {
		return store.Activity{}, false
	}
	return items[a.cursor], true
}

func (a activitiesModel) update(msg tea.Msg) (activitiesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case listStateMsg:
		a.state = msg.state
		a.filter = a.engine.Filter()
		if n := len(a.items()); a.cursor >= n {
			a.cursor = max(0, n-1)
		}
		return a, a.waitList()

	case categoryCountsMsg:
		if msg.res.Err == nil {
			a.byCategory = msg.res.Value
		}
		return a, a.waitCounts()
	}

	// Live data keeps flowing while the form is open; everything else
	// belongs to the form.
	if a.formActive && a.form != nil {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case a.searching:
			return a.updateSearch(msg)
		case a.confirmDelete:
			return a.updateConfirm(msg)
		}
		return a.updateList(msg)
	}
	return a, nil
}

func (a activitiesModel) updateList(msg tea.KeyMsg) (activitiesModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, keys.Down):
		if a.cursor < len(a.items())-1 {
			a.cursor++
		}
	case key.Matches(msg, keys.New):
		return a.showForm(nil)
	case key.Matches(msg, keys.Edit):
		if act, ok := a.selected(); ok {
			return a.showForm(&act)
		}
	case key.Matches(msg, keys.Complete):
		if act, ok := a.selected(); ok {
			return a, a.toggleCompleted(act)
		}
	case key.Matches(msg, keys.Delete):
		if _, ok := a.selected(); ok {
			a.confirmDelete = true
		}
	case key.Matches(msg, keys.Focus):
		if act, ok := a.selected(); ok {
			return a, a.toggleFocus(act)
		}
	case key.Matches(msg, keys.Search):
		a.searching = true
		a.search.SetValue(a.filter.Search)
		return a, a.search.Focus()
	case key.Matches(msg, keys.Category):
		a.engine.SetCategory(nextCategory(a.filter.Category))
		a.filter = a.engine.Filter()
	case key.Matches(msg, keys.Sort):
		next := store.SortByDate
		if a.filter.Sort == store.SortByDate {
			next = store.SortByPriority
		}
		a.engine.SetSort(next)
		a.filter = a.engine.Filter()
	case key.Matches(msg, keys.Reminders):
		a.engine.SetRemindersOnly(!a.filter.RemindersOnly)
		a.filter = a.engine.Filter()
	case key.Matches(msg, keys.Clear):
		a.engine.Clear()
		a.filter = a.engine.Filter()
		a.search.SetValue("")
	}
	return a, nil
}

func (a activitiesModel) updateSearch(msg tea.KeyMsg) (activitiesModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.searching = false
		a.search.Blur()
		a.search.SetValue("")
		a.engine.SetSearch("")
		a.filter = a.engine.Filter()
		return a, nil
	case tea.KeyEnter:
		a.searching = false
		a.search.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	a.engine.SetSearch(a.search.Value())
	a.filter = a.engine.Filter()
	a.cursor = 0
	return a, cmd
}

func (a activitiesModel) updateConfirm(msg tea.KeyMsg) (activitiesModel, tea.Cmd) {
	a.confirmDelete = false
	if !key.Matches(msg, keys.Confirm) {
		return a, nil
	}
	act, ok := a.selected()
	if !ok {
		return a, nil
	}
	svc, ctx := a.svc, a.ctx
	return a, func() tea.Msg {
		if err := svc.Delete(ctx, act.ID); err != nil {
			return errStatus("Delete failed: %v", err)
		}
		return okStatus("Deleted %q", truncate(act.Title, 30))
	}
}

// nextCategory cycles all → school → home → work → other → all.
func nextCategory(c *store.Category) *store.Category {
	if c == nil {
		next := store.Categories[0]
		return &next
	}
	for i, v := range store.Categories {
		if v == *c && i+1 < len(store.Categories) {
			next := store.Categories[i+1]
			return &next
		}
	}
	return nil
}

func (a activitiesModel) toggleCompleted(act store.Activity) tea.Cmd {
	svc, ctx := a.svc, a.ctx
	return func() tea.Msg {
		updated, err := svc.ToggleCompleted(ctx, act.ID)
		if err != nil {
			return errStatus("Update failed: %v", err)
		}
		if updated.Completed {
			return okStatus("Completed %q", truncate(updated.Title, 30))
		}
		return okStatus("Reopened %q", truncate(updated.Title, 30))
	}
}

func (a activitiesModel) toggleFocus(act store.Activity) tea.Cmd {
	svc, ctx := a.svc, a.ctx
	return func() tea.Msg {
		running, err := svc.ToggleFocus(ctx, act.ID)
		switch {
		case errors.Is(err, focus.ErrSessionActive):
			return errStatus("Another activity is being timed. Pause it first.")
		case errors.Is(err, app.ErrActivityCompleted):
			return errStatus("%q is already completed", truncate(act.Title, 30))
		case err != nil:
			return errStatus("Focus failed: %v", err)
		case running:
			return okStatus("Focusing on %q", truncate(act.Title, 30))
		}
		return okStatus("Paused %q", truncate(act.Title, 30))
	}
}

// showForm opens the create form, or the edit form when act is set.
func (a activitiesModel) showForm(act *store.Activity) (activitiesModel, tea.Cmd) {
	if act == nil {
		a.editingID = 0
		a.fields.load(app.NewDraft(a.now()))
	} else {
		a.editingID = act.ID
		a.fields.load(app.DraftFrom(*act))
	}
	a.form = a.fields.form()
	a.formActive = true
	return a, a.form.Init()
}

func (a activitiesModel) updateForm(msg tea.Msg) (activitiesModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		a.formActive = false
		a.form = nil
		return a, nil
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		a.formActive = false
		return a, a.save()
	case huh.StateAborted:
		a.formActive = false
		a.form = nil
		return a, nil
	}
	return a, cmd
}

func (a activitiesModel) save() tea.Cmd {
	d, err := a.fields.draft()
	if err != nil {
		return func() tea.Msg { return errStatus("Invalid due date: %v", err) }
	}
	svc, ctx, id := a.svc, a.ctx, a.editingID
	return func() tea.Msg {
		if id == 0 {
			created, err := svc.Create(ctx, d)
			if err != nil {
				return errStatus("Create failed: %v", err)
			}
			return okStatus("Added %q", truncate(created.Title, 30))
		}
		updated, err := svc.Update(ctx, id, d)
		if err != nil {
			return errStatus("Save failed: %v", err)
		}
		return okStatus("Saved %q", truncate(updated.Title, 30))
	}
}

// --- View ---

func (a activitiesModel) view() string {
	w := a.width - 4
	if a.formActive && a.form != nil {
		title := titleStyle.Render("New Activity")
		if a.editingID != 0 {
			title = titleStyle.Render("Edit Activity")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", a.form.View())
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Activities"), a.renderFilters(), "")

	switch st := a.state.(type) {
	case query.Loading:
		rows = append(rows, mutedStyle.Render("Loading..."))
	case query.Empty:
		rows = append(rows, mutedStyle.Render("Nothing to do. Press n to add an activity."))
	case query.EmptySearch:
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("No activities match %q.", st.Query)))
	case query.Failed:
		rows = append(rows, errorStyle.Render("Could not load activities: "+st.Err.Error()))
	case query.Success:
		rows = append(rows, a.renderRows(st.Activities, w)...)
	}

	rows = append(rows, "")
	if a.confirmDelete {
		if act, ok := a.selected(); ok {
			rows = append(rows, warningStyle.Render(fmt.Sprintf("Delete %q? y to confirm, any key to cancel", truncate(act.Title, 30))))
		}
	} else {
		rows = append(rows, mutedStyle.Render("  n: new  e: edit  x: done  d: delete  f: focus  /: search  c: category  o: sort  r: reminders  C: clear"))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (a activitiesModel) renderFilters() string {
	var chips []string
	all := 0
	for _, n := range a.byCategory {
		all += n
	}
	label := fmt.Sprintf("All %d", all)
	if a.filter.Category == nil {
		chips = append(chips, selectedItemStyle.Inherit(chipStyle).Render(label))
	} else {
		chips = append(chips, mutedStyle.Inherit(chipStyle).Render(label))
	}
	for _, c := range store.Categories {
		label := fmt.Sprintf("%s %d", c.Label(), a.byCategory[c])
		if a.filter.Category != nil && *a.filter.Category == c {
			chips = append(chips, categoryStyle(c).Bold(true).Underline(true).Inherit(chipStyle).Render(label))
		} else {
			chips = append(chips, mutedStyle.Inherit(chipStyle).Render(label))
		}
	}

	parts := []string{strings.Join(chips, " ")}
	parts = append(parts, subtitleStyle.Render("sort: "+a.filter.Sort.String()))
	if a.filter.RemindersOnly {
		parts = append(parts, accentStyle.Render("⏰ reminders only"))
	}
	switch {
	case a.searching:
		parts = append(parts, a.search.View())
	case strings.TrimSpace(a.filter.Search) != "":
		parts = append(parts, highlightStyle.Render(fmt.Sprintf("search: %q", strings.TrimSpace(a.filter.Search))))
	}
	return strings.Join(parts, "  ")
}

func (a activitiesModel) renderRows(items []store.Activity, w int) []string {
	now := a.now()
	running := int64(-1)
	if snap, ok := a.svc.CurrentFocus(); ok {
		running = snap.ActivityID
	}

	// Keep the cursor on screen.
	visible := max(1, a.height-10)
	start := 0
	if a.cursor >= visible {
		start = a.cursor - visible + 1
	}
	end := min(len(items), start+visible)

	titleWidth := max(12, w-52)
	var rows []string
	for i := start; i < end; i++ {
		act := items[i]
		cursor := "  "
		style := normalItemStyle
		if i == a.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		marker := priorityStyle(act.Priority).Render("●")
		due := formatDue(act.DueAt, now)
		dueStyle := mutedStyle
		switch {
		case act.Overdue(now):
			dueStyle = errorStyle
		case act.DueSoon(now):
			dueStyle = warningStyle
		}

		flags := ""
		if act.HasReminder {
			flags += "⏰"
		}
		if act.ID == running {
			flags += successStyle.Render(" ▶ " + focus.FormatCompact(act.Accumulated))
		} else if act.Accumulated > 0 {
			flags += mutedStyle.Render(" " + focus.FormatCompact(act.Accumulated))
		}

		row := fmt.Sprintf("%s%s %s %s %s %s",
			cursor,
			marker,
			style.Render(fmt.Sprintf("%-*s", titleWidth, truncate(act.Title, titleWidth))),
			categoryStyle(act.Category).Render(fmt.Sprintf("%-7s", act.Category.Label())),
			dueStyle.Render(fmt.Sprintf("%-22s", due)),
			flags,
		)
		rows = append(rows, row)
	}
	if len(items) > end {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(items)-end)))
	}
	return rows
}
