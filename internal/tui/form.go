package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/store"
)

const dueLayout = "2006-01-02 15:04"

// activityFields backs the create/edit form. Fields are pointers so they
// survive the value copies Bubble Tea makes of the model.
type activityFields struct {
	title    *string
	desc     *string
	due      *string
	priority *store.Priority
	category *store.Category
	reminder *bool
}

func newActivityFields() activityFields {
	var (
		title, desc, due string
		p                store.Priority
		c                store.Category
		r                bool
	)
	return activityFields{title: &title, desc: &desc, due: &due, priority: &p, category: &c, reminder: &r}
}

func (f activityFields) load(d app.Draft) {
	*f.title = d.Title
	*f.desc = d.Description
	*f.due = d.DueAt.Local().Format(dueLayout)
	*f.priority = d.Priority
	*f.category = d.Category
	*f.reminder = d.HasReminder
}

func (f activityFields) draft() (app.Draft, error) {
	due, err := parseDue(*f.due)
	if err != nil {
		return app.Draft{}, err
	}
	return app.Draft{
		Title:       *f.title,
		Description: *f.desc,
		DueAt:       due,
		HasReminder: *f.reminder,
		Priority:    *f.priority,
		Category:    *f.category,
	}, nil
}

func (f activityFields) form() *huh.Form {
	prioOptions := make([]huh.Option[store.Priority], len(store.Priorities))
	for i, p := range store.Priorities {
		prioOptions[i] = huh.NewOption(p.String(), p)
	}
	catOptions := make([]huh.Option[store.Category], len(store.Categories))
	for i, c := range store.Categories {
		catOptions[i] = huh.NewOption(c.Label(), c)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(f.title).Validate(validateTitle),
			huh.NewText().Title("Description").Lines(3).Value(f.desc),
			huh.NewInput().Title("Due").Description("YYYY-MM-DD HH:MM").Value(f.due).Validate(func(s string) error {
				_, err := parseDue(s)
				return err
			}),
		),
		huh.NewGroup(
			huh.NewSelect[store.Priority]().Title("Priority").Options(prioOptions...).Value(f.priority),
			huh.NewSelect[store.Category]().Title("Category").Options(catOptions...).Value(f.category),
			huh.NewConfirm().Title("Remind me before it is due?").Value(f.reminder),
		),
	).WithShowHelp(true).WithShowErrors(true)
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return app.ErrTitleRequired
	}
	return nil
}

func parseDue(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dueLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, errors.New("use YYYY-MM-DD HH:MM")
	}
	return t, nil
}
