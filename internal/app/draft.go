package app

import (
	"strings"
	"time"

	"github.com/sadopc/cumpli/internal/store"
)

// Draft holds the user-editable fields of an activity.
type Draft struct {
	Title       string
	Description string
	DueAt       time.Time
	HasReminder bool
	Priority    store.Priority
	Category    store.Category
}

// NewDraft is the create form's starting point: due tomorrow at 08:00,
// medium priority, school, no reminder.
func NewDraft(now time.Time) Draft {
	y, m, d := now.Date()
	return Draft{
		DueAt:    time.Date(y, m, d+1, 8, 0, 0, 0, now.Location()),
		Priority: store.PriorityMedium,
		Category: store.CategorySchool,
	}
}

// DraftFrom copies the editable fields of a.
func DraftFrom(a store.Activity) Draft {
	return Draft{
		Title:       a.Title,
		Description: a.Description,
		DueAt:       a.DueAt,
		HasReminder: a.HasReminder,
		Priority:    a.Priority,
		Category:    a.Category,
	}
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if d.DueAt.IsZero() {
		return &ValidationError{Field: "due date", Msg: "required"}
	}
	if !d.Priority.Valid() {
		return &ValidationError{Field: "priority", Msg: d.Priority.String()}
	}
	if !d.Category.Valid() {
		return &ValidationError{Field: "category", Msg: string(d.Category)}
	}
	return nil
}

// apply writes the draft onto a, trimming the text fields.
func (d Draft) apply(a *store.Activity) {
	a.Title = strings.TrimSpace(d.Title)
	a.Description = strings.TrimSpace(d.Description)
	a.DueAt = d.DueAt
	a.HasReminder = d.HasReminder
	a.Priority = d.Priority
	a.Category = d.Category
}
