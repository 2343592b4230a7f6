package store

import (
	"strings"
	"time"
)

// Priority is persisted as its rank; lower ranks sort first.
type Priority int

const (
	PriorityUrgent Priority = 1
	PriorityHigh   Priority = 2
	PriorityMedium Priority = 3
	PriorityLow    Priority = 4
)

var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	return p >= PriorityUrgent && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// PriorityFromRank maps unknown ranks to PriorityLow.
func PriorityFromRank(rank int) Priority {
	p := Priority(rank)
	if !p.Valid() {
		return PriorityLow
	}
	return p
}

// ParsePriority accepts a name ("high") or a rank ("2").
func ParsePriority(s string) (Priority, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range Priorities {
		if s == p.String() || (len(s) == 1 && int(s[0]-'0') == int(p)) {
			return p, true
		}
	}
	return 0, false
}

type Category string

const (
	CategorySchool Category = "school"
	CategoryHome   Category = "home"
	CategoryWork   Category = "work"
	CategoryOther  Category = "other"
)

var Categories = []Category{CategorySchool, CategoryHome, CategoryWork, CategoryOther}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Label is the capitalised display name.
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// CategoryFromString is case-insensitive and maps unknown names to CategoryOther.
func CategoryFromString(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return CategoryOther
	}
	return c
}

type Activity struct {
	ID          int64
	Title       string
	Description string
	DueAt       time.Time
	HasReminder bool
	Priority    Priority
	Category    Category
	Completed   bool
	CreatedAt   time.Time
	Accumulated time.Duration
	InProgress  bool
}

// Overdue reports whether a pending activity is past its due time.
func (a Activity) Overdue(now time.Time) bool {
	return !a.Completed && a.DueAt.Before(now)
}

// DueSoon reports whether the activity is due within the next 24 hours.
func (a Activity) DueSoon(now time.Time) bool {
	d := a.DueAt.Sub(now)
	return d >= 0 && d <= 24*time.Hour
}

type FocusSession struct {
	ID         string
	ActivityID int64
	StartedAt  time.Time
	EndedAt    time.Time
	Duration   time.Duration
}

// DailyFocus is focus time aggregated per day.
type DailyFocus struct {
	Date     string
	Total    time.Duration
	Sessions int
}

type SortMode int

const (
	SortByPriority SortMode = iota
	SortByDate
)

func (m SortMode) String() string {
	if m == SortByDate {
		return "date"
	}
	return "priority"
}

// PendingQuery selects non-completed activities. Search, when set, matches
// title or description case-insensitively.
type PendingQuery struct {
	Category      *Category
	Search        string
	RemindersOnly bool
	Sort          SortMode
}

type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

var Themes = []Theme{ThemeSystem, ThemeLight, ThemeDark}

func ParseTheme(s string) (Theme, bool) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Themes {
		if t == v {
			return t, true
		}
	}
	return ThemeSystem, false
}

// MaxReminderLeadMinutes caps the reminder lead time at one year.
const MaxReminderLeadMinutes = 365 * 24 * 60

type Preferences struct {
	Theme                Theme
	NotificationsEnabled bool
	ReminderLeadMinutes  int
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                ThemeSystem,
		NotificationsEnabled: true,
		ReminderLeadMinutes:  15,
	}
}

type Setting struct {
	Key   string
	Value string
}
