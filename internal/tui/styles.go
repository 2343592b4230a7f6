package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/cumpli/internal/store"
)

// Color palette
var (
	colorPrimary   = lipgloss.Color("#6C63FF")
	colorAccent    = lipgloss.Color("#FF6B6B")
	colorMuted     = lipgloss.Color("#666666")
	colorSuccess   = lipgloss.Color("#2ECC71")
	colorWarning   = lipgloss.Color("#F39C12")
	colorError     = lipgloss.Color("#E74C3C")
	colorSubtle    = lipgloss.Color("#414868")
	colorHighlight = lipgloss.Color("#7AA2F7")

	// colorFg follows the theme preference; see applyTheme.
	colorFg lipgloss.TerminalColor = systemFg
)

var (
	systemFg = lipgloss.AdaptiveColor{Light: "#1A1B26", Dark: "#C0CAF5"}
	lightFg  = lipgloss.Color("#1A1B26")
	darkFg   = lipgloss.Color("#C0CAF5")
)

var priorityColors = map[store.Priority]lipgloss.Color{
	store.PriorityUrgent: colorError,
	store.PriorityHigh:   colorWarning,
	store.PriorityMedium: colorHighlight,
	store.PriorityLow:    colorMuted,
}

var categoryColors = map[store.Category]lipgloss.Color{
	store.CategorySchool: lipgloss.Color("#2EC4B6"),
	store.CategoryHome:   lipgloss.Color("#F7B801"),
	store.CategoryWork:   colorPrimary,
	store.CategoryOther:  colorMuted,
}

// Styles
var (
	// Tabs
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(1, 2)

	// Focus clock
	clockIdleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Align(lipgloss.Center)

	clockRunningStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSuccess).
				Align(lipgloss.Center)

	// Text
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	accentStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	highlightStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)

	// Header/footer
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// List items
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	chipStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

// applyTheme switches the foreground used for titles and list items. The
// system theme lets the terminal background decide.
func applyTheme(t store.Theme) {
	switch t {
	case store.ThemeLight:
		colorFg = lightFg
	case store.ThemeDark:
		colorFg = darkFg
	default:
		colorFg = systemFg
	}
	titleStyle = titleStyle.Foreground(colorFg)
	normalItemStyle = normalItemStyle.Foreground(colorFg)
}

func priorityStyle(p store.Priority) lipgloss.Style {
	c, ok := priorityColors[p]
	if !ok {
		c = colorMuted
	}
	return lipgloss.NewStyle().Foreground(c)
}

func categoryStyle(c store.Category) lipgloss.Style {
	col, ok := categoryColors[c]
	if !ok {
		col = colorMuted
	}
	return lipgloss.NewStyle().Foreground(col)
}
