package tui

import "charm.land/lipgloss/v2"

var (
	primary = lipgloss.Color("#8B5CF6")
	success = lipgloss.Color("#22C55E")
	failure = lipgloss.Color("#F43F5E")
	warning = lipgloss.Color("#F97316")
	text    = lipgloss.Color("#F8FAFC")
	dim     = lipgloss.Color("#94A3B8")
	border  = lipgloss.Color("#334155")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(primary)
	subtitleStyle = lipgloss.NewStyle().Foreground(dim)
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(text)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary)
	optionStyle   = lipgloss.NewStyle().Foreground(text)
	hintStyle     = lipgloss.NewStyle().Italic(true).Foreground(dim)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(failure)
	okStyle       = lipgloss.NewStyle().Bold(true).Foreground(success)
	timerStyle    = lipgloss.NewStyle().Bold(true).Foreground(text)
	lowTimeStyle  = lipgloss.NewStyle().Bold(true).Foreground(warning)
	footerStyle   = lipgloss.NewStyle().Foreground(dim)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(1, 2)
)
