package tui

import "github.com/charmbracelet/lipgloss"

// Palette, readable on light and dark terminals.
var (
	accent = lipgloss.AdaptiveColor{Light: "#5A3FD0", Dark: "#9C84FF"}
	ok     = lipgloss.AdaptiveColor{Light: "#027A4F", Dark: "#2BD99F"}
	warn   = lipgloss.AdaptiveColor{Light: "#B36B00", Dark: "#FFC14D"}
	fail   = lipgloss.AdaptiveColor{Light: "#C0262D", Dark: "#FF6B6B"}
	muted  = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}
)

var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginTop(1).MarginBottom(1)
	StatusStyle    = lipgloss.NewStyle().Foreground(ok)
	WarningStyle   = lipgloss.NewStyle().Foreground(warn)
	ErrorStyle     = lipgloss.NewStyle().Bold(true).Foreground(fail)
	InfoStyle      = lipgloss.NewStyle().Foreground(muted)
	HighlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accent).Padding(0, 1)

	// BoxStyle frames the log tail.
	BoxStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false).BorderForeground(muted).Padding(0, 1)
)
