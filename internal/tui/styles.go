package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("#C8102E")
	colorSecondary = lipgloss.Color("#06B6D4")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
	colorWhite     = lipgloss.Color("#F9FAFB")

	styleLogo = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleSubtitle = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleUser = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleAssistant = lipgloss.NewStyle().
			Foreground(colorWhite)

	styleMeta = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleInputBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorMuted)
)
