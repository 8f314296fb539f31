package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan
	colorSuccess   = lipgloss.Color("#10B981") // Green
	colorWarning   = lipgloss.Color("#F59E0B") // Amber
	colorError     = lipgloss.Color("#EF4444") // Red
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorHighlight = lipgloss.Color("#374151") // Highlight bg

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	urlStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	selectedStyle = lipgloss.NewStyle().
			Background(colorHighlight).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1)

	normalStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#111827")).
			Foreground(lipgloss.Color("#9CA3AF")).
			PaddingLeft(1).
			PaddingRight(1)

	tabActiveStyle = lipgloss.NewStyle().
			Background(colorPrimary).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1)

	tabInactiveStyle = lipgloss.NewStyle().
				Background(colorHighlight).
				Foreground(lipgloss.Color("#9CA3AF")).
				PaddingLeft(1).
				PaddingRight(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	badgeStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	progressBarFilled = lipgloss.NewStyle().
				Foreground(colorSuccess)

	progressBarEmpty = lipgloss.NewStyle().
				Foreground(colorMuted)

	searchPromptStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)
)
