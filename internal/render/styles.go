package render

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan
	colorLink      = lipgloss.Color("#4DA6FF")
	colorLinkDim   = lipgloss.Color("#8FBFFF")
	colorMuted     = lipgloss.Color("#6B7280")
	colorText      = lipgloss.Color("#D1D5DB")
	colorWarning   = lipgloss.Color("#F59E0B")
)

// styles is the set of lipgloss styles used by Text. A plain set renders
// without any escape codes.
type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	host    lipgloss.Style
	link    lipgloss.Style
	linkDim lipgloss.Style
	muted   lipgloss.Style
	toggle  lipgloss.Style
	trailer lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{
			title: plain, section: plain, label: plain, value: plain, host: plain,
			link: plain, linkDim: plain, muted: plain, toggle: plain, trailer: plain,
		}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary),
		section: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary),
		label: lipgloss.NewStyle().
			Foreground(colorMuted),
		value: lipgloss.NewStyle().
			Foreground(colorText),
		host: lipgloss.NewStyle().
			Bold(true),
		link: lipgloss.NewStyle().
			Foreground(colorLink).
			Bold(true),
		linkDim: lipgloss.NewStyle().
			Foreground(colorLinkDim),
		muted: lipgloss.NewStyle().
			Foreground(colorMuted),
		toggle: lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true),
		trailer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C4302B")).
			Bold(true),
	}
}
