package render

import "github.com/charmbracelet/lipgloss"

var (
	colorMuted = lipgloss.Color("#8b949e")
	colorBlue  = lipgloss.Color("#58a6ff")
	colorGreen = lipgloss.Color("#3fb950")
	colorAmber = lipgloss.Color("#d29922")
	colorRed   = lipgloss.Color("#f85149")
)

// styles are bound to one renderer so color support follows the writer
type styles struct {
	heading lipgloss.Style
	muted   lipgloss.Style
	link    lipgloss.Style
	pass    lipgloss.Style
	fail    lipgloss.Style
	badge   lipgloss.Style
	box     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		heading: r.NewStyle().Bold(true).Foreground(colorBlue),
		muted:   r.NewStyle().Foreground(colorMuted),
		link:    r.NewStyle().Foreground(colorBlue).Underline(true),
		pass:    r.NewStyle().Foreground(colorGreen).Bold(true),
		fail:    r.NewStyle().Foreground(colorRed).Bold(true),
		badge:   r.NewStyle().Bold(true).Padding(0, 1),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1),
	}
}

func levelColor(level string) lipgloss.Color {
	switch level {
	case "High":
		return colorGreen
	case "Low":
		return colorRed
	default:
		return colorAmber
	}
}

func toneColor(tone string) lipgloss.Color {
	switch tone {
	case "safe":
		return colorGreen
	case "avoid":
		return colorRed
	default:
		return colorAmber
	}
}
