package tui

import "github.com/charmbracelet/lipgloss"

// Flexoki dark palette.
var (
	colorBorder    = lipgloss.Color("#403E3C")
	colorTextMuted = lipgloss.Color("#878580")
	colorText      = lipgloss.Color("#FFFCF0")
	colorAccent    = lipgloss.Color("#3AA99F")
	colorGreen     = lipgloss.Color("#879A39")
	colorOrange    = lipgloss.Color("#DA702C")
	colorRed       = lipgloss.Color("#D14D41")
	colorSelected  = lipgloss.Color("#282726")
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	headerStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Foreground(colorText).Padding(0, 1)
	selectedStyle = cellStyle.Background(colorSelected).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorTextMuted)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	errorStyle    = lipgloss.NewStyle().Foreground(colorRed)
	warnStyle     = lipgloss.NewStyle().Foreground(colorOrange)
	borderStyle   = lipgloss.NewStyle().Foreground(colorBorder)
)
