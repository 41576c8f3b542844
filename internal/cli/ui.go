package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim   = lipgloss.NewStyle().Foreground(colorDim)

	statusStyles = map[string]lipgloss.Style{
		"completed": lipgloss.NewStyle().Foreground(colorGreen),
		"running":   lipgloss.NewStyle().Foreground(colorCyan),
		"cancelled": lipgloss.NewStyle().Foreground(colorYellow),
		"failed":    lipgloss.NewStyle().Foreground(colorRed),
	}
)

// renderStatus pads status to width before styling so columns line up.
func renderStatus(status string, width int) string {
	padded := lipgloss.NewStyle().Width(width).Render(status)
	if s, ok := statusStyles[status]; ok {
		return s.Render(padded)
	}
	return padded
}
