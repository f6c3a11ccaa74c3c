package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/theirongolddev/spendgrid/internal/tui/theme"
)

// RenderStatusBar renders key hints on the left and status on the right.
func RenderStatusBar(width int, hints, status string) string {
	t := theme.Active

	left := " " + hints
	right := ""
	if status != "" {
		right = status + " "
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width).
		Render(left + strings.Repeat(" ", padding) + right)
}
