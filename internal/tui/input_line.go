package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// renderInputLine draws a text input as one padded row of the modal. A field
// with a validation error gets a red edge marker.
func renderInputLine(bodyW int, inputView string, invalid bool) string {
	bodyW = max(bodyW, 10)
	inputView = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(inputView)

	edge := lipgloss.NewStyle().Background(colorInputBg).Render(" ")
	if invalid {
		edge = lipgloss.NewStyle().Foreground(colorNoticeError).Background(colorInputBg).Render("▌")
	}
	row := lipgloss.NewStyle().
		Background(colorInputBg).
		Width(bodyW).
		MaxWidth(bodyW).
		Render(edge + inputView)
	if xansi.StringWidth(row) > bodyW {
		row = xansi.Truncate(row, bodyW, "")
	}
	return row
}
