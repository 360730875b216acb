package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// confirmDialog is a two-button prompt drawn over the calendar. It opens with
// the safe choice focused.
type confirmDialog struct {
	title    string
	body     string
	action   string
	onAction bool
}

func newConfirmDialog(title, body, action string) confirmDialog {
	return confirmDialog{title: title, body: body, action: action}
}

func (d *confirmDialog) toggle() { d.onAction = !d.onAction }

func (d confirmDialog) view(width int, busy string) string {
	// Flat buttons; bordered ones leave background gaps inside the modal.
	plain := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	focused := plain.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)
	danger := focused.Background(colorNoticeError).Foreground(colorAccentFg)

	action, cancel := plain.Render(d.action), focused.Render("Cancel")
	if d.onAction {
		action, cancel = danger.Render(d.action), plain.Render("Cancel")
	}
	gap := lipgloss.NewStyle().Background(colorControlBg).Render("  ")
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, cancel, gap, action)

	body := d.body
	hint := "y: " + strings.ToLower(d.action) + "   n/esc: back   tab: switch"
	if busy != "" {
		body, buttons, hint = busy, "", ""
	}

	lines := []string{body}
	if buttons != "" {
		lines = append(lines, "", buttons)
	}
	if hint != "" {
		lines = append(lines, "", styleMuted().Width(modalBodyWidth(width)).Render(hint))
	}
	return renderModalBox(width, d.title, strings.Join(lines, "\n"))
}
