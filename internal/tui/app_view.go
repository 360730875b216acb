package tui

import (
	"fmt"
	"strings"
	"time"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
)

func (m appModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		m.width, m.height = defaultWidth, defaultHeight
	}
	if m.screen == screenLogin {
		return m.viewLogin()
	}

	var modal string
	switch m.modal {
	case modalEvent:
		modal = m.viewEventForm()
	case modalConfirmDelete:
		modal = m.viewConfirmDelete()
	case modalSettings:
		modal = m.viewSettings()
	}
	if modal != "" {
		return overlayCenter(m.width, m.height, modal)
	}
	return m.viewCalendar()
}

func (m appModel) viewCalendar() string {
	header := m.viewHeader()
	var banner string
	if n, ok := m.page.Notice(); ok {
		banner = renderNotice(n, m.width)
	}
	strip := m.viewWeekStrip()
	footer := m.help.View(m.keys)

	used := lipgloss.Height(header) + lipgloss.Height(strip) + lipgloss.Height(footer) + 2
	if banner != "" {
		used += lipgloss.Height(banner)
	}
	bodyH := m.height - used
	if bodyH < 3 {
		bodyH = 3
	}

	leftW := m.width * 45 / 100
	if leftW < 28 {
		leftW = 28
	}
	rightW := m.width - leftW - 1
	if rightW < 0 {
		rightW = 0
	}
	sep := styleMuted().Render(strings.TrimSuffix(strings.Repeat("│\n", bodyH), "\n"))
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		normalizePane(m.viewAgenda(leftW), leftW, bodyH),
		sep,
		normalizePane(m.viewDetail(rightW-1), rightW, bodyH),
	)

	parts := []string{header}
	if banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, strip, "", body, footer)
	return strings.Join(parts, "\n")
}

func (m appModel) viewHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("Schedule")
	parts := []string{title}
	if name := m.user.DisplayName(); name != "" {
		parts = append(parts, name)
	}
	if stale, at := m.page.Stale(); stale {
		label := "offline copy"
		if !at.IsZero() {
			label += " from " + at.Local().Format("Jan 2 15:04")
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(colorNoticeWarning).Render(label))
	}
	if m.pending > 0 {
		parts = append(parts, styleMuted().Render("syncing…"))
	}
	return strings.Join(parts, "  ")
}

func renderNotice(n calendar.Notice, width int) string {
	icon := map[calendar.NoticeKind]string{
		calendar.NoticeSuccess: "✓",
		calendar.NoticeInfo:    "i",
		calendar.NoticeWarning: "!",
		calendar.NoticeError:   "✗",
	}[n.Kind]
	st := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccentFg).
		Background(noticeColor(n.Kind)).
		Padding(0, 1)
	if width > 0 {
		st = st.Width(width)
	}
	return st.Render(icon + " " + n.Message + "   (x to dismiss)")
}

// weekStart returns the first day of day's week.
func weekStart(day model.WallTime, first time.Weekday) model.WallTime {
	offset := (int(day.Weekday()) - int(first) + 7) % 7
	return day.Day().AddDate(0, 0, -offset)
}

func (m appModel) viewWeekStrip() string {
	start := weekStart(m.focus, m.cfg.FirstWeekday())
	today := model.FromTime(m.now()).Day()
	cellW := m.width / 7
	if cellW < 8 {
		cellW = 8
	}

	cells := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		label := day.Format("Mon 02")
		if n := len(m.page.EventsOn(day)); n > 0 {
			label += fmt.Sprintf(" •%d", n)
		}
		st := lipgloss.NewStyle().Width(cellW).Align(lipgloss.Center)
		switch {
		case day.Equal(m.focus):
			st = st.Bold(true).Foreground(colorAccentFg).Background(colorAccent)
		case day.Equal(today):
			st = st.Bold(true).Foreground(colorAccent)
		default:
			st = st.Foreground(colorSurfaceFg)
		}
		cells = append(cells, st.Render(label))
	}
	month := styleMuted().Render(start.Format("January 2006"))
	return month + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func clockSpan(ev model.CalendarEvent, day model.WallTime) string {
	start, end := ev.Start.ClockString(), ev.End.ClockString()
	if ev.Start.Before(day) {
		start = "…"
	}
	if !ev.End.Before(day.AddDate(0, 0, 1)) {
		end = "…"
	}
	return fmt.Sprintf("%5s–%-5s", start, end)
}

func (m appModel) viewAgenda(width int) string {
	heading := lipgloss.NewStyle().Bold(true).Render(m.focus.Format("Monday, January 2"))
	evs := m.dayEvents()
	if len(evs) == 0 {
		msg := "No events. Press n to add one."
		if !m.page.Loaded() {
			if stale, _ := m.page.Stale(); !stale {
				msg = "Loading…"
			}
		}
		return heading + "\n\n" + styleMuted().Render(msg)
	}

	lines := []string{heading, ""}
	for _, ev := range evs {
		dot := lipgloss.NewStyle().Foreground(priorityColor(ev.ExtendedProps.Priority)).Render("●")
		line := fmt.Sprintf("%s %s %s", clockSpan(ev, m.focus), dot, ev.Title)
		if ev.ExtendedProps.Type != "" {
			line += styleMuted().Render(" · " + ev.ExtendedProps.Type)
		}
		if ev.ID == m.selected {
			line = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSelectedFg).
				Background(colorSelectedBg).
				Width(width).
				Render("▸" + line)
		} else {
			line = " " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m appModel) viewDetail(width int) string {
	ev, ok := m.selectedEvent()
	if !ok {
		return ""
	}
	pad := lipgloss.NewStyle().PaddingLeft(1)
	label := lipgloss.NewStyle().Bold(true)

	when := ev.Start.Format("Mon Jan 2 15:04") + " – "
	if ev.Start.SameDay(ev.End) {
		when += ev.End.ClockString()
	} else {
		when += ev.End.Format("Mon Jan 2 15:04")
	}
	prio := lipgloss.NewStyle().Foreground(priorityColor(ev.ExtendedProps.Priority)).Render(string(ev.ExtendedProps.Priority.Normalize()))

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(ev.Title),
		when,
		"",
		label.Render("Type: ") + ev.ExtendedProps.Type,
		label.Render("Location: ") + ev.ExtendedProps.Location,
		label.Render("Priority: ") + prio,
	}
	if desc := renderMarkdown(ev.ExtendedProps.Description, width-2); desc != "" {
		lines = append(lines, "", strings.TrimRight(desc, "\n"))
	}
	return pad.Render(strings.Join(lines, "\n"))
}
