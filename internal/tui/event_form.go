package tui

import (
	"errors"
	"fmt"
	"strings"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/form"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// eventInputs are the text fields of the event modal; priority is cycled
// with ctrl+p instead of typed.
var eventInputs = []form.Field{
	form.FieldTitle,
	form.FieldType,
	form.FieldLocation,
	form.FieldDescription,
	form.FieldStartDate,
	form.FieldStartTime,
	form.FieldEndDate,
	form.FieldEndTime,
}

type eventForm struct {
	form   form.Form
	inputs []textinput.Model
	focus  int
	errs   form.Errors
	err    string
	saving bool
}

func eventInputLimit(f form.Field) (limit int, placeholder string) {
	switch f {
	case form.FieldTitle, form.FieldLocation:
		return 100, ""
	case form.FieldType:
		return 50, "meeting, personal, …"
	case form.FieldDescription:
		return 1000, "optional, markdown"
	case form.FieldStartDate, form.FieldEndDate:
		return 10, "YYYY-MM-DD"
	default:
		return 5, "HH:MM"
	}
}

func newEventForm(f form.Form) eventForm {
	ef := eventForm{form: f}
	for _, field := range eventInputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit, in.Placeholder = eventInputLimit(field)
		in.SetValue(f.Get(field))
		in.CursorEnd()
		ef.inputs = append(ef.inputs, in)
	}
	ef.focusInput(0)
	return ef
}

func (ef *eventForm) focusInput(i int) tea.Cmd {
	n := len(ef.inputs)
	ef.focus = ((i % n) + n) % n
	for j := range ef.inputs {
		ef.inputs[j].Blur()
	}
	return ef.inputs[ef.focus].Focus()
}

// sync copies the inputs into the form.
func (ef *eventForm) sync() {
	for i, field := range eventInputs {
		ef.form.Set(field, ef.inputs[i].Value())
	}
}

func (ef *eventForm) focusFirstError() tea.Cmd {
	for i, field := range eventInputs {
		if ef.errs.Has(field) {
			return ef.focusInput(i)
		}
	}
	return nil
}

func (m appModel) openEventForm(f form.Form, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		if errors.Is(err, calendar.ErrUnknownEvent) {
			return m, nil
		}
		return m.notify(calendar.NoticeWarning, err.Error())
	}
	m.event = newEventForm(f)
	m.modal = modalEvent
	return m, textinput.Blink
}

func (m appModel) updateEventForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ef := &m.event
	switch msg.String() {
	case "esc":
		if ef.saving {
			return m, nil
		}
		m.page.Close()
		m.modal = modalNone
		return m, nil
	case "tab", "down":
		return m, ef.focusInput(ef.focus + 1)
	case "shift+tab", "up":
		return m, ef.focusInput(ef.focus - 1)
	case "ctrl+p":
		ef.form.Priority = ef.form.Priority.Next()
		return m, nil
	case "ctrl+d":
		if ef.saving || ef.form.Mode != form.ModeEdit {
			return m, nil
		}
		if err := m.page.RequestDelete(); err != nil {
			return m, nil
		}
		title := ef.form.Title
		if title == "" {
			title = "this event"
		}
		m.confirm = newConfirmDialog("Delete event", fmt.Sprintf("Delete %q? This cannot be undone.", title), "Delete")
		m.modal = modalConfirmDelete
		return m, nil
	case "ctrl+s":
		return m.submitEvent()
	case "enter":
		if ef.focus < len(ef.inputs)-1 {
			return m, ef.focusInput(ef.focus + 1)
		}
		return m.submitEvent()
	}
	var cmd tea.Cmd
	ef.inputs[ef.focus], cmd = ef.inputs[ef.focus].Update(msg)
	return m, cmd
}

func (m appModel) submitEvent() (tea.Model, tea.Cmd) {
	ef := &m.event
	if ef.saving {
		return m, nil
	}
	ef.sync()
	ef.err = ""
	if errs := ef.form.Validate(); errs != nil {
		ef.errs = errs
		return m, ef.focusFirstError()
	}
	ef.errs = nil
	ef.saving = true
	m.pending++

	page, f := m.page, ef.form
	return m, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		it, err := page.Submit(ctx, f)
		return savedMsg{item: it, err: err}
	}
}

func (m appModel) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	m.event.saving = false
	if msg.err == nil {
		m.modal = modalNone
		m.focus = msg.item.StartTime.Day()
		m.selected = msg.item.ID
		m.clampSelection()
		return m.afterCall()
	}
	var errs form.Errors
	if errors.As(msg.err, &errs) {
		m.event.errs = errs
	} else {
		m.event.err = msg.err.Error()
	}
	if !m.page.Modal().Open {
		m.modal = modalNone
	}
	return m.afterCall()
}

func (m appModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirm.toggle()
		return m, nil
	case "y":
		m.confirm.onAction = true
		return m.confirmDelete()
	case "enter":
		if m.confirm.onAction {
			return m.confirmDelete()
		}
	case "esc", "n":
	default:
		return m, nil
	}
	m.page.CancelDelete()
	m.modal = modalEvent
	return m, nil
}

func (m appModel) confirmDelete() (tea.Model, tea.Cmd) {
	if m.event.saving {
		return m, nil
	}
	m.event.saving = true
	m.pending++
	page := m.page
	return m, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return deletedMsg{err: page.ConfirmDelete(ctx)}
	}
}

func (m appModel) handleDeleted(msg deletedMsg) (tea.Model, tea.Cmd) {
	m.event.saving = false
	switch {
	case msg.err == nil:
		m.modal = modalNone
		m.selected = 0
		m.clampSelection()
	case m.page.Modal().Open:
		m.modal = modalEvent
		m.event.err = msg.err.Error()
	default:
		m.modal = modalNone
	}
	return m.afterCall()
}

func (m appModel) viewEventForm() string {
	ef := m.event
	bodyW := modalBodyWidth(m.width)
	errStyle := lipgloss.NewStyle().Foreground(colorNoticeError)
	labelStyle := lipgloss.NewStyle().Bold(true)

	var lines []string
	for i, field := range eventInputs {
		label := field.Label()
		if i == ef.focus {
			label = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("› " + label)
		} else {
			label = labelStyle.Render("  " + label)
		}
		lines = append(lines, label, renderInputLine(bodyW, ef.inputs[i].View(), ef.errs.Has(field)))
		if msg := ef.errs.For(field); msg != "" {
			lines = append(lines, errStyle.Render("  "+msg))
		}
	}

	p := ef.form.Priority.Normalize()
	chip := lipgloss.NewStyle().Foreground(colorAccentFg).Background(priorityColor(p)).Padding(0, 1).Render(string(p))
	lines = append(lines, "", labelStyle.Render("  Priority ")+chip+styleMuted().Render("  ctrl+p to change"))
	if msg := ef.errs.For(form.FieldPriority); msg != "" {
		lines = append(lines, errStyle.Render("  "+msg))
	}
	if ef.err != "" {
		lines = append(lines, "", errStyle.Width(bodyW).Render(ef.err))
	}

	hints := []string{"tab: next", "ctrl+s: save", "esc: cancel"}
	if ef.form.Mode == form.ModeEdit {
		hints = append(hints, "ctrl+d: delete")
	}
	if ef.saving {
		hints = []string{"Saving…"}
	}
	lines = append(lines, "", styleMuted().Width(bodyW).Render(strings.Join(hints, "   ")))

	title := "New event"
	if ef.form.Mode == form.ModeEdit {
		title = fmt.Sprintf("Edit event #%d", ef.form.ID)
	}
	return renderModalBox(m.width, title, strings.Join(lines, "\n"))
}

func (m appModel) viewConfirmDelete() string {
	var busy string
	if m.event.saving {
		busy = "Deleting…"
	}
	return m.confirm.view(m.width, busy)
}
