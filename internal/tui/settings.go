package tui

import (
	"strings"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/form"
	"schedule-cli/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var settingsFields = []form.Field{form.FieldFirstName, form.FieldLastName, form.FieldPassword}

type settingsForm struct {
	inputs []textinput.Model
	focus  int
	errs   form.Errors
	err    string
	saving bool
	// touched is set once the user types, so a late profile fetch does
	// not overwrite their edits.
	touched bool
}

func newSettingsForm(u model.User) settingsForm {
	var sf settingsForm
	for _, field := range settingsFields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 50
		if field == form.FieldPassword {
			in.CharLimit = 128
			in.Placeholder = "leave empty to keep"
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		sf.inputs = append(sf.inputs, in)
	}
	sf.fill(u)
	sf.focusInput(0)
	return sf
}

func (sf *settingsForm) fill(u model.User) {
	sf.inputs[0].SetValue(u.FirstName)
	sf.inputs[1].SetValue(u.LastName)
	sf.inputs[0].CursorEnd()
	sf.inputs[1].CursorEnd()
}

func (sf *settingsForm) focusInput(i int) tea.Cmd {
	n := len(sf.inputs)
	sf.focus = ((i % n) + n) % n
	for j := range sf.inputs {
		sf.inputs[j].Blur()
	}
	return sf.inputs[sf.focus].Focus()
}

func (sf settingsForm) update() model.UserUpdate {
	return model.UserUpdate{
		FirstName: strings.TrimSpace(sf.inputs[0].Value()),
		LastName:  strings.TrimSpace(sf.inputs[1].Value()),
		Password:  sf.inputs[2].Value(),
	}
}

func (m appModel) openSettings() (tea.Model, tea.Cmd) {
	m.settings = newSettingsForm(m.user)
	m.modal = modalSettings
	return m, tea.Batch(textinput.Blink, m.meCmd())
}

func (m appModel) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sf := &m.settings
	switch msg.String() {
	case "esc":
		if sf.saving {
			return m, nil
		}
		m.modal = modalNone
		return m, nil
	case "tab", "down":
		return m, sf.focusInput(sf.focus + 1)
	case "shift+tab", "up":
		return m, sf.focusInput(sf.focus - 1)
	case "ctrl+s":
		return m.submitSettings()
	case "enter":
		if sf.focus < len(sf.inputs)-1 {
			return m, sf.focusInput(sf.focus + 1)
		}
		return m.submitSettings()
	}
	sf.touched = true
	var cmd tea.Cmd
	sf.inputs[sf.focus], cmd = sf.inputs[sf.focus].Update(msg)
	return m, cmd
}

func (m appModel) submitSettings() (tea.Model, tea.Cmd) {
	sf := &m.settings
	if sf.saving {
		return m, nil
	}
	upd := sf.update()
	sf.err = ""
	if errs := form.ValidateUserUpdate(upd); errs != nil {
		sf.errs = errs
		return m, nil
	}
	sf.errs = nil
	sf.saving = true
	m.pending++
	backend := m.backend
	return m, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return userUpdatedMsg{err: backend.UpdateMe(ctx, upd)}
	}
}

func (m appModel) handleUserUpdated(msg userUpdatedMsg) (tea.Model, tea.Cmd) {
	m.settings.saving = false
	m.done()
	if msg.err != nil {
		m.settings.err = msg.err.Error()
		if m.backend.Session().LoggedIn() {
			return m, nil
		}
		m.page.SetNotice(calendar.NoticeWarning, "Session expired; please log in again")
		m.toLogin(m.user.Email)
		return m, m.noticeCmd()
	}
	m.modal = modalNone
	m.page.SetNotice(calendar.NoticeSuccess, "Profile updated")
	return m, tea.Batch(m.noticeCmd(), m.meCmd())
}

func (m appModel) viewSettings() string {
	sf := m.settings
	bodyW := modalBodyWidth(m.width)
	errStyle := lipgloss.NewStyle().Foreground(colorNoticeError)

	var lines []string
	if m.user.Email != "" {
		lines = append(lines, styleMuted().Render(m.user.Email), "")
	}
	for i, field := range settingsFields {
		label := "  " + field.Label()
		if i == sf.focus {
			label = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("› " + field.Label())
		}
		lines = append(lines, label, renderInputLine(bodyW, sf.inputs[i].View(), sf.errs.Has(field)))
		if msg := sf.errs.For(field); msg != "" {
			lines = append(lines, errStyle.Render("  "+msg))
		}
	}
	if sf.err != "" {
		lines = append(lines, "", errStyle.Width(bodyW).Render(sf.err))
	}
	hint := "tab: next   ctrl+s: save   esc: close"
	if sf.saving {
		hint = "Saving…"
	}
	lines = append(lines, "", styleMuted().Render(hint))
	return renderModalBox(m.width, "Account", strings.Join(lines, "\n"))
}
