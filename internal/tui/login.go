package tui

import (
	"strings"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/form"
	"schedule-cli/internal/log"
	"schedule-cli/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type loginField int

const (
	loginFirstName loginField = iota
	loginLastName
	loginEmail
	loginPassword
	loginFieldCount
)

type loginForm struct {
	registering bool
	inputs      [loginFieldCount]textinput.Model
	focus       int
	err         string
	busy        bool
}

func newLoginForm() loginForm {
	mk := func(placeholder string, limit int) textinput.Model {
		in := textinput.New()
		in.Placeholder = placeholder
		in.CharLimit = limit
		in.Prompt = ""
		return in
	}
	var f loginForm
	f.inputs[loginFirstName] = mk("First name", 50)
	f.inputs[loginLastName] = mk("Last name", 50)
	f.inputs[loginEmail] = mk("you@example.com", 254)
	f.inputs[loginPassword] = mk("Password", 128)
	f.inputs[loginPassword].EchoMode = textinput.EchoPassword
	f.inputs[loginPassword].EchoCharacter = '•'
	f.focusInput(0)
	return f
}

func (f *loginForm) setEmail(email string) {
	if email == "" {
		return
	}
	f.inputs[loginEmail].SetValue(email)
	f.inputs[loginEmail].CursorEnd()
	f.focusInput(len(f.visible()) - 1)
}

// visible lists the fields of the current mode in tab order.
func (f loginForm) visible() []loginField {
	if f.registering {
		return []loginField{loginFirstName, loginLastName, loginEmail, loginPassword}
	}
	return []loginField{loginEmail, loginPassword}
}

func (f *loginForm) focusInput(i int) tea.Cmd {
	vis := f.visible()
	if i < 0 {
		i = len(vis) - 1
	}
	if i >= len(vis) {
		i = 0
	}
	f.focus = i
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	return f.inputs[vis[i]].Focus()
}

func (f loginForm) value(field loginField) string {
	return strings.TrimSpace(f.inputs[field].Value())
}

func (f loginForm) credentials() model.Credentials {
	return model.Credentials{Email: f.value(loginEmail), Password: f.inputs[loginPassword].Value()}
}

func (f loginForm) registration() model.Registration {
	return model.Registration{
		FirstName: f.value(loginFirstName),
		LastName:  f.value(loginLastName),
		Email:     f.value(loginEmail),
		Password:  f.inputs[loginPassword].Value(),
	}
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lf := &m.login
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "ctrl+r":
		if lf.busy {
			return m, nil
		}
		lf.registering = !lf.registering
		lf.err = ""
		return m, lf.focusInput(0)
	case "tab", "down":
		return m, lf.focusInput(lf.focus + 1)
	case "shift+tab", "up":
		return m, lf.focusInput(lf.focus - 1)
	case "enter":
		if lf.focus < len(lf.visible())-1 {
			return m, lf.focusInput(lf.focus + 1)
		}
		return m.submitLogin()
	}
	var cmd tea.Cmd
	field := lf.visible()[lf.focus]
	lf.inputs[field], cmd = lf.inputs[field].Update(msg)
	return m, cmd
}

func (m appModel) submitLogin() (tea.Model, tea.Cmd) {
	lf := &m.login
	if lf.busy {
		return m, nil
	}
	backend := m.backend

	if lf.registering {
		reg := lf.registration()
		if errs := form.ValidateRegistration(reg); errs != nil {
			lf.err = errs.Error()
			return m, nil
		}
		lf.busy, lf.err = true, ""
		return m, func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			return registeredMsg{email: reg.Email, err: backend.Register(ctx, reg)}
		}
	}

	creds := lf.credentials()
	if errs := form.ValidateCredentials(creds); errs != nil {
		lf.err = errs.Error()
		return m, nil
	}
	lf.busy, lf.err = true, ""
	return m, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return loggedInMsg{email: creds.Email, err: backend.Login(ctx, creds)}
	}
}

func (m appModel) handleLoggedIn(msg loggedInMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.login.err = msg.err.Error()
		m.login.inputs[loginPassword].SetValue("")
		return m, nil
	}
	log.Info("logged in", "email", msg.email)
	m.page.Reset()
	m.screen = screenCalendar
	m.login = newLoginForm()
	m.setFocus(model.FromTime(m.now()))
	return m, m.enterCalendar()
}

func (m appModel) handleRegistered(msg registeredMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.login.err = msg.err.Error()
		return m, nil
	}
	log.Info("registered", "email", msg.email)
	m.login = newLoginForm()
	m.login.setEmail(msg.email)
	return m.notify(calendar.NoticeSuccess, "Account created; log in to continue")
}

func (m appModel) viewLogin() string {
	lf := m.login
	w := m.width
	if w <= 0 {
		w = 80
	}
	bodyW := modalBodyWidth(w)

	labels := map[loginField]string{
		loginFirstName: "First name",
		loginLastName:  "Last name",
		loginEmail:     "Email",
		loginPassword:  "Password",
	}
	var lines []string
	for _, field := range lf.visible() {
		lines = append(lines, labels[field], renderInputLine(bodyW, lf.inputs[field].View(), false), "")
	}
	if lf.err != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(colorNoticeError).Width(bodyW).Render(lf.err), "")
	}
	switch {
	case lf.busy:
		lines = append(lines, styleMuted().Render("Working…"))
	case lf.registering:
		lines = append(lines, styleMuted().Render("enter: create account   ctrl+r: back to login   esc: quit"))
	default:
		lines = append(lines, styleMuted().Render("enter: log in   ctrl+r: create account   esc: quit"))
	}

	title := "Log in"
	if lf.registering {
		title = "Create account"
	}
	box := renderModalBox(w, title, strings.Join(lines, "\n"))
	if n, ok := m.page.Notice(); ok {
		box = renderNotice(n, lipgloss.Width(box)) + "\n" + box
	}
	return overlayCenter(m.width, m.height, box)
}
