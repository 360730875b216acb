package tui

import (
	"errors"
	"time"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/log"
	"schedule-cli/internal/model"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case noticeExpiredMsg:
		m.page.DismissNoticeSeq(msg.seq)
		return m, nil

	case cachedMsg:
		if msg.err != nil {
			log.Warn("load cached events", "err", msg.err)
		}
		m.clampSelection()
		return m, nil

	case loadedMsg:
		return m.afterCall()

	case savedMsg:
		return m.handleSaved(msg)

	case deletedMsg:
		return m.handleDeleted(msg)

	case rescheduledMsg:
		return m.handleRescheduled(msg)

	case loggedInMsg:
		return m.handleLoggedIn(msg)

	case registeredMsg:
		return m.handleRegistered(msg)

	case userMsg:
		m.done()
		if msg.err != nil {
			log.Warn("fetch profile", "err", msg.err)
			if !m.backend.Session().LoggedIn() && m.screen == screenCalendar {
				m.page.SetNotice(calendar.NoticeWarning, "Session expired; please log in again")
				m.toLogin(m.user.Email)
				return m, m.noticeCmd()
			}
			return m, nil
		}
		m.user = msg.user
		if m.modal == modalSettings && !m.settings.touched {
			m.settings.fill(msg.user)
		}
		return m, nil

	case userUpdatedMsg:
		return m.handleUserUpdated(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and other input housekeeping.
	return m.updateFocusedInput(msg)
}

// afterCall finishes a page call: it leaves for the login screen when the
// session ended and arms the banner timer otherwise.
func (m appModel) afterCall() (tea.Model, tea.Cmd) {
	m.done()
	if m.page.NeedsLogin() {
		m.toLogin(m.user.Email)
		return m, m.noticeCmd()
	}
	m.clampSelection()
	return m, m.noticeCmd()
}

func (m *appModel) done() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.saveState()
		return m, tea.Quit
	}
	if m.screen == screenLogin {
		return m.updateLogin(msg)
	}
	switch m.modal {
	case modalEvent:
		return m.updateEventForm(msg)
	case modalConfirmDelete:
		return m.updateConfirmDelete(msg)
	case modalSettings:
		return m.updateSettings(msg)
	}
	return m.updateCalendar(msg)
}

func (m appModel) updateCalendar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	slot := m.cfg.Slot()
	switch {
	case key.Matches(msg, k.Quit):
		m.saveState()
		return m, tea.Quit
	case key.Matches(msg, k.PrevDay):
		m.setFocus(m.focus.AddDate(0, 0, -1))
	case key.Matches(msg, k.NextDay):
		m.setFocus(m.focus.AddDate(0, 0, 1))
	case key.Matches(msg, k.PrevWeek):
		m.setFocus(m.focus.AddDate(0, 0, -7))
	case key.Matches(msg, k.NextWeek):
		m.setFocus(m.focus.AddDate(0, 0, 7))
	case key.Matches(msg, k.Today):
		m.setFocus(model.FromTime(m.now()))
	case key.Matches(msg, k.Down):
		m.moveSelection(1)
	case key.Matches(msg, k.Up):
		m.moveSelection(-1)
	case key.Matches(msg, k.New):
		return m.openEventForm(m.page.OpenCreate(m.focus))
	case key.Matches(msg, k.Edit):
		if _, ok := m.selectedEvent(); !ok {
			return m, nil
		}
		return m.openEventForm(m.page.OpenEdit(m.selected))
	case key.Matches(msg, k.MoveEarlier):
		return m.reschedule(-24*time.Hour, 0)
	case key.Matches(msg, k.MoveLater):
		return m.reschedule(24*time.Hour, 0)
	case key.Matches(msg, k.SlotEarlier):
		return m.reschedule(-slot, 0)
	case key.Matches(msg, k.SlotLater):
		return m.reschedule(slot, 0)
	case key.Matches(msg, k.Shorten):
		return m.reschedule(0, -slot)
	case key.Matches(msg, k.Lengthen):
		return m.reschedule(0, slot)
	case key.Matches(msg, k.Refresh):
		m.pending++
		return m, m.loadCmd()
	case key.Matches(msg, k.ToggleDark):
		return m.toggleDark()
	case key.Matches(msg, k.Settings):
		m.pending++
		return m.openSettings()
	case key.Matches(msg, k.Logout):
		return m.logout()
	case key.Matches(msg, k.Dismiss):
		m.page.DismissNotice()
	case msg.String() == "?":
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m appModel) reschedule(shift, stretch time.Duration) (tea.Model, tea.Cmd) {
	ev, ok := m.selectedEvent()
	if !ok {
		return m, nil
	}
	if stretch < 0 && !ev.Start.Before(ev.End.Add(stretch)) {
		return m.notify(calendar.NoticeWarning, "An event must end after it starts")
	}
	if m.page.Busy() {
		return m.notify(calendar.NoticeInfo, "Still saving the previous change")
	}
	m.pending++
	return m, m.rescheduleCmd(ev.ID, shift, stretch)
}

func (m appModel) handleRescheduled(msg rescheduledMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.focus = msg.item.StartTime.Day()
		m.selected = msg.item.ID
	case errors.Is(msg.err, calendar.ErrBusy):
		m.done()
		return m.notify(calendar.NoticeInfo, "Still saving the previous change")
	case errors.Is(msg.err, calendar.ErrInvalidRange):
		m.done()
		return m.notify(calendar.NoticeWarning, "An event must end after it starts")
	}
	return m.afterCall()
}

func (m appModel) toggleDark() (tea.Model, tea.Cmd) {
	lipgloss.SetHasDarkBackground(!lipgloss.HasDarkBackground())
	m.cfg.Theme = themeName()
	if m.store.Dir == "" {
		return m, nil
	}
	if err := m.store.SaveConfig(m.cfg); err != nil {
		log.Warn("save theme", "err", err)
		return m.notify(calendar.NoticeWarning, "Could not save theme: "+err.Error())
	}
	return m, nil
}

func (m appModel) logout() (tea.Model, tea.Cmd) {
	email := m.user.Email
	if err := m.backend.Logout(); err != nil {
		log.Error("logout failed", err)
		return m.notify(calendar.NoticeError, "Could not log out: "+err.Error())
	}
	log.Info("logged out", "email", email)
	m.page.Reset()
	m.page.SetNotice(calendar.NoticeInfo, "Logged out")
	m.toLogin(email)
	return m, tea.Batch(m.noticeCmd(), textinput.Blink)
}

func (m appModel) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.screen == screenLogin:
		field := m.login.visible()[m.login.focus]
		m.login.inputs[field], cmd = m.login.inputs[field].Update(msg)
	case m.modal == modalEvent:
		m.event.inputs[m.event.focus], cmd = m.event.inputs[m.event.focus].Update(msg)
	case m.modal == modalSettings:
		m.settings.inputs[m.settings.focus], cmd = m.settings.inputs[m.settings.focus].Update(msg)
	}
	return m, cmd
}
