package tui

import (
	"context"
	"time"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/log"
	"schedule-cli/internal/model"
	"schedule-cli/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type appModel struct {
	backend Backend
	page    *calendar.Page
	store   store.Store
	cfg     *store.Config
	now     func() time.Time

	width  int
	height int

	screen screen
	modal  modalKind

	login    loginForm
	event    eventForm
	settings settingsForm
	confirm  confirmDialog

	// focus is the day shown in the agenda, always at midnight.
	focus    model.WallTime
	selected int64
	user     model.User

	keys calendarKeys
	help help.Model

	// pending counts background calls still in flight.
	pending int

	noticeTTL time.Duration
}

func newAppModel(opts Options) appModel {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = store.DefaultConfig()
	}

	pageOpts := []calendar.Option{calendar.WithClock(now)}
	if opts.Snapshots != nil {
		pageOpts = append(pageOpts, calendar.WithSnapshots(opts.Snapshots))
	}

	m := appModel{
		backend: opts.Backend,
		page:    calendar.New(opts.Backend, pageOpts...),
		store:   opts.Store,
		cfg:     cfg,
		now:     now,
		login:   newLoginForm(),
		focus:   model.FromTime(now()).Day(),
		keys:    newCalendarKeys(),
		help:    help.New(),

		noticeTTL: noticeTTL,
	}

	if m.store.Dir != "" {
		if st, err := m.store.LoadTUIState(); err == nil && st.Date != "" {
			if d, err := model.ParseDateClock(st.Date, "00:00"); err == nil {
				m.focus = d
				m.selected = st.SelectedID
			}
		}
	}

	if opts.Backend.Session().LoggedIn() {
		m.screen = screenCalendar
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.screen == screenLogin {
		return textinput.Blink
	}
	return m.enterCalendar()
}

// enterCalendar seeds from the snapshot, then fetches events and the profile.
func (m *appModel) enterCalendar() tea.Cmd {
	m.pending += 2
	return tea.Batch(m.loadCachedCmd(), m.loadCmd(), m.meCmd())
}

func (m appModel) saveState() {
	if m.store.Dir == "" {
		return
	}
	st := &store.TUIState{
		Version:    1,
		Date:       m.focus.DateString(),
		View:       "week",
		SelectedID: m.selected,
	}
	if err := m.store.SaveTUIState(st); err != nil {
		log.Warn("save tui state", "err", err)
	}
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func (m appModel) loadCachedCmd() tea.Cmd {
	page := m.page
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return cachedMsg{err: page.LoadCached(ctx)}
	}
}

func (m appModel) loadCmd() tea.Cmd {
	page := m.page
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return loadedMsg{err: page.Load(ctx)}
	}
}

func (m appModel) meCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		u, err := backend.Me(ctx)
		return userMsg{user: u, err: err}
	}
}

func (m appModel) rescheduleCmd(id int64, shift, stretch time.Duration) tea.Cmd {
	page := m.page
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		var (
			it  model.ScheduleItem
			err error
		)
		if stretch != 0 {
			it, err = page.ResizeBy(ctx, id, stretch)
		} else {
			it, err = page.MoveBy(ctx, id, shift)
		}
		return rescheduledMsg{item: it, err: err}
	}
}

// noticeCmd schedules the auto-dismiss of the banner currently shown.
func (m appModel) noticeCmd() tea.Cmd {
	n, ok := m.page.Notice()
	if !ok {
		return nil
	}
	seq := n.Seq
	return tea.Tick(m.noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m appModel) notify(kind calendar.NoticeKind, msg string) (appModel, tea.Cmd) {
	m.page.SetNotice(kind, msg)
	return m, m.noticeCmd()
}

func (m *appModel) dayEvents() []model.CalendarEvent {
	return m.page.EventsOn(m.focus)
}

// clampSelection keeps the selection on an event of the focused day.
func (m *appModel) clampSelection() {
	evs := m.dayEvents()
	for _, ev := range evs {
		if ev.ID == m.selected {
			return
		}
	}
	m.selected = 0
	if len(evs) > 0 {
		m.selected = evs[0].ID
	}
}

func (m *appModel) moveSelection(delta int) {
	evs := m.dayEvents()
	if len(evs) == 0 {
		m.selected = 0
		return
	}
	idx := 0
	for i, ev := range evs {
		if ev.ID == m.selected {
			idx = i + delta
			break
		}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(evs) {
		idx = len(evs) - 1
	}
	m.selected = evs[idx].ID
}

func (m *appModel) setFocus(day model.WallTime) {
	m.focus = day.Day()
	m.clampSelection()
}

func (m appModel) selectedEvent() (model.CalendarEvent, bool) {
	if m.selected == 0 {
		return model.CalendarEvent{}, false
	}
	ev, ok := m.page.Event(m.selected)
	if !ok || !ev.Start.Before(m.focus.AddDate(0, 0, 1)) || !ev.End.After(m.focus) {
		return model.CalendarEvent{}, false
	}
	return ev, true
}

// toLogin returns to the login screen, keeping the banner that explains why.
func (m *appModel) toLogin(email string) {
	n, hadNotice := m.page.Notice()
	m.page.Reset()
	if hadNotice {
		m.page.SetNotice(n.Kind, n.Message)
	}
	m.screen = screenLogin
	m.modal = modalNone
	m.selected = 0
	m.user = model.User{}
	m.pending = 0
	m.login = newLoginForm()
	m.login.setEmail(email)
}
