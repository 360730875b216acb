// Package tui is the interactive calendar: a login screen, a week strip
// with a day agenda, and the event form, delete confirmation and account
// modals.
package tui

import (
	"context"
	"time"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/model"
	"schedule-cli/internal/session"
	"schedule-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// Backend is what the TUI needs from the schedule service.
type Backend interface {
	calendar.Service
	Session() *session.Session
	Login(ctx context.Context, creds model.Credentials) error
	Register(ctx context.Context, reg model.Registration) error
	Logout() error
	Me(ctx context.Context) (model.User, error)
	UpdateMe(ctx context.Context, upd model.UserUpdate) error
}

type Options struct {
	Backend   Backend
	Store     store.Store
	Config    *store.Config
	Snapshots calendar.Snapshots
	// Theme overrides Config.Theme (auto|light|dark).
	Theme string
	// Now is the clock; nil means the local wall clock.
	Now func() time.Time
}

func Run(opts Options) error {
	applyColorProfilePreference()
	theme := opts.Theme
	if theme == "" && opts.Config != nil {
		theme = opts.Config.Theme
	}
	applyThemePreference(theme)

	m := newAppModel(opts)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(appModel); ok {
		fm.saveState()
	}
	return err
}
