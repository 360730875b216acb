package tui

import (
	"time"

	"schedule-cli/internal/model"
)

type screen int

const (
	screenLogin screen = iota
	screenCalendar
)

type modalKind int

const (
	modalNone modalKind = iota
	modalEvent
	modalConfirmDelete
	modalSettings
)

// noticeTTL is how long a banner stays up before it dismisses itself.
const noticeTTL = 4 * time.Second

// requestTimeout bounds a single background call. The HTTP client carries
// its own, usually shorter, timeout.
const requestTimeout = time.Minute

type cachedMsg struct{ err error }

type loadedMsg struct{ err error }

type savedMsg struct {
	item model.ScheduleItem
	err  error
}

type deletedMsg struct{ err error }

type rescheduledMsg struct {
	item model.ScheduleItem
	err  error
}

type loggedInMsg struct {
	email string
	err   error
}

type registeredMsg struct {
	email string
	err   error
}

type userMsg struct {
	user model.User
	err  error
}

type userUpdatedMsg struct{ err error }

type noticeExpiredMsg struct{ seq uint64 }
