package calendar

import "time"

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is the dismissible banner shown above the calendar. Seq increases
// with every new notice so a delayed auto-dismiss can tell whether it still
// refers to the banner on screen.
type Notice struct {
	Kind    NoticeKind
	Message string
	At      time.Time
	Seq     uint64
}
