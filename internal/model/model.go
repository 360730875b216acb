package model

import (
	"fmt"
	"sort"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the valid priorities in cycling order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority accepts low|medium|high (case-insensitive). Empty means low.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case "", PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("invalid priority %q (expected low, medium or high)", s)
	}
}

// Normalize maps unknown or empty values to low.
func (p Priority) Normalize() Priority {
	if n, err := ParsePriority(string(p)); err == nil {
		return n
	}
	return PriorityLow
}

// Next returns the following priority, wrapping from high back to low.
func (p Priority) Next() Priority {
	p = p.Normalize()
	for i, x := range Priorities {
		if x == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return PriorityLow
}

// ScheduleItem is a persisted calendar task record as exchanged with the service.
// The owning user is implied by the bearer token.
type ScheduleItem struct {
	ID          int64    `json:"id,omitempty"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	StartTime   WallTime `json:"startTime"`
	EndTime     WallTime `json:"endTime"`
	Priority    Priority `json:"priority"`
}

// Valid reports whether the item spans a non-empty interval.
func (it ScheduleItem) Valid() bool {
	if it.StartTime.IsZero() || it.EndTime.IsZero() {
		return false
	}
	return it.StartTime.Before(it.EndTime)
}

// Event projects the item into the calendar view shape.
func (it ScheduleItem) Event() CalendarEvent {
	return CalendarEvent{
		ID:    it.ID,
		Title: it.Title,
		Start: it.StartTime,
		End:   it.EndTime,
		ExtendedProps: EventProps{
			Description: it.Description,
			Type:        it.Type,
			Location:    it.Location,
			Priority:    it.Priority.Normalize(),
		},
	}
}

type EventProps struct {
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Location    string   `json:"location"`
	Priority    Priority `json:"priority"`
}

// CalendarEvent is the view-layer projection of a ScheduleItem.
type CalendarEvent struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Start         WallTime   `json:"start"`
	End           WallTime   `json:"end"`
	ExtendedProps EventProps `json:"extendedProps"`
}

// Item converts the projection back into the wire shape.
func (e CalendarEvent) Item() ScheduleItem {
	return ScheduleItem{
		ID:          e.ID,
		Title:       e.Title,
		Type:        e.ExtendedProps.Type,
		Location:    e.ExtendedProps.Location,
		Description: e.ExtendedProps.Description,
		StartTime:   e.Start,
		EndTime:     e.End,
		Priority:    e.ExtendedProps.Priority.Normalize(),
	}
}

// Events projects a list of items.
func Events(items []ScheduleItem) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(items))
	for _, it := range items {
		out = append(out, it.Event())
	}
	return out
}

// SortEvents orders events by start, then end, then id.
func SortEvents(evs []CalendarEvent) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.ID < b.ID
	})
}

type User struct {
	ID        int64  `json:"id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// UserUpdate changes the current user's profile. An empty Password leaves it unchanged.
type UserUpdate struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Password  string `json:"password,omitempty"`
}
