package calendar

import (
	"time"

	"schedule-cli/internal/model"
)

// Events returns a copy of the event list ordered by start.
func (p *Page) Events() []model.CalendarEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.CalendarEvent(nil), p.events...)
}

// EventsBetween returns events overlapping [from, to).
func (p *Page) EventsBetween(from, to model.WallTime) []model.CalendarEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.CalendarEvent
	for _, ev := range p.events {
		if ev.Start.Before(to) && ev.End.After(from) {
			out = append(out, ev)
		}
	}
	return out
}

// EventsOn returns events overlapping the calendar day of day.
func (p *Page) EventsOn(day model.WallTime) []model.CalendarEvent {
	d := day.Day()
	return p.EventsBetween(d, d.Add(24*time.Hour))
}

func (p *Page) Event(id int64) (model.CalendarEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := p.indexLocked(id); i >= 0 {
		return p.events[i], true
	}
	return model.CalendarEvent{}, false
}

// Loaded reports whether a live fetch has succeeded.
func (p *Page) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Stale reports whether the list comes from the snapshot cache, and when it
// was fetched.
func (p *Page) Stale() (bool, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stale, p.fetchedAt
}
