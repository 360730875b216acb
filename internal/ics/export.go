// Package ics converts schedule items to and from iCalendar files.
package ics

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"schedule-cli/internal/model"
)

const (
	uidDomain = "schedule-cli"

	// Floating date-time: no zone, like the service's own values.
	floatingLayout = "20060102T150405"
	dateLayout     = "20060102"
	utcLayout      = "20060102T150405Z"
)

type ExportOptions struct {
	// Name is written as the calendar name.
	Name string
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// UID returns the stable iCalendar UID for an item id.
func UID(id int64) string {
	return strconv.FormatInt(id, 10) + "@" + uidDomain
}

// priorityValue maps onto the RFC 5545 1 (highest) to 9 (lowest) scale.
func priorityValue(p model.Priority) int {
	switch p.Normalize() {
	case model.PriorityHigh:
		return 1
	case model.PriorityMedium:
		return 5
	default:
		return 9
	}
}

func priorityFrom(v string) model.Priority {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	switch {
	case err != nil || n <= 0:
		return model.PriorityLow
	case n <= 4:
		return model.PriorityHigh
	case n == 5:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// Export writes items as a VCALENDAR with floating times.
func Export(w io.Writer, items []model.ScheduleItem, opts ExportOptions) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cal := ical.NewCalendarFor(uidDomain)
	cal.SetMethod(ical.MethodPublish)
	if name := strings.TrimSpace(opts.Name); name != "" {
		cal.SetName(name)
	}

	for _, it := range items {
		if !it.Valid() {
			return fmt.Errorf("export item %d: start must be before end", it.ID)
		}
		ev := cal.AddEvent(UID(it.ID))
		ev.SetProperty(ical.ComponentPropertyDtstamp, now.UTC().Format(utcLayout))
		ev.SetProperty(ical.ComponentPropertyDtStart, it.StartTime.Format(floatingLayout))
		ev.SetProperty(ical.ComponentPropertyDtEnd, it.EndTime.Format(floatingLayout))
		ev.SetSummary(it.Title)
		if it.Location != "" {
			ev.SetLocation(it.Location)
		}
		if it.Description != "" {
			ev.SetDescription(it.Description)
		}
		if it.Type != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, it.Type)
		}
		ev.SetPriority(priorityValue(it.Priority))
	}
	return cal.SerializeTo(w)
}
