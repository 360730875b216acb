package ics

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"schedule-cli/internal/log"
	"schedule-cli/internal/model"
)

const (
	defaultMaxOccurrences = 500

	defaultTitle    = "(untitled)"
	defaultType     = "event"
	defaultLocation = "-"

	maxTitleLen    = 100
	maxTypeLen     = 50
	maxLocationLen = 100
)

type ImportOptions struct {
	// From and To bound recurrence expansion. Single events are always kept.
	From model.WallTime
	To   model.WallTime

	// MaxOccurrences caps the instances produced per recurring event.
	MaxOccurrences int
}

type Skipped struct {
	UID    string
	Reason string
}

type Result struct {
	Items     []model.ScheduleItem
	Skipped   []Skipped
	Truncated []string
}

// Import reads VEVENTs and returns items ready to create. Recurring events
// are expanded within [From, To]; all-day events span midnight to midnight.
func Import(r io.Reader, opts ImportOptions) (Result, error) {
	var res Result
	if opts.To.Before(opts.From) {
		return res, errors.New("import window ends before it starts")
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}

	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return res, fmt.Errorf("parse calendar: %w", err)
	}

	for _, ve := range cal.Events() {
		uid := propValue(ve, ical.ComponentPropertyUniqueId)
		if ve.GetProperty(ical.ComponentPropertyRecurrenceId) != nil {
			res.Skipped = append(res.Skipped, Skipped{UID: uid, Reason: "recurrence override"})
			continue
		}
		ev, err := parseEvent(ve)
		if err != nil {
			log.Warn("skip vevent", "uid", uid, "err", err)
			res.Skipped = append(res.Skipped, Skipped{UID: uid, Reason: err.Error()})
			continue
		}
		if ev.rrule == "" {
			res.Items = append(res.Items, ev.item(ev.start, ev.end))
			continue
		}
		items, truncated, err := ev.expand(opts)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{UID: uid, Reason: err.Error()})
			continue
		}
		if truncated {
			res.Truncated = append(res.Truncated, uid)
		}
		res.Items = append(res.Items, items...)
	}
	log.Debug("ics import parsed", "items", len(res.Items), "skipped", len(res.Skipped))
	return res, nil
}

type parsedEvent struct {
	uid         string
	title       string
	typ         string
	location    string
	description string
	priority    model.Priority
	start       model.WallTime
	end         model.WallTime
	allDay      bool
	rrule       string
	exdates     []model.WallTime
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func param(prop *ical.IANAProperty, name string) string {
	if prop == nil || prop.ICalParameters == nil {
		return ""
	}
	if vs := prop.ICalParameters[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func parseEvent(ve *ical.VEvent) (parsedEvent, error) {
	ev := parsedEvent{
		uid:         propValue(ve, ical.ComponentPropertyUniqueId),
		title:       propValue(ve, ical.ComponentPropertySummary),
		location:    propValue(ve, ical.ComponentPropertyLocation),
		description: propValue(ve, ical.ComponentPropertyDescription),
		priority:    priorityFrom(propValue(ve, ical.ComponentPropertyPriority)),
		rrule:       propValue(ve, ical.ComponentPropertyRrule),
	}
	if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
		ev.typ = strings.TrimSpace(strings.Split(cats, ",")[0])
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return ev, errors.New("missing DTSTART")
	}
	start, allDay, err := parseTimeProp(startProp)
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}
	ev.start, ev.allDay = start, allDay

	switch endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case endProp != nil:
		end, _, err := parseTimeProp(endProp)
		if err != nil {
			return ev, fmt.Errorf("DTEND: %w", err)
		}
		ev.end = end
	case propValue(ve, ical.ComponentPropertyDuration) != "":
		d, err := parseDuration(propValue(ve, ical.ComponentPropertyDuration))
		if err != nil {
			return ev, fmt.Errorf("DURATION: %w", err)
		}
		ev.end = start.Add(d)
	case allDay:
		ev.end = start.AddDate(0, 0, 1)
	default:
		ev.end = start.Add(time.Hour)
	}
	if !ev.start.Before(ev.end) {
		return ev, errors.New("event ends before it starts")
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, _, err := parseTimeValue(part, param(p, "TZID"), param(p, "VALUE")); err == nil {
				ev.exdates = append(ev.exdates, t)
			}
		}
	}
	return ev, nil
}

func parseTimeProp(p *ical.IANAProperty) (model.WallTime, bool, error) {
	return parseTimeValue(p.Value, param(p, "TZID"), param(p, "VALUE"))
}

// parseTimeValue reads DATE, floating DATE-TIME, UTC and TZID forms and
// returns the local wall-clock reading.
func parseTimeValue(v, tzid, valueType string) (model.WallTime, bool, error) {
	v = strings.TrimSpace(v)
	if strings.EqualFold(valueType, "DATE") || (len(v) == len(dateLayout) && !strings.Contains(v, "T")) {
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return model.WallTime{}, true, err
		}
		return model.FromTime(t), true, nil
	}
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(utcLayout, v)
		if err != nil {
			return model.WallTime{}, false, err
		}
		return model.FromTime(t.In(time.Local)), false, nil
	}
	if tzid != "" {
		loc, err := time.LoadLocation(tzid)
		if err == nil {
			t, err := time.ParseInLocation(floatingLayout, v, loc)
			if err != nil {
				return model.WallTime{}, false, err
			}
			return model.FromTime(t.In(time.Local)), false, nil
		}
	}
	t, err := time.ParseInLocation(floatingLayout, v, time.UTC)
	if err != nil {
		return model.WallTime{}, false, err
	}
	return model.FromTime(t), false, nil
}

var durationRe = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseDuration reads an RFC 5545 DURATION such as PT1H30M or P1D.
func parseDuration(s string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+2] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+2])
		d += time.Duration(n) * u
	}
	if m[1] == "-" {
		d = -d
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func (ev parsedEvent) expand(opts ImportOptions) ([]model.ScheduleItem, bool, error) {
	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		return nil, false, fmt.Errorf("RRULE: %w", err)
	}
	// Wall times are held in UTC, so expansion never crosses a DST shift.
	r.DTStart(ev.start.Time())

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exdates {
		set.ExDate(ex.Time())
	}

	dur := ev.end.Sub(ev.start)
	// Include instances that started before the window but still overlap it.
	occ := set.Between(opts.From.Time().Add(-dur), opts.To.Time(), true)
	truncated := false
	if len(occ) > opts.MaxOccurrences {
		occ = occ[:opts.MaxOccurrences]
		truncated = true
	}

	out := make([]model.ScheduleItem, 0, len(occ))
	for _, t := range occ {
		start := model.FromTime(t)
		out = append(out, ev.item(start, start.Add(dur)))
	}
	return out, truncated, nil
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func (ev parsedEvent) item(start, end model.WallTime) model.ScheduleItem {
	return model.ScheduleItem{
		Title:       clip(orDefault(ev.title, defaultTitle), maxTitleLen),
		Type:        clip(orDefault(ev.typ, defaultType), maxTypeLen),
		Location:    clip(orDefault(ev.location, defaultLocation), maxLocationLen),
		Description: ev.description,
		StartTime:   start,
		EndTime:     end,
		Priority:    ev.priority,
	}
}
