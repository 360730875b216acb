package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WireLayout is the zone-less layout the schedule service reads and writes.
const WireLayout = "2006-01-02T15:04:05"

var wallLayouts = []string{
	WireLayout,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// WallTime is a wall-clock date and time without a zone. The service stores
// local date times, so two clients in different zones see the same clock
// reading. The value is kept in UTC internally so arithmetic never crosses a
// DST boundary.
type WallTime struct {
	t time.Time
}

// At builds a wall time from its fields.
func At(year int, month time.Month, day, hour, min int) WallTime {
	return WallTime{t: time.Date(year, month, day, hour, min, 0, 0, time.UTC)}
}

// FromTime keeps the clock reading of t in its own location.
func FromTime(t time.Time) WallTime {
	if t.IsZero() {
		return WallTime{}
	}
	return WallTime{t: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

// Now returns the current local wall time truncated to the minute.
func Now() WallTime {
	return FromTime(time.Now()).Truncate(time.Minute)
}

// ParseWallTime accepts the wire layout, minute precision, fractional
// seconds, a space separator, or RFC3339 (converted to local wall time).
func ParseWallTime(s string) (WallTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return WallTime{}, fmt.Errorf("empty date time")
	}
	for _, layout := range wallLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return WallTime{t: t}, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return FromTime(t.In(time.Local)), nil
	}
	return WallTime{}, fmt.Errorf("invalid date time %q (expected YYYY-MM-DDTHH:MM[:SS] or RFC3339)", s)
}

// ParseDateClock combines a YYYY-MM-DD date and an HH:MM clock.
func ParseDateClock(date, clock string) (WallTime, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	d, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return WallTime{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
	}
	c, err := time.ParseInLocation("15:04", clock, time.UTC)
	if err != nil {
		return WallTime{}, fmt.Errorf("invalid time %q (expected HH:MM, 24h)", clock)
	}
	return At(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute()), nil
}

func (w WallTime) IsZero() bool { return w.t.IsZero() }

// Time returns the clock reading as a UTC time.Time.
func (w WallTime) Time() time.Time { return w.t }

// In returns the same clock reading in loc.
func (w WallTime) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(w.t.Year(), w.t.Month(), w.t.Day(), w.t.Hour(), w.t.Minute(), w.t.Second(), w.t.Nanosecond(), loc)
}

func (w WallTime) Before(o WallTime) bool { return w.t.Before(o.t) }
func (w WallTime) After(o WallTime) bool { return w.t.After(o.t) }
func (w WallTime) Equal(o WallTime) bool { return w.t.Equal(o.t) }
func (w WallTime) Sub(o WallTime) time.Duration { return w.t.Sub(o.t) }
func (w WallTime) Add(d time.Duration) WallTime { return WallTime{t: w.t.Add(d)} }
func (w WallTime) Truncate(d time.Duration) WallTime { return WallTime{t: w.t.Truncate(d)} }

func (w WallTime) AddDate(years, months, days int) WallTime {
	return WallTime{t: w.t.AddDate(years, months, days)}
}

// Day returns midnight of the same date.
func (w WallTime) Day() WallTime {
	return At(w.t.Year(), w.t.Month(), w.t.Day(), 0, 0)
}

// SameDay reports whether both values fall on the same calendar date.
func (w WallTime) SameDay(o WallTime) bool {
	y1, m1, d1 := w.t.Date()
	y2, m2, d2 := o.t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (w WallTime) Weekday() time.Weekday { return w.t.Weekday() }

func (w WallTime) Format(layout string) string { return w.t.Format(layout) }

// DateString renders YYYY-MM-DD.
func (w WallTime) DateString() string {
	if w.IsZero() {
		return ""
	}
	return w.t.Format("2006-01-02")
}

// ClockString renders HH:MM.
func (w WallTime) ClockString() string {
	if w.IsZero() {
		return ""
	}
	return w.t.Format("15:04")
}

func (w WallTime) String() string {
	if w.IsZero() {
		return ""
	}
	return w.t.Format(WireLayout)
}

func (w WallTime) MarshalJSON() ([]byte, error) {
	if w.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(w.t.Format(WireLayout))
}

func (w *WallTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || len(b) == 0 {
		*w = WallTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("wall time: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*w = WallTime{}
		return nil
	}
	v, err := ParseWallTime(s)
	if err != nil {
		return err
	}
	*w = v
	return nil
}
