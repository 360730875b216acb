package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"schedule-cli/internal/model"
)

func window() ImportOptions {
	return ImportOptions{From: model.At(2024, 1, 1, 0, 0), To: model.At(2024, 2, 1, 0, 0)}
}

func TestExportImportPreservesFields(t *testing.T) {
	t.Parallel()

	items := []model.ScheduleItem{
		{
			ID:          7,
			Title:       "Planning, Q1",
			Type:        "work",
			Location:    "Room 1; east wing",
			Description: "line one\nline two",
			StartTime:   model.At(2024, 1, 8, 9, 0),
			EndTime:     model.At(2024, 1, 8, 10, 30),
			Priority:    model.PriorityHigh,
		},
		{
			ID:        8,
			Title:     "Gym",
			Type:      "health",
			Location:  "Club",
			StartTime: model.At(2024, 1, 9, 18, 0),
			EndTime:   model.At(2024, 1, 9, 19, 0),
			Priority:  model.PriorityMedium,
		},
	}

	var buf bytes.Buffer
	if err := Export(&buf, items, ExportOptions{Name: "Mine", Now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"UID:7@schedule-cli", "DTSTART:20240108T090000", "CATEGORIES:work", "PRIORITY:1", "PRIORITY:5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in export:\n%s", want, out)
		}
	}

	res, err := Import(strings.NewReader(out), window())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Items) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected import result: %+v", res)
	}
	for i, got := range res.Items {
		want := items[i]
		want.ID = 0
		if got != want {
			t.Fatalf("item %d mismatch:\n got %+v\nwant %+v", i, got, want)
		}
	}
}

const recurring = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:weekly-1
DTSTAMP:20240101T000000Z
DTSTART:20240101T090000
DURATION:PT30M
RRULE:FREQ=WEEKLY;COUNT=10
EXDATE:20240115T090000
SUMMARY:Standup
CATEGORIES:work,team
PRIORITY:3
END:VEVENT
BEGIN:VEVENT
UID:allday-1
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240120
END:VEVENT
BEGIN:VEVENT
UID:override-1
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240108T090000
DTSTART:20240108T100000
SUMMARY:Moved standup
END:VEVENT
BEGIN:VEVENT
UID:broken-1
DTSTAMP:20240101T000000Z
SUMMARY:No start
END:VEVENT
END:VCALENDAR
`

func TestImportExpandsRecurrenceWithinWindow(t *testing.T) {
	t.Parallel()

	res, err := Import(strings.NewReader(strings.ReplaceAll(recurring, "\n", "\r\n")), window())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	var weekly, allDay []model.ScheduleItem
	for _, it := range res.Items {
		if it.Title == "Standup" {
			weekly = append(weekly, it)
		} else {
			allDay = append(allDay, it)
		}
	}
	// Jan 1, 8, 22, 29 (15th excluded); Feb is outside the window.
	if len(weekly) != 4 {
		t.Fatalf("expected 4 weekly instances; got %d: %+v", len(weekly), weekly)
	}
	for _, it := range weekly {
		if it.StartTime.Day().Equal(model.At(2024, 1, 15, 0, 0)) {
			t.Fatalf("EXDATE instance must be skipped")
		}
		if it.EndTime.Sub(it.StartTime) != 30*time.Minute || it.Type != "work" || it.Priority != model.PriorityHigh {
			t.Fatalf("unexpected instance: %+v", it)
		}
	}

	if len(allDay) != 1 {
		t.Fatalf("expected one all-day item; got %+v", allDay)
	}
	ad := allDay[0]
	if !ad.StartTime.Equal(model.At(2024, 1, 20, 0, 0)) || !ad.EndTime.Equal(model.At(2024, 1, 21, 0, 0)) {
		t.Fatalf("all-day span = %s..%s", ad.StartTime, ad.EndTime)
	}
	if ad.Title != "(untitled)" || ad.Type != "event" || ad.Location != "-" || ad.Priority != model.PriorityLow {
		t.Fatalf("expected defaults; got %+v", ad)
	}

	if len(res.Skipped) != 2 {
		t.Fatalf("expected override and broken event skipped; got %+v", res.Skipped)
	}
}

func TestImportCapsOccurrences(t *testing.T) {
	t.Parallel()

	src := strings.ReplaceAll(recurring, "COUNT=10", "COUNT=1000")
	src = strings.ReplaceAll(src, "FREQ=WEEKLY", "FREQ=DAILY")
	opts := window()
	opts.MaxOccurrences = 5
	res, err := Import(strings.NewReader(src), opts)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Truncated) != 1 || res.Truncated[0] != "weekly-1" {
		t.Fatalf("expected truncation reported; got %+v", res.Truncated)
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"PT1H30M": 90 * time.Minute,
		"P1D":     24 * time.Hour,
		"P1W":     7 * 24 * time.Hour,
		"PT45S":   45 * time.Second,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		if err != nil || got != want {
			t.Fatalf("parseDuration(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "P", "1H", "-PT1H"} {
		if _, err := parseDuration(bad); err == nil {
			t.Fatalf("parseDuration(%q): expected error", bad)
		}
	}
}

func TestImportRejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	_, err := Import(strings.NewReader(recurring), ImportOptions{From: model.At(2024, 2, 1, 0, 0), To: model.At(2024, 1, 1, 0, 0)})
	if err == nil {
		t.Fatalf("expected error")
	}
}
