package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{in: "", want: PriorityLow},
		{in: "low", want: PriorityLow},
		{in: " HIGH ", want: PriorityHigh},
		{in: "Medium", want: PriorityMedium},
		{in: "urgent", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParsePriority(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePriority(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPriorityNextWraps(t *testing.T) {
	t.Parallel()

	if got := PriorityLow.Next(); got != PriorityMedium {
		t.Fatalf("low.Next() = %q", got)
	}
	if got := PriorityHigh.Next(); got != PriorityLow {
		t.Fatalf("high.Next() = %q", got)
	}
	if got := Priority("bogus").Next(); got != PriorityMedium {
		t.Fatalf("bogus.Next() = %q (expected normalize to low first)", got)
	}
}

func TestScheduleItem_DecodesServiceShape(t *testing.T) {
	t.Parallel()

	// Minute-precision timestamps are what the service emits when seconds are zero.
	raw := `{"id":7,"title":"Meeting","type":"work","location":"Room 1","description":"weekly","startTime":"2024-01-01T09:00","endTime":"2024-01-01T10:30:00","priority":"high"}`
	var it ScheduleItem
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if it.ID != 7 || it.Title != "Meeting" || it.Priority != PriorityHigh {
		t.Fatalf("unexpected item: %+v", it)
	}
	if !it.StartTime.Equal(At(2024, time.January, 1, 9, 0)) {
		t.Fatalf("start = %s", it.StartTime)
	}
	if !it.EndTime.Equal(At(2024, time.January, 1, 10, 30)) {
		t.Fatalf("end = %s", it.EndTime)
	}
	if !it.Valid() {
		t.Fatalf("expected valid item")
	}

	b, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"startTime":"2024-01-01T09:00:00"`) {
		t.Fatalf("expected wire layout in output; got %s", b)
	}
}

func TestScheduleItem_ValidRequiresStartBeforeEnd(t *testing.T) {
	t.Parallel()

	it := ScheduleItem{
		StartTime: At(2024, time.January, 1, 9, 0),
		EndTime:   At(2024, time.January, 1, 8, 0),
	}
	if it.Valid() {
		t.Fatalf("end before start must be invalid")
	}
	it.EndTime = it.StartTime
	if it.Valid() {
		t.Fatalf("empty interval must be invalid")
	}
	if (ScheduleItem{}).Valid() {
		t.Fatalf("zero item must be invalid")
	}
}

func TestEventProjectionRoundTrip(t *testing.T) {
	t.Parallel()

	it := ScheduleItem{
		ID:          3,
		Title:       "Dentist",
		Type:        "health",
		Location:    "Clinic",
		Description: "bring card",
		StartTime:   At(2024, time.March, 2, 14, 0),
		EndTime:     At(2024, time.March, 2, 15, 0),
		Priority:    "",
	}
	ev := it.Event()
	if ev.ExtendedProps.Priority != PriorityLow {
		t.Fatalf("expected empty priority to project as low; got %q", ev.ExtendedProps.Priority)
	}
	back := ev.Item()
	it.Priority = PriorityLow
	if back != it {
		t.Fatalf("round trip mismatch:\n got: %+v\nwant: %+v", back, it)
	}
}

func TestSortEvents(t *testing.T) {
	t.Parallel()

	evs := []CalendarEvent{
		{ID: 3, Start: At(2024, 1, 2, 9, 0), End: At(2024, 1, 2, 10, 0)},
		{ID: 2, Start: At(2024, 1, 1, 9, 0), End: At(2024, 1, 1, 11, 0)},
		{ID: 1, Start: At(2024, 1, 1, 9, 0), End: At(2024, 1, 1, 10, 0)},
	}
	SortEvents(evs)
	got := []int64{evs[0].ID, evs[1].ID, evs[2].ID}
	want := []int64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestWallTime_JSONNullAndRFC3339(t *testing.T) {
	t.Parallel()

	var w WallTime
	if err := json.Unmarshal([]byte(`null`), &w); err != nil || !w.IsZero() {
		t.Fatalf("null: w=%v err=%v", w, err)
	}
	b, _ := json.Marshal(WallTime{})
	if string(b) != "null" {
		t.Fatalf("zero marshal = %s", b)
	}

	ts := time.Date(2024, 5, 6, 7, 8, 0, 0, time.Local)
	if err := json.Unmarshal([]byte(`"`+ts.Format(time.RFC3339)+`"`), &w); err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if w.ClockString() != "07:08" || w.DateString() != "2024-05-06" {
		t.Fatalf("rfc3339 converted to %s", w)
	}

	if err := json.Unmarshal([]byte(`"yesterday"`), &w); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestParseDateClock(t *testing.T) {
	t.Parallel()

	w, err := ParseDateClock("2024-02-29", "23:59")
	if err != nil {
		t.Fatalf("ParseDateClock: %v", err)
	}
	if w.String() != "2024-02-29T23:59:00" {
		t.Fatalf("got %s", w)
	}
	if _, err := ParseDateClock("2023-02-29", "10:00"); err == nil {
		t.Fatalf("expected invalid date error")
	}
	if _, err := ParseDateClock("2024-01-01", "24:00"); err == nil {
		t.Fatalf("expected invalid time error")
	}
}

func TestUserDisplayName(t *testing.T) {
	t.Parallel()

	if got := (User{FirstName: "Ada", LastName: "Lovelace"}).DisplayName(); got != "Ada Lovelace" {
		t.Fatalf("got %q", got)
	}
	if got := (User{Email: "a@b.c"}).DisplayName(); got != "a@b.c" {
		t.Fatalf("got %q", got)
	}
}
