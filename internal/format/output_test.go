package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"schedule-cli/internal/model"
)

func TestWrite_JSONUsesDataEnvelope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"ok": true}, "", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if _, ok := got["data"]; !ok || len(got) != 1 {
		t.Fatalf("expected only a data key, got %s", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, "x", "yaml", false); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written, got %q", buf.String())
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	item := model.ScheduleItem{
		ID:          3,
		Title:       "Offsite",
		Type:        "work",
		Location:    "Lisbon",
		Description: "bring slides",
		StartTime:   model.At(2024, 1, 8, 22, 0),
		EndTime:     model.At(2024, 1, 9, 1, 0),
		Priority:    model.PriorityLow,
	}

	cases := []struct {
		name string
		v    any
		want []string
	}{
		{name: "empty list", v: []model.ScheduleItem{}, want: []string{"no items"}},
		{name: "list spans midnight", v: []model.ScheduleItem{item}, want: []string{"TITLE", "Offsite", "22:00-2024-01-09 01:00", "low"}},
		{name: "single item", v: &item, want: []string{"title", "Offsite", "description", "bring slides"}},
		{name: "user", v: model.User{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, want: []string{"Ada Lovelace", "ada@example.com"}},
		{name: "map sorted", v: map[string]string{"b": "2", "a": "1"}, want: []string{"a", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := WriteText(&buf, tc.v); err != nil {
				t.Fatalf("WriteText: %v", err)
			}
			out := buf.String()
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Fatalf("expected %q in:\n%s", want, out)
				}
			}
		})
	}
}
