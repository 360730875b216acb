package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"schedule-cli/internal/model"
)

// Envelope wraps every JSON payload so scripts can rely on a stable top level.
type Envelope struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default): {"data": ...}
// - text: human-readable tables and key/value blocks
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return WriteJSON(w, Envelope{Data: v}, pretty)
	case "text":
		return WriteText(w, v)
	default:
		return fmt.Errorf("unknown format: %s (expected json or text)", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// WriteText renders the payload types the CLI produces. Anything else falls
// back to indented JSON.
func WriteText(w io.Writer, v any) error {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, x)
		return err
	case []model.ScheduleItem:
		return writeItems(w, x)
	case model.ScheduleItem:
		return writeItem(w, x)
	case *model.ScheduleItem:
		if x == nil {
			return nil
		}
		return writeItem(w, *x)
	case model.User:
		return writePairs(w, [][2]string{
			{"id", fmt.Sprint(x.ID)},
			{"name", x.DisplayName()},
			{"email", x.Email},
		})
	case map[string]string:
		return writeMap(w, x)
	case map[string]any:
		m := make(map[string]string, len(x))
		for k, val := range x {
			m[k] = textValue(val)
		}
		return writeMap(w, m)
	default:
		return WriteJSON(w, v, true)
	}
}

func writeItems(w io.Writer, items []model.ScheduleItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "no items")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tPRIORITY\tTYPE\tTITLE\tLOCATION")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.StartTime.DateString(), span(it), it.Priority.Normalize(), it.Type, it.Title, it.Location)
	}
	return tw.Flush()
}

func span(it model.ScheduleItem) string {
	end := it.EndTime.ClockString()
	if !it.EndTime.SameDay(it.StartTime) {
		end = it.EndTime.DateString() + " " + end
	}
	return it.StartTime.ClockString() + "-" + end
}

func writeItem(w io.Writer, it model.ScheduleItem) error {
	pairs := [][2]string{
		{"id", fmt.Sprint(it.ID)},
		{"title", it.Title},
		{"type", it.Type},
		{"location", it.Location},
		{"start", it.StartTime.String()},
		{"end", it.EndTime.String()},
		{"priority", string(it.Priority.Normalize())},
	}
	if strings.TrimSpace(it.Description) != "" {
		pairs = append(pairs, [2]string{"description", it.Description})
	}
	return writePairs(w, pairs)
}

func writeMap(w io.Writer, m map[string]string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, m[k]})
	}
	return writePairs(w, pairs)
}

func writePairs(w io.Writer, pairs [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, p := range pairs {
		fmt.Fprintf(tw, "%s:\t%s\n", p[0], p[1])
	}
	return tw.Flush()
}

func textValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case []string:
		return strings.Join(x, ", ")
	case int, int64, bool, float64:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
