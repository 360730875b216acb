package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"schedule-cli/internal/model"
)

var (
	reDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDaySpan  = regexp.MustCompile(`^([+-]?)(\d+)([dw])$`)
)

// parseWhen parses:
// - YYYY-MM-DD (midnight)
// - YYYY-MM-DD HH:MM or YYYY-MM-DDTHH:MM[:SS] (wall clock)
// - RFC3339 (converted to local wall clock)
func parseWhen(s string) (model.WallTime, error) {
	s = strings.TrimSpace(s)
	if reDateOnly.MatchString(s) {
		return model.ParseDateClock(s, "00:00")
	}
	return model.ParseWallTime(s)
}

// parseBound is parseWhen for range flags. A date-only upper bound covers
// the whole day.
func parseBound(s string, upper bool) (model.WallTime, error) {
	w, err := parseWhen(s)
	if err != nil {
		return w, err
	}
	if upper && reDateOnly.MatchString(strings.TrimSpace(s)) {
		w = w.AddDate(0, 0, 1)
	}
	return w, nil
}

// parseSpan accepts Go durations (90m, -1h30m) plus whole days and weeks
// (2d, -1w).
func parseSpan(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if m := reDaySpan.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return 0, fmt.Errorf("invalid span %q", s)
		}
		d := time.Duration(n) * 24 * time.Hour
		if m[3] == "w" {
			d *= 7
		}
		if m[1] == "-" {
			d = -d
		}
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid span %q (expected e.g. 30m, 2h, 1d, -1w)", s)
	}
	return d, nil
}
