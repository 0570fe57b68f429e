package graph

import (
	"fmt"
	"strings"
	"time"
)

const day = 24 * time.Hour

// FromEpochMillis converts a Roam-style millisecond timestamp to UTC. Zero
// and negative values mean "absent".
func FromEpochMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values carrying a zone are
// converted to UTC; values without one are read as UTC, never local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Earliest returns the minimum of the non-zero candidates, or zero when none
// is present.
func Earliest(candidates ...time.Time) time.Time {
	var earliest time.Time
	for _, t := range candidates {
		if t.IsZero() {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest
}

// DaysBetween returns to-from in fractional days, and false when either
// side is unknown.
func DaysBetween(from, to time.Time) (float64, bool) {
	if from.IsZero() || to.IsZero() {
		return 0, false
	}
	return float64(to.Sub(from)) / float64(day), true
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
