package report

import (
	"errors"
	"time"
)

// Window is a named report range
type Window string

const (
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowYearly  Window = "yearly"
	WindowAllTime Window = "all-time"
)

// ErrInvalidWindow is returned for an unrecognized window keyword. An empty
// keyword means all-time; anything else unknown is rejected rather than
// silently mapped to an arbitrary range.
var ErrInvalidWindow = errors.New("invalid report window")

// Range is a concrete [Start, End] date range
type Range struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow maps a window keyword to a concrete range relative to now.
// Thread the caller's clock through here; the engine never reads the wall
// clock itself, which keeps snapshots deterministic in tests.
func ResolveWindow(keyword string, now time.Time) (Window, Range, error) {
	now = now.UTC()

	switch keyword {
	case string(WindowWeekly):
		return WindowWeekly, Range{Start: now.AddDate(0, 0, -7), End: now}, nil
	case string(WindowMonthly):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return WindowMonthly, Range{Start: start, End: now}, nil
	case string(WindowYearly):
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return WindowYearly, Range{Start: start, End: now}, nil
	case "", string(WindowAllTime):
		return WindowAllTime, Range{Start: time.Unix(0, 0).UTC(), End: now}, nil
	default:
		return "", Range{}, ErrInvalidWindow
	}
}
