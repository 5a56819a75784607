package miner

import (
	"fmt"
	"time"
)

const (
	dateLayout        = "2006-01-02"
	defaultWindowDays = 5
)

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the window covering the n days before now, up to now.
func LastDays(n int, now time.Time) Window {
	if n <= 0 {
		n = defaultWindowDays
	}
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}

// ParseWindow parses YYYY-MM-DD bounds.
func ParseWindow(start, end string) (Window, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return Window{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return Window{Start: s, End: e}, nil
}

// IsZero reports whether both bounds are unset.
func (w Window) IsZero() bool { return w.Start.IsZero() && w.End.IsZero() }

func (w Window) orDefault(now time.Time) Window {
	if w.IsZero() {
		return LastDays(defaultWindowDays, now)
	}
	if w.End.IsZero() {
		w.End = now
	}
	return w
}

func (w Window) String() string {
	return w.Start.Format(dateLayout) + ".." + w.End.Format(dateLayout)
}
