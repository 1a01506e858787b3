package config

import (
	"fmt"
	"time"
)

// Window is a daily wall-clock interval [Start, End) during which the
// panels show content. Windows may cross midnight (start after end).
type Window struct {
	start int // minutes since midnight
	end   int
}

// ParseWindow parses "HH:MM" bounds.
func ParseWindow(start, end string) (Window, error) {
	s, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("start %q: %w", start, err)
	}
	e, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("end %q: %w", end, err)
	}
	return Window{start: s, end: e}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether t's wall-clock time falls inside the window.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	if w.start < w.end {
		return w.start <= m && m < w.end
	}
	// Crosses midnight (or degenerate equal bounds: always active).
	return m >= w.start || m < w.end
}
