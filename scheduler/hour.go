package scheduler

import (
	"time"
)

// HourWatch fires at most once per calendar-hour transition.
type HourWatch struct {
	last time.Time
}

// NewHourWatch starts watching from the hour containing start.
func NewHourWatch(start time.Time) *HourWatch {
	return &HourWatch{last: hourOf(start)}
}

func hourOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// Crossed reports whether an hourly export is due at now. The new hour is
// only recorded when eligible, so a transition seen with too little data is
// retried on later ticks of the same hour.
func (w *HourWatch) Crossed(now time.Time, eligible bool) bool {
	h := hourOf(now)
	if h.Equal(w.last) || !eligible {
		return false
	}
	w.last = h
	return true
}

// Hour returns the hour of the last export, or the start hour.
func (w *HourWatch) Hour() time.Time {
	return w.last
}
