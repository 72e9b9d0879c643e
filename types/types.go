package types

import (
	"time"
)

// ProcessHandle identifies one instance of the monitored process on the device.
// A restart produces a new handle; handles are never mutated in place.
type ProcessHandle struct {
	Package   string
	PID       string
	StartedAt string
}

// IsZero reports whether the handle has not been resolved yet
func (h ProcessHandle) IsZero() bool {
	return h.PID == ""
}

// String returns a short human readable form of the handle
func (h ProcessHandle) String() string {
	if h.StartedAt == "" {
		return h.Package + "(pid " + h.PID + ")"
	}
	return h.Package + "(pid " + h.PID + ", started " + h.StartedAt + ")"
}

// RestartEvent describes a transition between two process instances
type RestartEvent struct {
	Previous   ProcessHandle
	Current    ProcessHandle
	Count      int
	ObservedAt time.Time
}
