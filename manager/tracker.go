package manager

import (
	"k8s.io/utils/clock"

	"github.com/dreamsxin/xperformance/types"
)

// Tracker keeps the identity of the monitored process across ticks.
// Restarts are counted by the caller. Only the session loop calls it.
type Tracker struct {
	clock   clock.PassiveClock
	current types.ProcessHandle
}

func NewTracker(clk clock.PassiveClock) *Tracker {
	return &Tracker{clock: clk}
}

// Observe records a freshly resolved handle. A pid different from the cached
// one is a restart and replaces the cached handle. The returned event has no
// Count yet.
func (t *Tracker) Observe(handle types.ProcessHandle) (types.RestartEvent, bool) {
	if t.current.IsZero() {
		t.current = handle
		return types.RestartEvent{}, false
	}
	if handle.PID == t.current.PID {
		return types.RestartEvent{}, false
	}

	event := types.RestartEvent{
		Previous:   t.current,
		Current:    handle,
		ObservedAt: t.clock.Now(),
	}
	t.current = handle
	return event, true
}

// Current returns the cached handle.
func (t *Tracker) Current() types.ProcessHandle {
	return t.current
}
