// Package scheduler computes absolute sampling instants and hour boundaries.
package scheduler

import (
	"math"
	"time"

	"k8s.io/utils/clock"
)

// Tick is one scheduled sampling attempt.
type Tick struct {
	Index   int64
	Target  time.Time
	Skipped int64
}

// Scheduler derives every target instant from a fixed origin, so processing
// cost never accumulates as drift. When a tick overruns, the index jumps
// forward instead of queuing catch-up samples.
type Scheduler struct {
	clock    clock.Clock
	interval time.Duration
	origin   time.Time
	next     int64
}

// New captures the origin from clk. Tick 0 is due immediately.
func New(clk clock.Clock, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		clock:    clk,
		interval: interval,
		origin:   clk.Now(),
	}
}

func (s *Scheduler) Origin() time.Time {
	return s.origin
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) target(index int64) time.Time {
	return s.origin.Add(time.Duration(index) * s.interval)
}

// Plan returns the tick that would run next if the clock read now.
func (s *Scheduler) Plan(now time.Time) Tick {
	tick := Tick{Index: s.next, Target: s.target(s.next)}
	if !now.After(tick.Target) {
		return tick
	}

	due := int64(math.Ceil(float64(now.Sub(s.origin)) / float64(s.interval)))
	if due > tick.Index {
		tick.Skipped = due - tick.Index
		tick.Index = due
		tick.Target = s.target(due)
	}
	return tick
}

// Next waits until the next target instant and commits the tick. It returns
// false without committing when done is closed first.
func (s *Scheduler) Next(done <-chan struct{}) (Tick, bool) {
	select {
	case <-done:
		return Tick{}, false
	default:
	}

	now := s.clock.Now()
	tick := s.Plan(now)
	if wait := tick.Target.Sub(now); wait > 0 {
		timer := s.clock.NewTimer(wait)
		select {
		case <-done:
			timer.Stop()
			return Tick{}, false
		case <-timer.C():
		}
	}

	s.next = tick.Index + 1
	return tick, true
}
