// Package clock provides the timing abstraction behind the effect executor.
//
// Production stores use System, which delegates to the time package. Tests
// use Virtual, which only moves when told to, so debounce, throttle and
// delay timers fire deterministically under test control.
//
// Executor code must never call platform timer APIs directly; all timing
// goes through a Clock so the test store's virtual-time advancement stays
// observably identical to the production runtime.
package clock

import "time"

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from firing.
	Stop() bool
}

// Clock schedules callbacks and reports the current time.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn to run after d. The callback may run on an
	// arbitrary goroutine (System) or synchronously inside Advance (Virtual).
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

// NewSystem returns a Clock backed by the platform's real timers.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{t: time.AfterFunc(d, fn)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) Stop() bool {
	return s.t.Stop()
}
