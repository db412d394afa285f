package clock

import (
	"container/heap"
	"sync"
	"time"
)

// virtualEpoch is the fixed starting instant of every Virtual clock.
// A fixed epoch keeps scheduled times (and therefore traces) reproducible.
var virtualEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Virtual is a test-controlled Clock. Time only moves inside Advance, which
// fires due timers synchronously in schedule order (earlier deadline first,
// creation order breaking ties). Callbacks may schedule further timers; a
// timer scheduled by a firing callback fires within the same Advance call
// if its deadline falls inside the advanced window.
//
// Thread-safety: all methods are safe for concurrent use, though tests
// normally drive a Virtual clock from a single goroutine.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int64
	timers timerHeap
}

// NewVirtual returns a Virtual clock at the fixed epoch with no timers.
func NewVirtual() *Virtual {
	return &Virtual{now: virtualEpoch}
}

// Now returns the current virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// AfterFunc schedules fn at now+d. A non-positive d schedules fn at the
// current instant; it still fires only on the next Advance call.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	t := &virtualTimer{
		v:    v,
		when: v.now.Add(d),
		seq:  v.seq,
		fn:   fn,
	}
	heap.Push(&v.timers, t)
	return t
}

// Advance moves virtual time forward by d, firing every timer whose deadline
// falls inside the window. Each callback runs synchronously with the clock
// set to its own deadline, so cascading timers observe consistent times.
func (v *Virtual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	v.mu.Lock()
	target := v.now.Add(d)
	for {
		t := v.nextDueLocked(target)
		if t == nil {
			v.now = target
			v.mu.Unlock()
			return
		}
		v.now = t.when
		fn := t.fn
		v.mu.Unlock()
		fn()
		v.mu.Lock()
	}
}

// nextDueLocked pops the earliest live timer due at or before target.
// Stopped timers are discarded lazily.
func (v *Virtual) nextDueLocked(target time.Time) *virtualTimer {
	for v.timers.Len() > 0 {
		top := v.timers[0]
		if top.when.After(target) {
			return nil
		}
		heap.Pop(&v.timers)
		if top.stopped {
			continue
		}
		top.fired = true
		return top
	}
	return nil
}

// PendingTimers returns the number of scheduled, unfired, unstopped timers.
func (v *Virtual) PendingTimers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, t := range v.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type virtualTimer struct {
	v       *Virtual
	when    time.Time
	seq     int64
	fn      func()
	stopped bool
	fired   bool
}

func (t *virtualTimer) Stop() bool {
	t.v.mu.Lock()
	defer t.v.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// timerHeap orders timers by (deadline, creation sequence).
type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*virtualTimer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
