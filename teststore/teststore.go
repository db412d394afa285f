// Package teststore provides a deterministic, inspectable store for tests.
//
// A TestStore drives the same reducer/effect contract as the production
// store, but effects do not run freely: effect bodies execute synchronously
// with a send callback that captures would-be dispatched actions onto a
// pending queue. Tests then assert the exact sequence with Receive, and
// drive debounce/throttle/delay timers with AdvanceTime over a virtual
// clock. The bookkeeping is the same executor the production store uses, so
// the two behave observably identically.
package teststore

import (
	"io"
	"log/slog"
	"reflect"
	"time"

	"github.com/roach88/reflux"
	"github.com/roach88/reflux/clock"
	"github.com/roach88/reflux/internal/exec"
)

// TB is the subset of testing.TB the TestStore reports through. Satisfied
// by *testing.T; the scenario harness substitutes a recording implementation.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// TestStore is a synchronous store for asserting exact state transitions
// and exact effect-produced actions.
//
// Exhaustivity is on by default: every effect-produced action must be
// observed with Receive, and Finish fails on anything left over. Turn it
// off with SetExhaustivity(false) to partially assert long flows.
type TestStore[S, A, D any] struct {
	t       TB
	reducer reflux.Reducer[S, A, D]
	deps    D
	state   S

	clk        *clock.Virtual
	exec       *exec.Executor[A]
	pending    []A
	exhaustive bool
}

// New constructs a TestStore. Failures are reported on t at the call site
// that detects them.
func New[S, A, D any](t TB, initial S, reducer reflux.Reducer[S, A, D], deps D) *TestStore[S, A, D] {
	ts := &TestStore[S, A, D]{
		t:          t,
		reducer:    reducer,
		deps:       deps,
		state:      initial,
		clk:        clock.NewVirtual(),
		exhaustive: true,
	}
	ts.exec = exec.New[A](ts.capture, exec.Config{
		Clock:       ts.clk,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Synchronous: true,
	})
	return ts
}

// capture receives actions from effect bodies instead of a live dispatch.
func (ts *TestStore[S, A, D]) capture(action A) {
	ts.pending = append(ts.pending, action)
}

// Send performs one dispatch cycle. Effect bodies run synchronously and
// their actions land on the pending queue rather than re-entering the
// reducer. Each assert function receives the committed state.
//
// In exhaustive mode, sending with unreceived actions outstanding is a
// failure: assert the pending flow first.
func (ts *TestStore[S, A, D]) Send(action A, assert ...func(S)) {
	ts.t.Helper()
	if ts.exhaustive && len(ts.pending) > 0 {
		ts.t.Fatalf("send %+v: %d unreceived action(s) pending: %+v", action, len(ts.pending), ts.pending)
		return
	}
	ts.step(action, assert)
}

// Receive pops the next pending action, fails if it does not match, and
// runs it through the reducer exactly as a live dispatch would.
func (ts *TestStore[S, A, D]) Receive(match func(A) bool, assert ...func(S)) {
	ts.t.Helper()
	if len(ts.pending) == 0 {
		ts.t.Fatalf("receive: no pending actions")
		return
	}
	head := ts.pending[0]
	if !match(head) {
		ts.t.Fatalf("receive: next pending action %+v does not match", head)
		return
	}
	ts.pending = ts.pending[1:]
	ts.step(head, assert)
}

// ReceiveAction is Receive with deep-equality matching against want.
func (ts *TestStore[S, A, D]) ReceiveAction(want A, assert ...func(S)) {
	ts.t.Helper()
	if len(ts.pending) == 0 {
		ts.t.Fatalf("receive: no pending actions, want %+v", want)
		return
	}
	head := ts.pending[0]
	if !reflect.DeepEqual(head, want) {
		ts.t.Fatalf("receive: got %+v, want %+v", head, want)
		return
	}
	ts.pending = ts.pending[1:]
	ts.step(head, assert)
}

func (ts *TestStore[S, A, D]) step(action A, assert []func(S)) {
	next, eff := ts.reducer(ts.state, action, ts.deps)
	ts.state = next
	ts.exec.Execute(eff)
	for _, fn := range assert {
		fn(ts.state)
	}
}

// AdvanceTime moves the virtual clock forward, firing due debounce,
// throttle and delay timers. Fired bodies run synchronously and their
// actions join the pending queue in firing order.
func (ts *TestStore[S, A, D]) AdvanceTime(d time.Duration) {
	ts.clk.Advance(d)
}

// State returns the current state.
func (ts *TestStore[S, A, D]) State() S {
	return ts.state
}

// PendingActions returns a copy of the unreceived action queue.
func (ts *TestStore[S, A, D]) PendingActions() []A {
	out := make([]A, len(ts.pending))
	copy(out, ts.pending)
	return out
}

// SetExhaustivity toggles exhaustive assertion. On (the default), every
// pending action must be received and Finish fails on leftovers; off
// permits partial assertion of long flows.
func (ts *TestStore[S, A, D]) SetExhaustivity(on bool) {
	ts.exhaustive = on
}

// AssertNoPendingActions fails if any effect-produced action was left
// unobserved, regardless of the exhaustivity mode.
func (ts *TestStore[S, A, D]) AssertNoPendingActions() {
	ts.t.Helper()
	if len(ts.pending) > 0 {
		ts.t.Fatalf("%d unreceived action(s) pending: %+v", len(ts.pending), ts.pending)
	}
}

// Finish is the terminal assertion: in exhaustive mode it fails on
// unreceived pending actions and on timers still scheduled.
func (ts *TestStore[S, A, D]) Finish() {
	ts.t.Helper()
	if !ts.exhaustive {
		return
	}
	if len(ts.pending) > 0 {
		ts.t.Fatalf("finish: %d unreceived action(s) pending: %+v", len(ts.pending), ts.pending)
		return
	}
	if n := ts.exec.PendingTimers(); n > 0 {
		ts.t.Fatalf("finish: %d timer(s) still scheduled; advance time or receive their actions", n)
	}
}
