// Package store provides the production store: it owns the current state
// and drives the dispatch → reduce → commit → notify → execute-effect cycle.
//
// Dispatch is synchronous end-to-end for the reducer/commit/notify portion
// and serialized by a single-writer lock, so the committed state after any
// single dispatch is always fully consistent. Side effects run as
// asynchronous tasks and re-enter the system only via a new Dispatch call,
// which serializes strictly after the triggering commit.
package store

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/roach88/reflux"
	"github.com/roach88/reflux/internal/exec"
)

// Store owns one state value and the registries backing its effects.
// S is the state, A the action union, D the dependency bag.
type Store[S, A, D any] struct {
	reducer reflux.Reducer[S, A, D]
	deps    D

	dispatchMu sync.Mutex // single-writer dispatch lock
	stateMu    sync.RWMutex
	state      S

	subMu   sync.Mutex
	subs    []subscriber[S]
	nextSub int

	exec      *exec.Executor[A]
	opts      options
	destroyed atomic.Bool
}

type subscriber[S any] struct {
	id int
	fn func(S)
}

// New constructs a store with the given initial state, reducer and
// dependency bag. Options configure the clock, logger and recorder.
func New[S, A, D any](initial S, reducer reflux.Reducer[S, A, D], deps D, opts ...Option) *Store[S, A, D] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store[S, A, D]{
		reducer: reducer,
		deps:    deps,
		state:   initial,
		opts:    o,
	}
	s.exec = exec.New[A](s.Dispatch, exec.Config{
		Clock:  o.clock,
		Logger: o.logger,
	})
	return s
}

// Dispatch feeds one action through the reducer, commits the returned state,
// notifies subscribers on change, and hands the returned effect to the
// executor. It must not be called re-entrantly from a reducer or a
// subscriber callback; effect bodies dispatch from their own goroutines,
// which serializes here after the triggering commit.
//
// Reducer panics are not caught: a non-total reducer is a developer error
// and propagates to the caller. Dispatching after Destroy drops the action.
func (s *Store[S, A, D]) Dispatch(action A) {
	if s.destroyed.Load() {
		s.opts.logger.Warn("dispatch on destroyed store dropped",
			"action", fmt.Sprintf("%T", action),
		)
		return
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	if s.destroyed.Load() {
		return
	}

	next, eff := s.reducer(s.state, action, s.deps)

	changed := !reflect.DeepEqual(s.state, next)
	if changed {
		s.stateMu.Lock()
		s.state = next
		s.stateMu.Unlock()
	}

	if s.opts.recorder != nil {
		// Journal failures never fail the dispatch.
		if err := s.opts.recorder.Record(action); err != nil {
			s.opts.logger.Error("action record failed", "error", err)
		}
	}

	if changed {
		s.notify(next)
	}

	s.exec.Execute(eff)
}

// State returns the current committed state, never a mid-transition value.
func (s *Store[S, A, D]) State() S {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Subscribe registers a listener invoked after every committed state change
// with the new state. Listeners are invoked in registration order. A
// listener registered during a dispatch observes only later commits.
// The returned function removes the listener; it is idempotent.
func (s *Store[S, A, D]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber[S]{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store[S, A, D]) notify(state S) {
	s.subMu.Lock()
	snapshot := make([]subscriber[S], len(s.subs))
	copy(snapshot, s.subs)
	s.subMu.Unlock()

	for _, sub := range snapshot {
		sub.fn(state)
	}
}

// Destroy cancels every registered timer and abort token, waits for
// in-flight effect tasks to settle, and clears the subscriber set. Destroy
// is terminal and idempotent; dispatches after Destroy are dropped.
func (s *Store[S, A, D]) Destroy() {
	if !s.destroyed.CompareAndSwap(false, true) {
		return
	}
	s.exec.Shutdown()

	s.subMu.Lock()
	s.subs = nil
	s.subMu.Unlock()
}
