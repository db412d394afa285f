// Package reflux is a reducer-effect runtime: a state-machine execution
// engine that threads every state mutation through a pure reducer and
// represents every side effect as an inert data value interpreted by a
// concurrency-aware executor.
//
// The runtime is split into small packages:
//
//   - effect: the effect descriptor algebra (data-valued side effects)
//   - clock: injectable timing (real timers and a virtual test clock)
//   - store: the production store driving dispatch/commit/notify/execute
//   - compose: pure reducer composition (Scope, IfLet, Combine)
//   - teststore: a deterministic, inspectable store for tests
//   - record: an optional SQLite action journal with replay
//   - scenario: declarative YAML scenarios with golden-file traces
//
// Reducers are pure: for the same (state, action, deps) inputs they return
// the same (state, effect) pair and never mutate their inputs. State flows
// only through the store; effects re-enter the system exclusively via a new
// dispatch call, so the committed state after any single dispatch is always
// fully consistent.
package reflux

import "github.com/roach88/reflux/effect"

// Reducer computes the next state and an effect from the current state and a
// single action. The deps value carries injected collaborators (clock,
// network client, storage) owned by whoever constructed the store.
//
// A reducer must be total over its action type: an action it does not react
// to returns the state unchanged with effect.None. Reducers must not mutate
// state or deps, and must not dispatch synchronously; new actions are
// produced only through the returned effect.
type Reducer[S, A, D any] func(state S, action A, deps D) (S, effect.Effect[A])
