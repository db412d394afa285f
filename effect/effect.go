// Package effect defines the effect descriptor: an immutable data value
// describing a side effect to perform, interpreted by the store's executor
// rather than executed inline.
//
// Effect is a closed tagged union. Each variant carries a different
// concurrency policy:
//
//   - None: no side effect
//   - Run: start immediately as an independent task
//   - Batch: start every child independently, no ordering between them
//   - Cancellable: id-keyed; a new effect with the same id supersedes the
//     in-flight one
//   - Debounced: id-keyed timer; a fresh trigger resets the timer and
//     replaces the work (last trigger wins)
//   - Throttled: id-keyed window; at most one execution per interval
//   - AfterDelay: one-shot timer, no id-based deduplication
//   - FireAndForget: runs detached and can never dispatch an action
//
// Descriptors are ephemeral: created fresh by each reducer call, consumed
// immediately by the executor, never retained.
package effect

import (
	"context"
	"time"
)

// Kind discriminates effect variants.
type Kind int

const (
	// KindNone is the absent effect. The zero Effect value is None.
	KindNone Kind = iota
	// KindRun starts the body immediately as an independent task.
	KindRun
	// KindBatch holds child effects started independently.
	KindBatch
	// KindCancellable is id-keyed; a new effect with the same id cancels the prior task.
	KindCancellable
	// KindDebounced is id-keyed; each trigger resets the pending timer.
	KindDebounced
	// KindThrottled is id-keyed; executes at most once per interval.
	KindThrottled
	// KindAfterDelay schedules a one-shot timer.
	KindAfterDelay
	// KindFireAndForget runs detached and cannot dispatch actions.
	KindFireAndForget
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRun:
		return "run"
	case KindBatch:
		return "batch"
	case KindCancellable:
		return "cancellable"
	case KindDebounced:
		return "debounced"
	case KindThrottled:
		return "throttled"
	case KindAfterDelay:
		return "after_delay"
	case KindFireAndForget:
		return "fire_and_forget"
	default:
		return "unknown"
	}
}

// RunFunc is an effect body. It may call send zero or more times before it
// settles; every sent action re-enters the store through a fresh dispatch.
// The context is cancelled when the effect is superseded or the store is
// destroyed; the body is responsible for honoring it. Returning an error
// (other than the context's) marks the task as failed; failures are logged
// at the executor boundary and never propagate to the store.
type RunFunc[A any] func(ctx context.Context, send func(A)) error

// FireFunc is a fire-and-forget body. It has no send callback: its outcome
// is observed only for logging.
type FireFunc func(ctx context.Context) error

// Effect describes a side effect as data. The zero value is None.
type Effect[A any] struct {
	kind     Kind
	id       string
	duration time.Duration
	children []Effect[A]
	run      RunFunc[A]
	fire     FireFunc
}

// None returns the absent effect.
func None[A any]() Effect[A] {
	return Effect[A]{}
}

// Run returns an effect that starts fn immediately as an independent task.
func Run[A any](fn RunFunc[A]) Effect[A] {
	return Effect[A]{kind: KindRun, run: fn}
}

// Batch merges effects into one. Children execute independently and
// concurrently with no ordering guarantee. None children are dropped and
// nested batches are flattened; a batch of zero effects is None and a batch
// of one is that effect.
func Batch[A any](effects ...Effect[A]) Effect[A] {
	flat := make([]Effect[A], 0, len(effects))
	for _, e := range effects {
		switch e.kind {
		case KindNone:
		case KindBatch:
			flat = append(flat, e.children...)
		default:
			flat = append(flat, e)
		}
	}
	switch len(flat) {
	case 0:
		return None[A]()
	case 1:
		return flat[0]
	}
	return Effect[A]{kind: KindBatch, children: flat}
}

// Cancellable returns an id-keyed effect. Starting it aborts any in-flight
// task previously registered under id; the task observes the abort through
// its context.
func Cancellable[A any](id string, fn RunFunc[A]) Effect[A] {
	return Effect[A]{kind: KindCancellable, id: id, run: fn}
}

// Debounced returns an id-keyed effect whose body runs after delay. A fresh
// trigger with the same id before the timer fires discards the previous
// scheduling entirely: the last trigger wins.
func Debounced[A any](id string, delay time.Duration, fn RunFunc[A]) Effect[A] {
	return Effect[A]{kind: KindDebounced, id: id, duration: delay, run: fn}
}

// Throttled returns an id-keyed effect that executes at most once per
// interval. The first trigger in a window runs immediately; triggers inside
// the cooling window replace the pending trailing execution, which runs once
// at the end of the window.
func Throttled[A any](id string, interval time.Duration, fn RunFunc[A]) Effect[A] {
	return Effect[A]{kind: KindThrottled, id: id, duration: interval, run: fn}
}

// AfterDelay returns an effect whose body runs after a one-shot timer.
func AfterDelay[A any](delay time.Duration, fn RunFunc[A]) Effect[A] {
	return Effect[A]{kind: KindAfterDelay, duration: delay, run: fn}
}

// FireAndForget returns an effect that runs detached. Its body has no send
// callback, so it can never dispatch an action; its error is observed only
// for logging.
func FireAndForget[A any](fn FireFunc) Effect[A] {
	return Effect[A]{kind: KindFireAndForget, fire: fn}
}

// Kind returns the variant discriminant.
func (e Effect[A]) Kind() Kind {
	return e.kind
}

// ID returns the deduplication id for Cancellable, Debounced and Throttled
// effects, and "" for the rest.
func (e Effect[A]) ID() string {
	return e.id
}

// Delay returns the timer duration for Debounced, Throttled and AfterDelay
// effects, and zero for the rest.
func (e Effect[A]) Delay() time.Duration {
	return e.duration
}

// Children returns the child effects of a Batch, nil otherwise.
func (e Effect[A]) Children() []Effect[A] {
	return e.children
}

// IsNone reports whether the effect is the absent effect.
func (e Effect[A]) IsNone() bool {
	return e.kind == KindNone
}

// Invoke runs the effect body with the given context and send callback.
// It is a no-op for variants without a body.
func (e Effect[A]) Invoke(ctx context.Context, send func(A)) error {
	if e.run == nil {
		return nil
	}
	return e.run(ctx, send)
}

// InvokeFire runs a FireAndForget body. It is a no-op for other variants.
func (e Effect[A]) InvokeFire(ctx context.Context) error {
	if e.fire == nil {
		return nil
	}
	return e.fire(ctx)
}
