// Package exec interprets effect descriptors with the correct concurrency
// semantics: cancellation registries, debounce timers, throttle windows and
// one-shot delays. It is shared by the production store (asynchronous tasks)
// and the test store (synchronous, virtual-time execution); both drive the
// exact same bookkeeping so the two behave observably identically.
package exec

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/roach88/reflux/clock"
	"github.com/roach88/reflux/effect"
)

// Config carries executor collaborators.
type Config struct {
	// Clock backs every timer. Defaults to clock.NewSystem().
	Clock clock.Clock

	// Logger receives task failures and scheduling events.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Synchronous runs effect bodies inline on the caller's goroutine
	// instead of spawning tasks. Used by the test store, where the deliver
	// callback captures actions instead of dispatching them live.
	Synchronous bool
}

// Executor interprets effect descriptors for one store instance.
//
// All registries are instance-owned, never process-wide: each store is
// independently destructible and leaves no residual timers once Shutdown
// completes.
type Executor[A any] struct {
	clock       clock.Clock
	logger      *slog.Logger
	deliver     func(A)
	synchronous bool

	root       context.Context
	cancelRoot context.CancelFunc

	mu       sync.Mutex
	closed   bool
	cancels  map[string]*cancelEntry
	debounce map[string]clock.Timer
	throttle map[string]*throttleEntry[A]
	delays   map[string]clock.Timer

	tasks conc.WaitGroup
}

// cancelEntry pairs an in-flight task's abort handle with its identity, so a
// settling task only deregisters itself and never its successor.
type cancelEntry struct {
	cancel context.CancelFunc
	task   string
}

type throttleEntry[A any] struct {
	last       time.Time
	trailing   clock.Timer
	pending    effect.Effect[A]
	hasPending bool
}

// New creates an executor that feeds produced actions into deliver.
func New[A any](deliver func(A), cfg Config) *Executor[A] {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	root, cancelRoot := context.WithCancel(context.Background())
	return &Executor[A]{
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		deliver:     deliver,
		synchronous: cfg.Synchronous,
		root:        root,
		cancelRoot:  cancelRoot,
		cancels:     make(map[string]*cancelEntry),
		debounce:    make(map[string]clock.Timer),
		throttle:    make(map[string]*throttleEntry[A]),
		delays:      make(map[string]clock.Timer),
	}
}

// Execute interprets one effect descriptor. Safe to call from any goroutine;
// a closed executor drops the effect.
func (x *Executor[A]) Execute(e effect.Effect[A]) {
	switch e.Kind() {
	case effect.KindNone:
		return

	case effect.KindBatch:
		for _, child := range e.Children() {
			x.Execute(child)
		}

	case effect.KindRun:
		x.launch(x.root, e, uuid.NewString(), nil)

	case effect.KindFireAndForget:
		x.launchFire(e)

	case effect.KindCancellable:
		x.executeCancellable(e)

	case effect.KindDebounced:
		x.executeDebounced(e)

	case effect.KindThrottled:
		x.executeThrottled(e)

	case effect.KindAfterDelay:
		x.executeAfterDelay(e)
	}
}

// executeCancellable supersedes any in-flight task under the same id before
// starting the new one. The superseded task observes cancellation through
// its context; any action it sends afterwards is dropped.
func (x *Executor[A]) executeCancellable(e effect.Effect[A]) {
	id := e.ID()
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	if prev, ok := x.cancels[id]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(x.root)
	task := uuid.NewString()
	x.cancels[id] = &cancelEntry{cancel: cancel, task: task}
	x.mu.Unlock()

	settle := func() {
		x.mu.Lock()
		if ent, ok := x.cancels[id]; ok && ent.task == task {
			delete(x.cancels, id)
		}
		x.mu.Unlock()
		cancel()
	}
	x.launch(ctx, e, task, settle)
}

// executeDebounced clears any pending timer under the id and schedules a
// fresh one carrying this effect's body: the last trigger wins.
func (x *Executor[A]) executeDebounced(e effect.Effect[A]) {
	id := e.ID()
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return
	}
	if prev, ok := x.debounce[id]; ok {
		prev.Stop()
	}
	var timer clock.Timer
	timer = x.clock.AfterFunc(e.Delay(), func() {
		x.mu.Lock()
		if x.debounce[id] == timer {
			delete(x.debounce, id)
		}
		closed := x.closed
		x.mu.Unlock()
		if closed {
			return
		}
		x.launch(x.root, e, uuid.NewString(), nil)
	})
	x.debounce[id] = timer
}

// executeThrottled runs immediately when the interval has elapsed since the
// last run under the id, stamping the time. Triggers inside the cooling
// window replace the pending trailing execution, which runs once at the end
// of the window with the latest body.
func (x *Executor[A]) executeThrottled(e effect.Effect[A]) {
	id := e.ID()
	interval := e.Delay()

	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	now := x.clock.Now()
	ent, ok := x.throttle[id]
	if !ok {
		ent = &throttleEntry[A]{}
		x.throttle[id] = ent
	}
	if ent.last.IsZero() || now.Sub(ent.last) >= interval {
		ent.last = now
		x.mu.Unlock()
		x.launch(x.root, e, uuid.NewString(), nil)
		return
	}

	ent.pending = e
	ent.hasPending = true
	if ent.trailing == nil {
		wait := ent.last.Add(interval).Sub(now)
		ent.trailing = x.clock.AfterFunc(wait, func() {
			x.fireTrailing(id)
		})
	}
	x.mu.Unlock()
}

func (x *Executor[A]) fireTrailing(id string) {
	x.mu.Lock()
	ent, ok := x.throttle[id]
	if !ok || x.closed {
		x.mu.Unlock()
		return
	}
	ent.trailing = nil
	if !ent.hasPending {
		x.mu.Unlock()
		return
	}
	e := ent.pending
	ent.pending = effect.Effect[A]{}
	ent.hasPending = false
	ent.last = x.clock.Now()
	x.mu.Unlock()
	x.launch(x.root, e, uuid.NewString(), nil)
}

// executeAfterDelay schedules a one-shot timer with no id-based
// deduplication; each call gets its own registry key so Shutdown can stop it.
func (x *Executor[A]) executeAfterDelay(e effect.Effect[A]) {
	key := uuid.NewString()
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return
	}
	x.delays[key] = x.clock.AfterFunc(e.Delay(), func() {
		x.mu.Lock()
		delete(x.delays, key)
		closed := x.closed
		x.mu.Unlock()
		if closed {
			return
		}
		x.launch(x.root, e, uuid.NewString(), nil)
	})
}

// launch runs an effect body as a task: asynchronously in production,
// inline in synchronous mode. Failures are logged and isolated; a sibling
// effect is never affected. Cancellation-induced errors are logged at debug
// level only, since supersession is expected, not a bug.
func (x *Executor[A]) launch(ctx context.Context, e effect.Effect[A], task string, settle func()) {
	body := func() {
		defer func() {
			if r := recover(); r != nil {
				x.logger.Error("effect task panicked",
					"code", TaskPanicked,
					"task", task,
					"effect", e.Kind().String(),
					"effect_id", e.ID(),
					"panic", r,
				)
			}
			if settle != nil {
				settle()
			}
		}()

		send := func(a A) {
			if ctx.Err() != nil {
				x.logger.Debug("dropping action from cancelled task",
					"task", task,
					"effect_id", e.ID(),
				)
				return
			}
			x.deliver(a)
		}

		if err := e.Invoke(ctx, send); err != nil {
			if IsCancellation(err) || ctx.Err() != nil {
				x.logger.Debug("effect task cancelled",
					"task", task,
					"effect_id", e.ID(),
				)
				return
			}
			x.logger.Error("effect task failed",
				"code", TaskFailed,
				"effect", e.Kind().String(),
				"error", &TaskError{Code: TaskFailed, TaskID: task, EffectID: e.ID(), Err: err},
			)
		}
	}

	x.spawn(body)
}

// spawn runs a task body: inline in synchronous mode, on the task group
// otherwise. The closed check and the group registration happen under the
// same lock hold as Shutdown's closed flip, so a task is either registered
// before Shutdown waits on the group or dropped, never started after
// Shutdown returns.
func (x *Executor[A]) spawn(body func()) {
	if x.synchronous {
		if x.isClosed() {
			return
		}
		body()
		return
	}
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	x.tasks.Go(body)
	x.mu.Unlock()
}

// launchFire runs a fire-and-forget body. It has no send callback by
// construction and its error is observed only for logging.
func (x *Executor[A]) launchFire(e effect.Effect[A]) {
	task := uuid.NewString()
	body := func() {
		defer func() {
			if r := recover(); r != nil {
				x.logger.Error("effect task panicked",
					"code", TaskPanicked,
					"task", task,
					"effect", e.Kind().String(),
					"panic", r,
				)
			}
		}()
		if err := e.InvokeFire(x.root); err != nil {
			if IsCancellation(err) {
				return
			}
			x.logger.Error("fire-and-forget task failed",
				"code", TaskFailed,
				"error", &TaskError{Code: TaskFailed, TaskID: task, Err: err},
			)
		}
	}
	x.spawn(body)
}

// PendingTimers returns the number of live debounce, throttle-trailing and
// delay timers. Used by the test store to fail on unfinished timer work.
func (x *Executor[A]) PendingTimers() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := len(x.debounce) + len(x.delays)
	for _, ent := range x.throttle {
		if ent.trailing != nil {
			n++
		}
	}
	return n
}

// InFlight returns the number of registered cancellable tasks.
func (x *Executor[A]) InFlight() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.cancels)
}

// Shutdown cancels every registered abort token, stops every timer, clears
// the registries and waits for in-flight tasks to settle. Idempotent.
func (x *Executor[A]) Shutdown() {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	x.closed = true
	x.cancelRoot()
	for _, ent := range x.cancels {
		ent.cancel()
	}
	for _, t := range x.debounce {
		t.Stop()
	}
	for _, ent := range x.throttle {
		if ent.trailing != nil {
			ent.trailing.Stop()
		}
	}
	for _, t := range x.delays {
		t.Stop()
	}
	x.cancels = make(map[string]*cancelEntry)
	x.debounce = make(map[string]clock.Timer)
	x.throttle = make(map[string]*throttleEntry[A])
	x.delays = make(map[string]clock.Timer)
	x.mu.Unlock()

	x.tasks.Wait()
}

func (x *Executor[A]) isClosed() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.closed
}
