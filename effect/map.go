package effect

import "context"

// Map rewrites every action an effect would eventually produce by applying
// f, recursively through Batch. It is the functor transform that lets a
// child reducer's Effect[ChildAction] become an Effect[ParentAction] without
// the executor knowing about parent/child relationships.
//
// None and FireAndForget carry no actions, so Map only re-tags them. The
// remaining variants keep their id and timing and wrap the body's send
// callback.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	switch e.kind {
	case KindNone:
		return None[B]()

	case KindFireAndForget:
		return Effect[B]{kind: KindFireAndForget, fire: e.fire}

	case KindBatch:
		children := make([]Effect[B], len(e.children))
		for i, child := range e.children {
			children[i] = Map(child, f)
		}
		return Effect[B]{kind: KindBatch, children: children}

	default:
		// Run, Cancellable, Debounced, Throttled, AfterDelay: same shape,
		// send rewritten through f.
		return Effect[B]{
			kind:     e.kind,
			id:       e.id,
			duration: e.duration,
			run:      mapRun(e.run, f),
		}
	}
}

func mapRun[A, B any](run RunFunc[A], f func(A) B) RunFunc[B] {
	if run == nil {
		return nil
	}
	return func(ctx context.Context, send func(B)) error {
		return run(ctx, func(a A) {
			send(f(a))
		})
	}
}
