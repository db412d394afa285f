package compose

import (
	"reflect"
	"sort"

	"github.com/roach88/reflux"
	"github.com/roach88/reflux/effect"
)

// Combine runs every child reducer against the same action and dependencies,
// threading each into its own slice of a map-shaped state.
//
// Children are evaluated in sorted key order for determinism. When no child
// changed its slice, Combine returns the exact same top-level map reference,
// not a structurally equal copy, so reference-equality optimizations
// upstream keep working. All non-None child effects are batched.
func Combine[A, D any](children map[string]reflux.Reducer[any, A, D]) reflux.Reducer[map[string]any, A, D] {
	keys := make([]string, 0, len(children))
	for key := range children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return func(state map[string]any, action A, deps D) (map[string]any, effect.Effect[A]) {
		var (
			changes map[string]any
			effects []effect.Effect[A]
		)
		for _, key := range keys {
			slice := state[key]
			next, eff := children[key](slice, action, deps)
			if !eff.IsNone() {
				effects = append(effects, eff)
			}
			if !reflect.DeepEqual(slice, next) {
				if changes == nil {
					changes = make(map[string]any, len(children))
				}
				changes[key] = next
			}
		}

		if changes == nil {
			return state, effect.Batch(effects...)
		}

		merged := make(map[string]any, len(state)+len(changes))
		for key, value := range state {
			merged[key] = value
		}
		for key, value := range changes {
			merged[key] = value
		}
		return merged, effect.Batch(effects...)
	}
}

// Lift adapts a typed slice reducer for use with Combine. An absent or
// differently typed slice value reduces from the zero state, keeping the
// composed reducer total.
func Lift[S, A, D any](r reflux.Reducer[S, A, D]) reflux.Reducer[any, A, D] {
	return func(state any, action A, deps D) (any, effect.Effect[A]) {
		typed, _ := state.(S)
		next, eff := r(typed, action, deps)
		return next, eff
	}
}
