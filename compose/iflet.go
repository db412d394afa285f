package compose

import (
	"github.com/roach88/reflux"
	"github.com/roach88/reflux/effect"
)

// IfLet is Scope over an optional child state.
//
// toChild reports whether the child state is currently present; while it is
// absent, any routed child action is a no-op. isDismiss identifies the
// dedicated dismissal action: it always sets the child state to absent via
// clearChild, regardless of whether the child reducer would have handled it,
// and produces no effect.
func IfLet[PS, PA, CS, CA, D any](
	toChild func(PS) (CS, bool),
	fromChild func(PS, CS) PS,
	clearChild func(PS) PS,
	toChildAction func(PA) (CA, bool),
	fromChildAction func(CA) PA,
	isDismiss func(PA) bool,
	child reflux.Reducer[CS, CA, D],
) reflux.Reducer[PS, PA, D] {
	return func(state PS, action PA, deps D) (PS, effect.Effect[PA]) {
		if isDismiss(action) {
			return clearChild(state), effect.None[PA]()
		}
		childAction, ok := toChildAction(action)
		if !ok {
			return state, effect.None[PA]()
		}
		childState, present := toChild(state)
		if !present {
			// Routed child action with no child state: safe no-op. This
			// happens when an effect's action races a dismissal.
			return state, effect.None[PA]()
		}
		newChild, childEffect := child(childState, childAction, deps)
		return fromChild(state, newChild), effect.Map(childEffect, fromChildAction)
	}
}
