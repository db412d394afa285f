// Package compose provides pure reducer transformers that nest
// independently authored state machines into larger ones.
//
// Every transformer is total: an action that matches no child branch is a
// safe no-op returning the parent state unchanged with effect.None, never an
// error. Child effects are mapped back into parent-action space with
// effect.Map, so the executor never needs to know about parent/child
// relationships.
package compose

import (
	"github.com/roach88/reflux"
	"github.com/roach88/reflux/effect"
)

// Scope embeds a child reducer into a parent domain.
//
// toChild extracts the child state from the parent state and fromChild
// reinserts it. toChildAction extracts an optional child action from a
// parent action; when it reports false the parent reducer simply does not
// react, returning the parent state unchanged (the same reference) with
// effect.None. fromChildAction lifts child actions produced by child effects
// back into parent-action space.
func Scope[PS, PA, CS, CA, D any](
	toChild func(PS) CS,
	fromChild func(PS, CS) PS,
	toChildAction func(PA) (CA, bool),
	fromChildAction func(CA) PA,
	child reflux.Reducer[CS, CA, D],
) reflux.Reducer[PS, PA, D] {
	return func(state PS, action PA, deps D) (PS, effect.Effect[PA]) {
		childAction, ok := toChildAction(action)
		if !ok {
			return state, effect.None[PA]()
		}
		childState, childEffect := child(toChild(state), childAction, deps)
		return fromChild(state, childState), effect.Map(childEffect, fromChildAction)
	}
}
