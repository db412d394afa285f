package compose

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux"
	"github.com/roach88/reflux/effect"
)

// Child domain: a counter with an optional follow-up effect.

type childState struct {
	Count int
}

type childAction struct {
	Name string
}

func childReducer(s childState, a childAction, _ struct{}) (childState, effect.Effect[childAction]) {
	switch a.Name {
	case "increment":
		s.Count++
	case "ping":
		return s, effect.Run(func(ctx context.Context, send func(childAction)) error {
			send(childAction{Name: "increment"})
			return nil
		})
	}
	return s, effect.None[childAction]()
}

// Parent domain embedding the child.

type parentState struct {
	Title string
	Child childState
}

type parentAction struct {
	Name  string
	Child *childAction
}

func scoped() reflux.Reducer[parentState, parentAction, struct{}] {
	return Scope(
		func(p parentState) childState { return p.Child },
		func(p parentState, c childState) parentState { p.Child = c; return p },
		func(a parentAction) (childAction, bool) {
			if a.Child == nil {
				return childAction{}, false
			}
			return *a.Child, true
		},
		func(c childAction) parentAction { return parentAction{Name: "child", Child: &c} },
		childReducer,
	)
}

func TestScope_RoutesChildAction(t *testing.T) {
	r := scoped()
	next, eff := r(parentState{Title: "t"}, parentAction{Child: &childAction{Name: "increment"}}, struct{}{})

	assert.Equal(t, 1, next.Child.Count)
	assert.Equal(t, "t", next.Title, "unrelated parent fields untouched")
	assert.True(t, eff.IsNone())
}

func TestScope_NonChildActionIsNoOp(t *testing.T) {
	r := scoped()
	state := parentState{Title: "t", Child: childState{Count: 3}}
	next, eff := r(state, parentAction{Name: "unrelated"}, struct{}{})

	assert.Equal(t, state, next)
	assert.True(t, eff.IsNone())
}

func TestScope_MapsChildEffectIntoParentSpace(t *testing.T) {
	r := scoped()
	_, eff := r(parentState{}, parentAction{Child: &childAction{Name: "ping"}}, struct{}{})
	require.Equal(t, effect.KindRun, eff.Kind())

	var produced []parentAction
	err := eff.Invoke(context.Background(), func(a parentAction) {
		produced = append(produced, a)
	})
	require.NoError(t, err)
	require.Len(t, produced, 1)
	require.NotNil(t, produced[0].Child)
	assert.Equal(t, "increment", produced[0].Child.Name)
}

// Optional child for IfLet: a modal that can be dismissed.

type modalState struct {
	Modal *childState
}

func ifLetReducer() reflux.Reducer[modalState, parentAction, struct{}] {
	return IfLet(
		func(p modalState) (childState, bool) {
			if p.Modal == nil {
				return childState{}, false
			}
			return *p.Modal, true
		},
		func(p modalState, c childState) modalState { p.Modal = &c; return p },
		func(p modalState) modalState { p.Modal = nil; return p },
		func(a parentAction) (childAction, bool) {
			if a.Child == nil {
				return childAction{}, false
			}
			return *a.Child, true
		},
		func(c childAction) parentAction { return parentAction{Name: "child", Child: &c} },
		func(a parentAction) bool { return a.Name == "dismiss" },
		childReducer,
	)
}

func TestIfLet_RoutesWhenPresent(t *testing.T) {
	r := ifLetReducer()
	state := modalState{Modal: &childState{Count: 1}}
	next, eff := r(state, parentAction{Child: &childAction{Name: "increment"}}, struct{}{})

	require.NotNil(t, next.Modal)
	assert.Equal(t, 2, next.Modal.Count)
	assert.True(t, eff.IsNone())
}

func TestIfLet_AbsentChildIsNoOp(t *testing.T) {
	r := ifLetReducer()
	next, eff := r(modalState{}, parentAction{Child: &childAction{Name: "increment"}}, struct{}{})

	assert.Nil(t, next.Modal, "late child action after dismissal is dropped")
	assert.True(t, eff.IsNone())
}

func TestIfLet_DismissAlwaysClears(t *testing.T) {
	r := ifLetReducer()
	state := modalState{Modal: &childState{Count: 7}}
	next, eff := r(state, parentAction{Name: "dismiss"}, struct{}{})

	assert.Nil(t, next.Modal)
	assert.True(t, eff.IsNone())

	// Dismissing an already absent child is also fine.
	next, eff = r(modalState{}, parentAction{Name: "dismiss"}, struct{}{})
	assert.Nil(t, next.Modal)
	assert.True(t, eff.IsNone())
}

// Combine over map-shaped state.

func sliceCounter(name string) reflux.Reducer[childState, parentAction, struct{}] {
	return func(s childState, a parentAction, _ struct{}) (childState, effect.Effect[parentAction]) {
		if a.Name == name {
			s.Count++
		}
		return s, effect.None[parentAction]()
	}
}

func TestCombine_RoutesToEverySlice(t *testing.T) {
	r := Combine(map[string]reflux.Reducer[any, parentAction, struct{}]{
		"a": Lift(sliceCounter("bump-a")),
		"b": Lift(sliceCounter("bump-b")),
	})

	state := map[string]any{"a": childState{}, "b": childState{}}
	state, eff := r(state, parentAction{Name: "bump-a"}, struct{}{})
	require.True(t, eff.IsNone())

	assert.Equal(t, childState{Count: 1}, state["a"])
	assert.Equal(t, childState{Count: 0}, state["b"])
}

func TestCombine_UnchangedStateKeepsReference(t *testing.T) {
	r := Combine(map[string]reflux.Reducer[any, parentAction, struct{}]{
		"a": Lift(sliceCounter("bump-a")),
	})

	state := map[string]any{"a": childState{Count: 2}}
	next, _ := r(state, parentAction{Name: "unrelated"}, struct{}{})

	assert.True(t, sameMap(state, next),
		"no child changed, so the exact input map comes back")
}

func TestCombine_BatchesChildEffects(t *testing.T) {
	effectful := func(s childState, a parentAction, _ struct{}) (childState, effect.Effect[parentAction]) {
		if a.Name != "go" {
			return s, effect.None[parentAction]()
		}
		return s, effect.AfterDelay(time.Second, func(ctx context.Context, send func(parentAction)) error {
			return nil
		})
	}
	r := Combine(map[string]reflux.Reducer[any, parentAction, struct{}]{
		"a": Lift(effectful),
		"b": Lift(effectful),
	})

	_, eff := r(map[string]any{}, parentAction{Name: "go"}, struct{}{})
	require.Equal(t, effect.KindBatch, eff.Kind())
	assert.Len(t, eff.Children(), 2)
}

func TestLift_ZeroStateOnTypeMiss(t *testing.T) {
	r := Lift(sliceCounter("bump"))
	next, _ := r("not a childState", parentAction{Name: "bump"}, struct{}{})
	assert.Equal(t, childState{Count: 1}, next, "reduces from the zero state")
}

func sameMap(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	// Mutating one and observing the other distinguishes identity from
	// structural equality.
	const probe = "\x00identity-probe"
	a[probe] = true
	_, shared := b[probe]
	delete(a, probe)
	return shared
}
