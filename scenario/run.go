package scenario

import (
	"fmt"
	"time"

	"github.com/roach88/reflux"
	"github.com/roach88/reflux/teststore"
)

// Fixture binds a scenario to a concrete reducer. Scenarios operate on
// map-shaped state and data-shaped actions so they stay declarative; Deps
// is handed to the reducer unchanged, which is where tests inject mocks.
type Fixture struct {
	Initial map[string]any
	Reducer reflux.Reducer[map[string]any, Action, any]
	Deps    any
}

// TraceEvent is one executed step in a scenario trace.
type TraceEvent struct {
	Kind    string         // "send", "receive" or "advance"
	Seq     int            // 1-based step counter
	Type    string         // action type, empty for advance
	Args    map[string]any // action payload, nil when empty
	Advance string         // duration string, only for advance
}

// Result is the outcome of a scenario execution.
type Result struct {
	Pass       bool
	Trace      []TraceEvent
	Errors     []string
	FinalState map[string]any
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// recordingTB collects TestStore failures into scenario errors instead of
// failing a *testing.T, so a scenario reports all its context at once.
type recordingTB struct {
	errs   []string
	halted bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(format string, args ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
	r.halted = true
}

// Run executes a scenario against a fixture and returns the result. Each
// scenario runs in a fresh TestStore over virtual time, so results are
// reproducible.
func Run(sc *Scenario, fixture Fixture) *Result {
	result := &Result{Pass: true}
	rec := &recordingTB{}
	ts := teststore.New(rec, fixture.Initial, fixture.Reducer, fixture.Deps)
	if sc.Partial {
		ts.SetExhaustivity(false)
	}

	seq := 0
	for i, step := range sc.Steps {
		if rec.halted {
			break
		}
		seq++

		switch {
		case step.Send != nil:
			ts.Send(*step.Send)
			result.Trace = append(result.Trace, TraceEvent{
				Kind: "send",
				Seq:  seq,
				Type: step.Send.Type,
				Args: step.Send.Payload,
			})

		case step.Receive != nil:
			want := *step.Receive
			ts.Receive(func(got Action) bool {
				return got.Type == want.Type && subsetMatches(got.Payload, want.Payload)
			})
			result.Trace = append(result.Trace, TraceEvent{
				Kind: "receive",
				Seq:  seq,
				Type: want.Type,
				Args: want.Payload,
			})

		case step.Advance != "":
			// LoadScenario validates durations, but hand-built scenarios
			// reach here unchecked.
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				result.AddError(fmt.Sprintf("step %d: invalid advance duration %q: %v", i, step.Advance, err))
				continue
			}
			ts.AdvanceTime(d)
			result.Trace = append(result.Trace, TraceEvent{
				Kind:    "advance",
				Seq:     seq,
				Advance: step.Advance,
			})
		}

		if step.State != nil && !rec.halted {
			if err := assertSubset(ts.State(), step.State); err != nil {
				result.AddError(fmt.Sprintf("step %d: %v", i, err))
			}
		}
	}

	if !rec.halted {
		if sc.FinalState != nil {
			if err := assertSubset(ts.State(), sc.FinalState); err != nil {
				result.AddError(fmt.Sprintf("final state: %v", err))
			}
		}
		ts.Finish()
	}

	for _, msg := range rec.errs {
		result.AddError(msg)
	}
	result.FinalState = ts.State()
	return result
}

// assertSubset checks that every expected field is present in actual with a
// matching value. Only specified fields are validated.
func assertSubset(actual, expected map[string]any) error {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return fmt.Errorf("field %q missing (want %v)", key, want)
		}
		if !valueEqual(got, want) {
			return fmt.Errorf("field %q: got %v, want %v", key, got, want)
		}
	}
	return nil
}

func subsetMatches(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !valueEqual(got, want) {
			return false
		}
	}
	return true
}

// valueEqual compares loosely across the numeric types YAML decoding and
// fixture reducers produce.
func valueEqual(a, b any) bool {
	if an, aok := asFloat(a); aok {
		bn, bok := asFloat(b)
		return bok && an == bn
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k := range av {
			if !valueEqual(av[k], bv[k]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
