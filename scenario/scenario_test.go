package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/effect"
)

func writeScenario(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	sc, err := LoadScenario("testdata/counter.yaml")
	require.NoError(t, err)

	assert.Equal(t, "counter-increment", sc.Name)
	require.Len(t, sc.Steps, 2)
	require.NotNil(t, sc.Steps[0].Send)
	assert.Equal(t, "increment", sc.Steps[0].Send.Type)
	assert.Equal(t, map[string]any{"count": 2}, sc.FinalState)
}

func TestLoadScenario_InlinePayload(t *testing.T) {
	sc, err := LoadScenario("testdata/search.yaml")
	require.NoError(t, err)

	require.NotNil(t, sc.Steps[0].Send)
	assert.Equal(t, "queryChanged", sc.Steps[0].Send.Type)
	assert.Equal(t, map[string]any{"query": "a"}, sc.Steps[0].Send.Payload)
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := writeScenario(t, `
name: bad
steps:
  - send:
      type: increment
    wait: 100ms
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario file")
}

func TestLoadScenario_MissingNameRejected(t *testing.T) {
	path := writeScenario(t, `
steps:
  - send:
      type: increment
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
}

func TestLoadScenario_StepNeedsExactlyOneKind(t *testing.T) {
	path := writeScenario(t, `
name: ambiguous
steps:
  - send:
      type: increment
    advance: 100ms
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of")
}

func TestLoadScenario_BadDurationRejected(t *testing.T) {
	path := writeScenario(t, `
name: bad-duration
steps:
  - advance: soon
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid advance duration")
}

func cloneState(state map[string]any) map[string]any {
	next := make(map[string]any, len(state)+1)
	for k, v := range state {
		next[k] = v
	}
	return next
}

func counterFixture() Fixture {
	return Fixture{
		Initial: map[string]any{"count": 0},
		Reducer: func(state map[string]any, a Action, _ any) (map[string]any, effect.Effect[Action]) {
			if a.Type != "increment" {
				return state, effect.None[Action]()
			}
			next := cloneState(state)
			count, _ := next["count"].(int)
			next["count"] = count + 1
			return next, effect.None[Action]()
		},
	}
}

func searchFixture() Fixture {
	return Fixture{
		Initial: map[string]any{},
		Reducer: func(state map[string]any, a Action, _ any) (map[string]any, effect.Effect[Action]) {
			switch a.Type {
			case "queryChanged":
				query := a.Payload["query"]
				next := cloneState(state)
				next["query"] = query
				return next, effect.Debounced("search", 300*time.Millisecond,
					func(ctx context.Context, send func(Action)) error {
						send(Action{Type: "searchResults", Payload: map[string]any{"query": query}})
						return nil
					})
			case "searchResults":
				next := cloneState(state)
				next["results_for"] = a.Payload["query"]
				return next, effect.None[Action]()
			}
			return state, effect.None[Action]()
		},
	}
}

func TestRun_Counter(t *testing.T) {
	sc, err := LoadScenario("testdata/counter.yaml")
	require.NoError(t, err)

	result := Run(sc, counterFixture())
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]any{"count": 2}, result.FinalState)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "send", result.Trace[0].Kind)
	assert.Equal(t, 1, result.Trace[0].Seq)
}

func TestRun_DebouncedSearch(t *testing.T) {
	sc, err := LoadScenario("testdata/search.yaml")
	require.NoError(t, err)

	result := Run(sc, searchFixture())
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "ab", result.FinalState["results_for"],
		"only the last query's search survives the debounce")
}

func TestRun_FinalStateMismatchFails(t *testing.T) {
	sc := &Scenario{
		Name:       "wrong-final",
		Steps:      []Step{{Send: &Action{Type: "increment"}}},
		FinalState: map[string]any{"count": 99},
	}
	result := Run(sc, counterFixture())
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], `field "count"`)
}

func TestRun_StepStateMismatchFails(t *testing.T) {
	sc := &Scenario{
		Name: "wrong-step-state",
		Steps: []Step{{
			Send:  &Action{Type: "increment"},
			State: map[string]any{"count": 5},
		}},
	}
	result := Run(sc, counterFixture())
	assert.False(t, result.Pass)
}

func TestRun_ReceiveWithoutPendingHalts(t *testing.T) {
	sc := &Scenario{
		Name:  "premature-receive",
		Steps: []Step{{Receive: &Action{Type: "searchResults"}}},
	}
	result := Run(sc, searchFixture())
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "no pending actions")
}

func TestRun_ExhaustiveLeftoverTimerFails(t *testing.T) {
	sc := &Scenario{
		Name:  "armed-timer",
		Steps: []Step{{Send: &Action{Type: "queryChanged", Payload: map[string]any{"query": "a"}}}},
	}
	result := Run(sc, searchFixture())
	assert.False(t, result.Pass, "an unfired debounce timer fails an exhaustive scenario")
}

func TestRun_BadDurationInHandBuiltScenarioFails(t *testing.T) {
	sc := &Scenario{
		Name:  "bad-duration",
		Steps: []Step{{Advance: "soon"}},
	}
	result := Run(sc, counterFixture())
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], `invalid advance duration "soon"`)
}

func TestRun_PartialSkipsLeftoverChecks(t *testing.T) {
	sc := &Scenario{
		Name:    "armed-timer-partial",
		Partial: true,
		Steps:   []Step{{Send: &Action{Type: "queryChanged", Payload: map[string]any{"query": "a"}}}},
	}
	result := Run(sc, searchFixture())
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_Counter(t *testing.T) {
	sc, err := LoadScenario("testdata/counter.yaml")
	require.NoError(t, err)
	RunWithGolden(t, sc, counterFixture())
}

func TestRunWithGolden_DebouncedSearch(t *testing.T) {
	sc, err := LoadScenario("testdata/search.yaml")
	require.NoError(t, err)
	RunWithGolden(t, sc, searchFixture())
}
