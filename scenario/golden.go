package scenario

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reflux/internal/canonical"
)

// RunWithGolden executes a scenario and compares its trace and final state
// against testdata/golden/{scenario.Name}.golden, serialized as canonical
// JSON for byte-stable comparison.
//
// Regenerate golden files with:
//
//	go test ./scenario -update
func RunWithGolden(t *testing.T, sc *Scenario, fixture Fixture) {
	t.Helper()

	result := Run(sc, fixture)
	if !result.Pass {
		t.Fatalf("scenario %q failed:\n  %s", sc.Name, strings.Join(result.Errors, "\n  "))
	}

	snapshot, err := canonical.Normalize(snapshotMap(sc.Name, result))
	if err != nil {
		t.Fatalf("marshal trace snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, snapshot)
}

func snapshotMap(name string, result *Result) map[string]any {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		m := map[string]any{
			"kind": event.Kind,
			"seq":  event.Seq,
		}
		if event.Type != "" {
			m["type"] = event.Type
		}
		if len(event.Args) > 0 {
			m["args"] = event.Args
		}
		if event.Advance != "" {
			m["advance"] = event.Advance
		}
		trace[i] = m
	}
	return map[string]any{
		"name":        name,
		"trace":       trace,
		"final_state": result.FinalState,
	}
}
