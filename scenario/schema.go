package scenario

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// scenarioSchema is the CUE definition scenario files must satisfy.
// Definitions are closed, so unknown fields are rejected with positions.
const scenarioSchema = `
#Action: {
	type: string & !=""
	...
}

#Step: {
	send?:    #Action
	receive?: #Action
	advance?: string & !=""
	state?: {...}
}

#Scenario: {
	name:         string & !=""
	description?: string
	steps: [...#Step] & [_, ...]
	final_state?: {...}
	partial?: bool
}
`

// ValidateScenarioFile checks scenario YAML against the schema before any
// decoding happens. Errors include file positions for diagnosis.
func ValidateScenarioFile(path string, data []byte) error {
	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return fmt.Errorf("extract scenario YAML: %w", err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return formatCUEError(err)
	}

	schema := ctx.CompileString(scenarioSchema).LookupPath(cue.ParsePath("#Scenario"))
	if err := schema.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError flattens a CUE error list into one message with positions.
func formatCUEError(err error) error {
	var b strings.Builder
	b.WriteString("invalid scenario file:")
	for _, e := range cueerrors.Errors(err) {
		pos := e.Position()
		if pos.IsValid() {
			fmt.Fprintf(&b, "\n  %s: %s", pos, e.Error())
		} else {
			fmt.Fprintf(&b, "\n  %s", e.Error())
		}
	}
	return fmt.Errorf("%s", b.String())
}
