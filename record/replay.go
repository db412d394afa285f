package record

import (
	"context"
	"fmt"
)

// Replay reads a recorded run in order, decodes each entry back into an
// action, and feeds it to dispatch. Dispatching a replayed run through the
// same reducer and initial state reconstructs the state the original run
// reached, since reducers are pure and actions are the only inputs.
//
// decode maps a journaled (kind, payload) pair back to a concrete action;
// it is application-specific because the journal stores actions as data,
// not as Go types. Replay stops at the first decode failure.
func Replay[A any](
	ctx context.Context,
	j *Journal,
	runID string,
	decode func(kind string, payload []byte) (A, error),
	dispatch func(A),
) error {
	entries, err := j.Entries(ctx, runID)
	if err != nil {
		return fmt.Errorf("replay run %s: %w", runID, err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("replay run %s: %w", runID, err)
		}
		action, err := decode(entry.Kind, entry.Payload)
		if err != nil {
			return fmt.Errorf("replay run %s: decode seq %d (%s): %w", runID, entry.Seq, entry.Kind, err)
		}
		dispatch(action)
	}
	return nil
}
