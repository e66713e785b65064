package pomodoro

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/model"
)

// PhaseRecorder stores completed phases.
type PhaseRecorder interface {
	InsertPhase(ctx context.Context, rec model.PhaseRecord) (int64, error)
}

// SaveState persists the engine snapshot. Write failures are returned to the
// caller and never affect the in-memory countdown.
func SaveState(ctx context.Context, st Store, engine *Engine) error {
	payload, err := json.Marshal(engine.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal timer state: %w", err)
	}
	if err := st.Set(ctx, StateKey, string(payload)); err != nil {
		return fmt.Errorf("write timer state: %w", err)
	}
	return nil
}

// RestoreState loads the persisted snapshot into engine. It reports false when
// nothing was restored; unparsable snapshots count as absent.
func RestoreState(ctx context.Context, st Store, engine *Engine) (bool, error) {
	raw, ok, err := st.Get(ctx, StateKey)
	if err != nil {
		return false, fmt.Errorf("read timer state: %w", err)
	}
	if !ok {
		return false, nil
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := engine.Restore(state); err != nil {
		return false, err
	}
	return true, nil
}

// RecordPhase stores the phase completed by a transition event. Other event
// types are ignored.
func RecordPhase(ctx context.Context, rec PhaseRecorder, event Event) error {
	if event.Type != EventTransition {
		return nil
	}
	_, err := rec.InsertPhase(ctx, model.PhaseRecord{
		Phase:       string(event.Completed),
		LongBreak:   event.CompletedLong,
		DurationSec: event.CompletedSeconds,
		EndedAt:     event.At,
	})
	if err != nil {
		return fmt.Errorf("record %s phase: %w", event.Completed, err)
	}
	return nil
}
