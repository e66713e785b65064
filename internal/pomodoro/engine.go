package pomodoro

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StateKey is the persistence key holding the last engine snapshot.
const StateKey = "timerState"

// State is a snapshot of the countdown.
type State struct {
	Phase                  Phase `json:"phase"`
	RemainingSeconds       int   `json:"remainingSeconds"`
	TotalSeconds           int   `json:"totalSeconds"`
	IsRunning              bool  `json:"isRunning"`
	CompletedStudySessions int   `json:"completedStudySessions"`
	CurrentSessionIndex    int   `json:"currentSessionIndex"`
	LongBreak              bool  `json:"longBreak"`
}

// ProgressPercent returns the elapsed share of the current phase in [0,100].
func (s State) ProgressPercent() float64 {
	if s.TotalSeconds <= 0 {
		return 0
	}
	progress := float64(s.TotalSeconds-s.RemainingSeconds) / float64(s.TotalSeconds) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// EventType defines the kind of engine event.
type EventType string

const (
	EventNone       EventType = ""
	EventTick       EventType = "tick"
	EventTransition EventType = "transition"
	EventStart      EventType = "start"
	EventPause      EventType = "pause"
	EventReset      EventType = "reset"
)

// Event carries a state snapshot to observers. On transitions Completed names
// the phase that just finished and CompletedSeconds its length.
type Event struct {
	Type             EventType
	State            State
	Completed        Phase
	CompletedLong    bool
	CompletedSeconds int
	At               time.Time
}

// Engine is the authoritative Pomodoro state machine. All methods are safe for
// concurrent use; each one runs under the engine lock.
type Engine struct {
	mu       sync.Mutex
	settings Settings
	state    State
	events   []chan Event
	now      func() time.Time
}

// NewEngine creates an engine in the initial study state for settings.
func NewEngine(settings Settings) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	engine := &Engine{
		settings: settings,
		now:      time.Now,
	}
	engine.resetLocked()
	return engine, nil
}

// SetClock replaces the time source used to stamp events.
func (engine *Engine) SetClock(now func() time.Time) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.now = now
}

// Subscribe registers an observer channel. Sends never block; a full
// channel drops the event.
func (engine *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	engine.mu.Lock()
	engine.events = append(engine.events, ch)
	engine.mu.Unlock()
	return ch
}

// Close closes all observer channels.
func (engine *Engine) Close() {
	engine.mu.Lock()
	events := engine.events
	engine.events = nil
	engine.mu.Unlock()
	for _, ch := range events {
		close(ch)
	}
}

// Snapshot returns the current state.
func (engine *Engine) Snapshot() State {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.state
}

// Settings returns the settings the engine runs with.
func (engine *Engine) Settings() Settings {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.settings
}

// Start resumes the countdown. A depleted phase cannot be started; the caller
// has to Stop first.
func (engine *Engine) Start() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.state.RemainingSeconds == 0 {
		return fmt.Errorf("%w: no time remaining in %s phase", ErrInvalidTransition, engine.state.Phase)
	}
	if engine.state.IsRunning {
		return nil
	}
	engine.state.IsRunning = true
	engine.emitLocked(Event{Type: EventStart, State: engine.state, At: engine.now()})
	return nil
}

// Pause freezes the countdown without touching remaining time or counters.
func (engine *Engine) Pause() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.state.IsRunning {
		return
	}
	engine.state.IsRunning = false
	engine.emitLocked(Event{Type: EventPause, State: engine.state, At: engine.now()})
}

// Stop discards the cycle and returns to the initial study state.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.resetLocked()
	engine.emitLocked(Event{Type: EventReset, State: engine.state, At: engine.now()})
}

// Reset is an alias for Stop.
func (engine *Engine) Reset() {
	engine.Stop()
}

// UpdateSettings validates settings and restarts the cycle with them. Invalid
// settings leave the engine untouched.
func (engine *Engine) UpdateSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.settings = settings
	engine.resetLocked()
	engine.emitLocked(Event{Type: EventReset, State: engine.state, At: engine.now()})
	return nil
}

// Tick advances the countdown by one second. It is a no-op returning an
// EventNone event while the engine is paused.
func (engine *Engine) Tick() Event {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.state.IsRunning {
		return Event{Type: EventNone, State: engine.state}
	}

	now := engine.now()
	if engine.state.RemainingSeconds > 1 {
		engine.state.RemainingSeconds--
		event := Event{Type: EventTick, State: engine.state, At: now}
		engine.emitLocked(event)
		return event
	}

	event := Event{
		Type:             EventTransition,
		Completed:        engine.state.Phase,
		CompletedLong:    engine.state.LongBreak,
		CompletedSeconds: engine.state.TotalSeconds,
		At:               now,
	}
	engine.advancePhaseLocked()
	event.State = engine.state
	engine.emitLocked(event)
	return event
}

// Restore reinstates a persisted snapshot in paused form. The snapshot must
// satisfy the state invariants and match the current settings.
func (engine *Engine) Restore(state State) error {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if err := validateSnapshot(state, engine.settings); err != nil {
		return err
	}
	state.IsRunning = false
	engine.state = state
	engine.emitLocked(Event{Type: EventPause, State: engine.state, At: engine.now()})
	return nil
}

// Run drives Tick from a ticker until ctx is cancelled.
func (engine *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			engine.Tick()
		}
	}
}

func (engine *Engine) advancePhaseLocked() {
	var next Phase
	if engine.state.Phase == PhaseStudy {
		next = PhaseBreak
		engine.state.CompletedStudySessions++
	} else {
		next = PhaseStudy
		engine.state.CurrentSessionIndex++
	}
	seconds, long := NextDuration(next, engine.state.CompletedStudySessions, engine.settings)
	engine.state.Phase = next
	engine.state.LongBreak = long
	engine.state.TotalSeconds = seconds
	engine.state.RemainingSeconds = seconds
	engine.state.IsRunning = false
}

func (engine *Engine) resetLocked() {
	seconds, _ := NextDuration(PhaseStudy, 0, engine.settings)
	engine.state = State{
		Phase:            PhaseStudy,
		RemainingSeconds: seconds,
		TotalSeconds:     seconds,
	}
}

func (engine *Engine) emitLocked(event Event) {
	for _, ch := range engine.events {
		select {
		case ch <- event:
		default:
		}
	}
}

func validateSnapshot(state State, settings Settings) error {
	if !state.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidSnapshot, state.Phase)
	}
	if state.TotalSeconds <= 0 {
		return fmt.Errorf("%w: total seconds must be > 0", ErrInvalidSnapshot)
	}
	if state.RemainingSeconds < 0 || state.RemainingSeconds > state.TotalSeconds {
		return fmt.Errorf("%w: remaining seconds %d outside [0,%d]", ErrInvalidSnapshot, state.RemainingSeconds, state.TotalSeconds)
	}
	if state.CompletedStudySessions < 0 || state.CurrentSessionIndex < 0 {
		return fmt.Errorf("%w: negative session counters", ErrInvalidSnapshot)
	}
	wantIndex := state.CompletedStudySessions
	if state.Phase == PhaseBreak {
		wantIndex--
	}
	if state.CurrentSessionIndex != wantIndex {
		return fmt.Errorf("%w: cycle index %d inconsistent with %d completed sessions", ErrInvalidSnapshot, state.CurrentSessionIndex, state.CompletedStudySessions)
	}
	if state.Phase == PhaseStudy && state.LongBreak {
		return fmt.Errorf("%w: study phase flagged as long break", ErrInvalidSnapshot)
	}
	expected, long := NextDuration(state.Phase, state.CompletedStudySessions, settings)
	if state.Phase == PhaseBreak && long != state.LongBreak {
		return fmt.Errorf("%w: break kind does not match session count", ErrInvalidSnapshot)
	}
	if expected != state.TotalSeconds {
		return fmt.Errorf("%w: phase length %ds does not match settings (%ds)", ErrInvalidSnapshot, state.TotalSeconds, expected)
	}
	return nil
}
