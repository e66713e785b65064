package pomodoro

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestEngine(t *testing.T, s Settings) *Engine {
	t.Helper()
	engine, err := NewEngine(s)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func mustStart(t *testing.T, engine *Engine) {
	t.Helper()
	if err := engine.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
}

// runPhase starts the engine and ticks until the current phase completes.
func runPhase(t *testing.T, engine *Engine) Event {
	t.Helper()
	mustStart(t, engine)
	for i := 0; i < 24*60*60; i++ {
		event := engine.Tick()
		if event.Type == EventTransition {
			return event
		}
	}
	t.Fatalf("phase did not complete")
	return Event{}
}

func initialState(s Settings) State {
	return State{
		Phase:            PhaseStudy,
		RemainingSeconds: s.StudyMinutes * 60,
		TotalSeconds:     s.StudyMinutes * 60,
	}
}

func TestNewEngineInitialState(t *testing.T) {
	s := DefaultSettings()
	engine := newTestEngine(t, s)
	if got := engine.Snapshot(); got != initialState(s) {
		t.Fatalf("unexpected initial state: %+v", got)
	}
}

func TestNewEngineRejectsInvalidSettings(t *testing.T) {
	_, err := NewEngine(Settings{StudyMinutes: 25, BreakMinutes: 0, LongBreakMinutes: 15, SessionsBeforeLongBreak: 4})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestTickDecrementsWhileRunning(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	mustStart(t, engine)
	initial := engine.Snapshot().RemainingSeconds
	for n := 1; n < initial; n++ {
		event := engine.Tick()
		if event.Type != EventTick {
			t.Fatalf("tick %d: expected tick event, got %q", n, event.Type)
		}
		if event.State.RemainingSeconds != initial-n {
			t.Fatalf("tick %d: expected %d remaining, got %d", n, initial-n, event.State.RemainingSeconds)
		}
		if event.State.Phase != PhaseStudy {
			t.Fatalf("tick %d: phase changed to %s", n, event.State.Phase)
		}
	}
}

func TestTickIsNoOpWhenPaused(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	before := engine.Snapshot()
	event := engine.Tick()
	if event.Type != EventNone {
		t.Fatalf("expected no event, got %q", event.Type)
	}
	if engine.Snapshot() != before {
		t.Fatalf("paused tick changed state")
	}
}

func TestLastStudyTickTransitionsToBreak(t *testing.T) {
	s := DefaultSettings()
	engine := newTestEngine(t, s)
	mustStart(t, engine)
	for engine.Snapshot().RemainingSeconds > 1 {
		engine.Tick()
	}
	event := engine.Tick()
	if event.Type != EventTransition || event.Completed != PhaseStudy {
		t.Fatalf("expected study transition, got %+v", event)
	}
	if event.CompletedSeconds != s.StudyMinutes*60 {
		t.Fatalf("expected completed length %d, got %d", s.StudyMinutes*60, event.CompletedSeconds)
	}
	got := event.State
	if got.Phase != PhaseBreak {
		t.Fatalf("expected break phase, got %s", got.Phase)
	}
	if got.RemainingSeconds != got.TotalSeconds || got.TotalSeconds != s.BreakMinutes*60 {
		t.Fatalf("unexpected break durations: %+v", got)
	}
	if got.CompletedStudySessions != 1 {
		t.Fatalf("expected 1 completed session, got %d", got.CompletedStudySessions)
	}
	if got.IsRunning {
		t.Fatalf("expected engine to halt after transition")
	}
}

func TestFifteenHundredTicksReachBreak(t *testing.T) {
	engine := newTestEngine(t, Settings{StudyMinutes: 25, BreakMinutes: 5, LongBreakMinutes: 15, SessionsBeforeLongBreak: 4})
	mustStart(t, engine)
	for i := 0; i < 1500; i++ {
		engine.Tick()
	}
	want := State{
		Phase:                  PhaseBreak,
		RemainingSeconds:       300,
		TotalSeconds:           300,
		CompletedStudySessions: 1,
	}
	if got := engine.Snapshot(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFourthBreakIsLong(t *testing.T) {
	engine := newTestEngine(t, Settings{StudyMinutes: 25, BreakMinutes: 5, LongBreakMinutes: 15, SessionsBeforeLongBreak: 4})
	for cycle := 1; cycle <= 4; cycle++ {
		event := runPhase(t, engine)
		if event.State.Phase != PhaseBreak {
			t.Fatalf("cycle %d: expected break, got %s", cycle, event.State.Phase)
		}
		want := 300
		if cycle == 4 {
			want = 900
		}
		if event.State.TotalSeconds != want {
			t.Fatalf("cycle %d: expected break of %ds, got %ds", cycle, want, event.State.TotalSeconds)
		}
		if event.State.LongBreak != (cycle == 4) {
			t.Fatalf("cycle %d: unexpected long break flag %v", cycle, event.State.LongBreak)
		}
		event = runPhase(t, engine)
		if event.Completed != PhaseBreak || event.State.Phase != PhaseStudy {
			t.Fatalf("cycle %d: expected break to end in study, got %+v", cycle, event)
		}
		if event.State.CurrentSessionIndex != cycle {
			t.Fatalf("cycle %d: expected session index %d, got %d", cycle, cycle, event.State.CurrentSessionIndex)
		}
	}
}

func TestLongBreakCadence(t *testing.T) {
	s := Settings{StudyMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 3, SessionsBeforeLongBreak: 4}
	engine := newTestEngine(t, s)
	for session := 1; session <= 12; session++ {
		event := runPhase(t, engine)
		want := s.BreakMinutes * 60
		if session%4 == 0 {
			want = s.LongBreakMinutes * 60
		}
		if event.State.TotalSeconds != want {
			t.Fatalf("session %d: expected break of %ds, got %ds", session, want, event.State.TotalSeconds)
		}
		runPhase(t, engine)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	mustStart(t, engine)
	engine.Tick()
	engine.Pause()
	once := engine.Snapshot()
	engine.Pause()
	if engine.Snapshot() != once {
		t.Fatalf("second pause changed state")
	}
	if once.IsRunning {
		t.Fatalf("expected paused engine")
	}
}

func TestStartWhileRunningKeepsRemaining(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	mustStart(t, engine)
	engine.Tick()
	engine.Tick()
	before := engine.Snapshot()
	mustStart(t, engine)
	if engine.Snapshot() != before {
		t.Fatalf("start while running changed state: %+v -> %+v", before, engine.Snapshot())
	}
}

func TestStartRejectsDepletedPhase(t *testing.T) {
	s := DefaultSettings()
	engine := newTestEngine(t, s)
	engine.state.RemainingSeconds = 0
	if err := engine.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	engine.Stop()
	if err := engine.Start(); err != nil {
		t.Fatalf("expected start after stop, got %v", err)
	}
}

func TestStopResetsEverything(t *testing.T) {
	s := Settings{StudyMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 2, SessionsBeforeLongBreak: 2}
	engine := newTestEngine(t, s)
	runPhase(t, engine)
	runPhase(t, engine)
	runPhase(t, engine)
	mustStart(t, engine)
	engine.Tick()
	engine.Stop()
	if got := engine.Snapshot(); got != initialState(s) {
		t.Fatalf("unexpected state after stop: %+v", got)
	}
}

func TestUpdateSettingsResets(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	mustStart(t, engine)
	engine.Tick()
	next := Settings{StudyMinutes: 50, BreakMinutes: 10, LongBreakMinutes: 30, SessionsBeforeLongBreak: 2}
	if err := engine.UpdateSettings(next); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if got := engine.Snapshot(); got != initialState(next) {
		t.Fatalf("expected reset to new settings, got %+v", got)
	}
	if engine.Settings() != next {
		t.Fatalf("settings not applied")
	}
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	mustStart(t, engine)
	engine.Tick()
	before := engine.Snapshot()
	err := engine.UpdateSettings(Settings{StudyMinutes: -1, BreakMinutes: 5, LongBreakMinutes: 15, SessionsBeforeLongBreak: 4})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if engine.Snapshot() != before || engine.Settings() != DefaultSettings() {
		t.Fatalf("invalid settings mutated the engine")
	}
}

func TestProgressPercentWithinPhase(t *testing.T) {
	engine := newTestEngine(t, Settings{StudyMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 1, SessionsBeforeLongBreak: 1})
	mustStart(t, engine)
	last := engine.Snapshot().ProgressPercent()
	if last != 0 {
		t.Fatalf("expected 0%% at start, got %v", last)
	}
	for engine.Snapshot().RemainingSeconds > 1 {
		progress := engine.Tick().State.ProgressPercent()
		if progress < last {
			t.Fatalf("progress decreased from %v to %v", last, progress)
		}
		last = progress
	}
	final := State{Phase: PhaseStudy, TotalSeconds: 60}
	if final.ProgressPercent() != 100 {
		t.Fatalf("expected 100%% at zero remaining, got %v", final.ProgressPercent())
	}
}

func TestProgressPercentZeroTotal(t *testing.T) {
	if got := (State{}).ProgressPercent(); got != 0 {
		t.Fatalf("expected 0 for zero total, got %v", got)
	}
	if got := (State{TotalSeconds: 10, RemainingSeconds: 20}).ProgressPercent(); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	engine.SetClock(func() time.Time { return at })
	events := engine.Subscribe(4)
	mustStart(t, engine)
	engine.Tick()
	engine.Pause()

	want := []EventType{EventStart, EventTick, EventPause}
	for _, typ := range want {
		event := <-events
		if event.Type != typ {
			t.Fatalf("expected %q event, got %q", typ, event.Type)
		}
		if !event.At.Equal(at) {
			t.Fatalf("expected event time %v, got %v", at, event.At)
		}
	}
	engine.Close()
	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel")
	}
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	events := engine.Subscribe(1)
	mustStart(t, engine)
	for i := 0; i < 10; i++ {
		engine.Tick()
	}
	if got := len(events); got != 1 {
		t.Fatalf("expected 1 buffered event, got %d", got)
	}
}

func TestRestoreAcceptsConsistentSnapshot(t *testing.T) {
	s := DefaultSettings()
	engine := newTestEngine(t, s)
	snapshot := State{
		Phase:                  PhaseBreak,
		RemainingSeconds:       120,
		TotalSeconds:           900,
		IsRunning:              true,
		CompletedStudySessions: 4,
		CurrentSessionIndex:    3,
		LongBreak:              true,
	}
	if err := engine.Restore(snapshot); err != nil {
		t.Fatalf("restore: %v", err)
	}
	snapshot.IsRunning = false
	if got := engine.Snapshot(); got != snapshot {
		t.Fatalf("expected %+v, got %+v", snapshot, got)
	}
}

func TestRestoreRejectsInconsistentSnapshots(t *testing.T) {
	s := DefaultSettings()
	cases := map[string]State{
		"unknown phase":   {Phase: "nap", RemainingSeconds: 10, TotalSeconds: 1500},
		"zero total":      {Phase: PhaseStudy},
		"over total":      {Phase: PhaseStudy, RemainingSeconds: 1501, TotalSeconds: 1500},
		"wrong length":    {Phase: PhaseStudy, RemainingSeconds: 10, TotalSeconds: 600},
		"short not long":  {Phase: PhaseBreak, RemainingSeconds: 10, TotalSeconds: 300, CompletedStudySessions: 4, CurrentSessionIndex: 3},
		"index mismatch":  {Phase: PhaseStudy, RemainingSeconds: 10, TotalSeconds: 1500, CompletedStudySessions: 2, CurrentSessionIndex: 1},
		"negative count":  {Phase: PhaseStudy, RemainingSeconds: 10, TotalSeconds: 1500, CompletedStudySessions: -1, CurrentSessionIndex: -1},
		"long study flag": {Phase: PhaseStudy, RemainingSeconds: 10, TotalSeconds: 1500, LongBreak: true},
	}
	for name, snapshot := range cases {
		engine := newTestEngine(t, s)
		if err := engine.Restore(snapshot); !errors.Is(err, ErrInvalidSnapshot) {
			t.Fatalf("%s: expected ErrInvalidSnapshot, got %v", name, err)
		}
		if got := engine.Snapshot(); got != initialState(s) {
			t.Fatalf("%s: rejected snapshot mutated state", name)
		}
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	engine := newTestEngine(t, DefaultSettings())
	events := engine.Subscribe(16)
	mustStart(t, engine)
	<-events // start

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- engine.Run(ctx, time.Millisecond)
	}()
	for i := 0; i < 3; i++ {
		select {
		case event := <-events:
			if event.Type != EventTick {
				t.Fatalf("expected tick event, got %q", event.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for tick")
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConcurrentControlKeepsStateConsistent(t *testing.T) {
	short := Settings{StudyMinutes: 1, BreakMinutes: 1, LongBreakMinutes: 2, SessionsBeforeLongBreak: 2}
	engine := newTestEngine(t, short)
	events := engine.Subscribe(8)

	observed := make(chan error, 1)
	go func() {
		var bad error
		for event := range events {
			state := event.State
			if bad == nil && (state.TotalSeconds <= 0 || state.RemainingSeconds < 0 || state.RemainingSeconds > state.TotalSeconds) {
				bad = errors.New("observer saw out-of-range countdown")
			}
		}
		observed <- bad
	}()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	worker := func(fn func(i int) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if err := fn(i); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for w := 0; w < 4; w++ {
		worker(func(int) error {
			engine.Tick()
			return nil
		})
	}
	worker(func(int) error { return engine.Start() })
	worker(func(i int) error {
		if i%3 == 0 {
			engine.Pause()
		}
		return nil
	})
	worker(func(i int) error {
		if i%50 == 0 {
			engine.Stop()
		}
		return nil
	})
	worker(func(i int) error {
		if i%100 != 0 {
			return nil
		}
		next := short
		next.StudyMinutes = 1 + i%3
		return engine.UpdateSettings(next)
	})
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected control error: %v", err)
	}

	if err := validateSnapshot(engine.Snapshot(), engine.Settings()); err != nil {
		t.Fatalf("expected consistent final state: %v", err)
	}
	engine.Close()
	if err := <-observed; err != nil {
		t.Fatalf("expected consistent events: %v", err)
	}
}
