// Package pomodoro implements the study timer state machine.
package pomodoro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// SettingsKey is the persistence key holding the encoded timer settings.
const SettingsKey = "timerSettings"

const (
	DefaultStudyMinutes            = 25
	DefaultBreakMinutes            = 5
	DefaultLongBreakMinutes        = 15
	DefaultSessionsBeforeLongBreak = 4
)

// MaxPhaseMinutes caps a single phase at one day.
const MaxPhaseMinutes = 24 * 60

var (
	// ErrInvalidConfiguration reports malformed or out-of-range settings.
	ErrInvalidConfiguration = errors.New("invalid timer configuration")
	// ErrInvalidTransition reports a control call the current state cannot accept.
	ErrInvalidTransition = errors.New("invalid timer transition")
	// ErrInvalidSnapshot reports a persisted state that cannot be restored.
	ErrInvalidSnapshot = errors.New("invalid timer snapshot")
)

// Store is the key-value persistence port.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Settings holds the durations of a Pomodoro cycle.
type Settings struct {
	StudyMinutes            int `json:"studyMinutes"`
	BreakMinutes            int `json:"breakMinutes"`
	LongBreakMinutes        int `json:"longBreakMinutes"`
	SessionsBeforeLongBreak int `json:"sessionsBeforeLongBreak"`
}

// DefaultSettings returns the 25/5/15 cycle with a long break every 4 sessions.
func DefaultSettings() Settings {
	return Settings{
		StudyMinutes:            DefaultStudyMinutes,
		BreakMinutes:            DefaultBreakMinutes,
		LongBreakMinutes:        DefaultLongBreakMinutes,
		SessionsBeforeLongBreak: DefaultSessionsBeforeLongBreak,
	}
}

// Validate checks that every field is a positive integer and that no phase
// is longer than MaxPhaseMinutes.
func (s Settings) Validate() error {
	for _, f := range s.fields() {
		if f.value <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %d", ErrInvalidConfiguration, f.name, f.value)
		}
		if f.max > 0 && f.value > f.max {
			return fmt.Errorf("%w: %s must be <= %d, got %d", ErrInvalidConfiguration, f.name, f.max, f.value)
		}
	}
	return nil
}

type settingsField struct {
	name  string
	value int
	max   int
}

func (s Settings) fields() []settingsField {
	return []settingsField{
		{name: "studyMinutes", value: s.StudyMinutes, max: MaxPhaseMinutes},
		{name: "breakMinutes", value: s.BreakMinutes, max: MaxPhaseMinutes},
		{name: "longBreakMinutes", value: s.LongBreakMinutes, max: MaxPhaseMinutes},
		{name: "sessionsBeforeLongBreak", value: s.SessionsBeforeLongBreak},
	}
}

// ParseSettings decodes and validates a JSON settings object. Each of the four
// fields must be present and hold a positive integral JSON number.
func ParseSettings(raw []byte) (Settings, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if fields == nil {
		return Settings{}, fmt.Errorf("%w: settings must be an object", ErrInvalidConfiguration)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("%w: trailing data after settings object", ErrInvalidConfiguration)
	}

	var s Settings
	targets := []struct {
		name   string
		target *int
	}{
		{name: "studyMinutes", target: &s.StudyMinutes},
		{name: "breakMinutes", target: &s.BreakMinutes},
		{name: "longBreakMinutes", target: &s.LongBreakMinutes},
		{name: "sessionsBeforeLongBreak", target: &s.SessionsBeforeLongBreak},
	}
	for _, t := range targets {
		value, ok := fields[t.name]
		if !ok {
			return Settings{}, fmt.Errorf("%w: %s is missing", ErrInvalidConfiguration, t.name)
		}
		num, ok := value.(json.Number)
		if !ok {
			return Settings{}, fmt.Errorf("%w: %s must be a number", ErrInvalidConfiguration, t.name)
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %s must be an integer, got %s", ErrInvalidConfiguration, t.name, num)
		}
		*t.target = n
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings reads settings from the store. The returned settings are always
// usable: absence yields the defaults with a nil error, while unreadable or
// invalid data yields the defaults together with the error.
func LoadSettings(ctx context.Context, st Store) (Settings, error) {
	raw, ok, err := st.Get(ctx, SettingsKey)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("read timer settings: %w", err)
	}
	if !ok {
		return DefaultSettings(), nil
	}
	s, err := ParseSettings([]byte(raw))
	if err != nil {
		return DefaultSettings(), err
	}
	return s, nil
}

// SaveSettings validates and persists settings.
func SaveSettings(ctx context.Context, st Store, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal timer settings: %w", err)
	}
	if err := st.Set(ctx, SettingsKey, string(payload)); err != nil {
		return fmt.Errorf("write timer settings: %w", err)
	}
	return nil
}
