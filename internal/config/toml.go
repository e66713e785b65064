// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Timer TimerConfig `toml:"timer"`
	Tasks TasksConfig `toml:"tasks"`
}

// TimerConfig maps timer duration settings.
type TimerConfig struct {
	StudyMinutes            *int `toml:"study-minutes"`
	BreakMinutes            *int `toml:"break-minutes"`
	LongBreakMinutes        *int `toml:"long-break-minutes"`
	SessionsBeforeLongBreak *int `toml:"sessions-before-long-break"`
}

// TasksConfig maps task list settings.
type TasksConfig struct {
	Filter *string `toml:"filter"`
}

// IsSet reports whether any timer value is configured.
func (c TimerConfig) IsSet() bool {
	return c.StudyMinutes != nil || c.BreakMinutes != nil || c.LongBreakMinutes != nil || c.SessionsBeforeLongBreak != nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
