package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Timer.IsSet() || cfg.Tasks.Filter != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigTimerSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[timer]\nstudy-minutes = 50\nsessions-before-long-break = 3\n\n[tasks]\nfilter = \"pending\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Timer.StudyMinutes == nil || *cfg.Timer.StudyMinutes != 50 {
		t.Fatalf("expected study-minutes 50, got %v", cfg.Timer.StudyMinutes)
	}
	if cfg.Timer.BreakMinutes != nil {
		t.Fatalf("expected break-minutes unset")
	}
	if cfg.Timer.SessionsBeforeLongBreak == nil || *cfg.Timer.SessionsBeforeLongBreak != 3 {
		t.Fatalf("expected cadence 3, got %v", cfg.Timer.SessionsBeforeLongBreak)
	}
	if cfg.Tasks.Filter == nil || *cfg.Tasks.Filter != "pending" {
		t.Fatalf("expected pending filter, got %v", cfg.Tasks.Filter)
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[timer]\nstudy = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "timer.study") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsHonorXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "studyplanner", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "studyplanner", "studyplanner.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}
