package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/config"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/pomodoro"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/store"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/tasks"
)

func parsedRoot(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	root := newRootCmd()
	if err := root.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return root
}

func intPtr(v int) *int {
	return &v
}

func TestResolveSettingsPrecedence(t *testing.T) {
	persisted := pomodoro.Settings{StudyMinutes: 40, BreakMinutes: 8, LongBreakMinutes: 20, SessionsBeforeLongBreak: 3}
	fileCfg := config.TimerConfig{StudyMinutes: intPtr(30), BreakMinutes: intPtr(6)}
	root := parsedRoot(t, "--study-minutes", "50")

	got := resolveSettings(root, persisted, fileCfg)
	want := pomodoro.Settings{StudyMinutes: 50, BreakMinutes: 6, LongBreakMinutes: 20, SessionsBeforeLongBreak: 3}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestResolveSettingsKeepsPersistedWithoutOverrides(t *testing.T) {
	persisted := pomodoro.Settings{StudyMinutes: 40, BreakMinutes: 8, LongBreakMinutes: 20, SessionsBeforeLongBreak: 3}
	got := resolveSettings(parsedRoot(t), persisted, config.TimerConfig{})
	if got != persisted {
		t.Fatalf("expected persisted settings, got %+v", got)
	}
}

func TestLoadSettingsRejectsInvalidFlag(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "studyplanner.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()

	if _, err := loadSettings(ctx, parsedRoot(t, "--break-minutes", "0"), st, config.FileConfig{}); err == nil {
		t.Fatalf("expected invalid settings error")
	}
	if _, ok, _ := st.Get(ctx, pomodoro.SettingsKey); ok {
		t.Fatalf("invalid settings were persisted")
	}

	got, err := loadSettings(ctx, parsedRoot(t, "--study-minutes", "45"), st, config.FileConfig{})
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	saved, err := pomodoro.LoadSettings(ctx, st)
	if err != nil || saved != got || saved.StudyMinutes != 45 {
		t.Fatalf("expected saved override, got %+v err=%v", saved, err)
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	uncomment := regexp.MustCompile(`(?m)^# ([a-z-]+ = )`)
	body := uncomment.ReplaceAllString(defaultConfigTemplate(), "$1")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load template: %v\n%s", err, body)
	}
	if cfg.Timer.StudyMinutes == nil || *cfg.Timer.StudyMinutes != pomodoro.DefaultStudyMinutes {
		t.Fatalf("unexpected study minutes %+v", cfg.Timer)
	}
	if cfg.Tasks.Filter == nil || *cfg.Tasks.Filter != string(tasks.FilterAll) {
		t.Fatalf("unexpected filter %+v", cfg.Tasks)
	}
}

func TestFormatTimerLine(t *testing.T) {
	state := pomodoro.State{Phase: pomodoro.PhaseStudy, RemainingSeconds: 750, TotalSeconds: 1500}
	got := formatTimerLine(state, 61)
	if !strings.HasPrefix(got, "Study 12:30 [") || !strings.HasSuffix(got, " 50%  session 1") {
		t.Fatalf("unexpected timer line %q", got)
	}
	if len(got) > 61 {
		t.Fatalf("expected line to fit width, got %d", len(got))
	}
	if strings.Count(got, "#") != strings.Count(got, "-") {
		t.Fatalf("expected half-filled bar in %q", got)
	}
}

func TestTimerLineFallsBackToMinuteLines(t *testing.T) {
	var buf bytes.Buffer
	line := newTimerLine(&buf)
	state := pomodoro.State{Phase: pomodoro.PhaseStudy, RemainingSeconds: 1500, TotalSeconds: 1500}
	line.render(state)
	for _, remaining := range []int{1499, 1461, 1440} {
		state.RemainingSeconds = remaining
		line.render(state)
	}
	line.finish()
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Fatalf("expected two lines for non-terminal output, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "\x1b") {
		t.Fatalf("expected no escape codes for non-terminal output")
	}
}

func TestCompletionMessage(t *testing.T) {
	event := pomodoro.Event{
		Type:             pomodoro.EventTransition,
		Completed:        pomodoro.PhaseStudy,
		CompletedSeconds: 1500,
		State:            pomodoro.State{Phase: pomodoro.PhaseBreak, LongBreak: true, TotalSeconds: 900, RemainingSeconds: 900},
		At:               time.Now(),
	}
	got := completionMessage(event)
	if got != "Study complete (25m). Next: long break 15:00. Run `studyplanner timer` to start it." {
		t.Fatalf("unexpected completion message %q", got)
	}
}

func TestWriteTaskTable(t *testing.T) {
	var buf bytes.Buffer
	list := []tasks.Task{
		{ID: "0123456789", Title: "Read", Subject: "History", DueDate: "2024-03-07", Priority: tasks.PriorityHigh, Completed: true},
	}
	if err := writeTaskTable(&buf, list, tasks.Summarize(list), false); err != nil {
		t.Fatalf("write table: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"01234567", "[x]", "Mar 07, 2024", "1 tasks, 0 pending, 1 completed (100%)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789") {
		t.Fatalf("expected short id in output")
	}
}
