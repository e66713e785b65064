// Package main provides the CLI entrypoint for studyplanner.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/config"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/model"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/pomodoro"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/stats"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/store"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/tasks"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/tui"
)

const defaultStatsDays = 7

var (
	timerStudy     int
	timerBreak     int
	timerLongBreak int
	timerSessions  int

	plannerFilter string

	statsSince string
	statsDays  int
	statsColor bool

	settingsReset bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studyplanner",
		Short:         "Study planner with a Pomodoro timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlannerCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.IntVar(&timerStudy, "study-minutes", pomodoro.DefaultStudyMinutes, "study phase length in minutes")
	flags.IntVar(&timerBreak, "break-minutes", pomodoro.DefaultBreakMinutes, "short break length in minutes")
	flags.IntVar(&timerLongBreak, "long-break-minutes", pomodoro.DefaultLongBreakMinutes, "long break length in minutes")
	flags.IntVar(&timerSessions, "sessions-before-long-break", pomodoro.DefaultSessionsBeforeLongBreak, "study sessions between long breaks")
	rootCmd.Flags().StringVar(&plannerFilter, "filter", string(tasks.FilterAll), "initial task filter (all, pending, completed)")

	rootCmd.AddCommand(newTimerCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runPlannerCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "filter", &plannerFilter, fileCfg.Tasks.Filter)
	filter, err := tasks.ParseFilter(plannerFilter)
	if err != nil {
		return fmt.Errorf("invalid --filter value: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	engine, err := openEngine(ctx, cmd, st, fileCfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	planner := tui.NewModel(engine, st, filter)
	program := tea.NewProgram(planner, tea.WithAltScreen())
	_, runErr := program.Run()
	planner.SaveOnExit()
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

// loadSettings resolves timer settings from flags, the config file and the
// persisted value, and persists the result when it differs from what was
// stored.
func loadSettings(ctx context.Context, cmd *cobra.Command, st pomodoro.Store, fileCfg config.FileConfig) (pomodoro.Settings, error) {
	persisted, err := pomodoro.LoadSettings(ctx, st)
	if err != nil {
		logErrf("failed to load saved settings, using defaults: %v\n", err)
	}
	settings := resolveSettings(cmd, persisted, fileCfg.Timer)
	if err := settings.Validate(); err != nil {
		return pomodoro.Settings{}, fmt.Errorf("invalid timer settings: %w", err)
	}
	if settings != persisted || err != nil {
		if err := pomodoro.SaveSettings(ctx, st, settings); err != nil {
			logErrf("failed to save settings: %v\n", err)
		}
	}
	return settings, nil
}

func resolveSettings(cmd *cobra.Command, base pomodoro.Settings, fileCfg config.TimerConfig) pomodoro.Settings {
	s := base
	applyIntSetting(cmd, "study-minutes", timerStudy, fileCfg.StudyMinutes, &s.StudyMinutes)
	applyIntSetting(cmd, "break-minutes", timerBreak, fileCfg.BreakMinutes, &s.BreakMinutes)
	applyIntSetting(cmd, "long-break-minutes", timerLongBreak, fileCfg.LongBreakMinutes, &s.LongBreakMinutes)
	applyIntSetting(cmd, "sessions-before-long-break", timerSessions, fileCfg.SessionsBeforeLongBreak, &s.SessionsBeforeLongBreak)
	return s
}

func openEngine(ctx context.Context, cmd *cobra.Command, st *store.Store, fileCfg config.FileConfig) (*pomodoro.Engine, error) {
	settings, err := loadSettings(ctx, cmd, st, fileCfg)
	if err != nil {
		return nil, err
	}
	engine, err := pomodoro.NewEngine(settings)
	if err != nil {
		return nil, err
	}
	if _, err := pomodoro.RestoreState(ctx, st, engine); err != nil {
		if errors.Is(err, pomodoro.ErrInvalidSnapshot) {
			logErrf("discarding saved timer state: %v\n", err)
		} else {
			logErrf("failed to restore timer state: %v\n", err)
		}
	}
	return engine, nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show focus and task stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsDays, "days", defaultStatsDays, "days shown in the per-day chart")
	cmd.Flags().BoolVar(&statsColor, "color", false, "force coloured chart output")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	cfg := model.StatsConfig{Since: sinceTime, Days: statsDays}
	report, err := stats.BuildReport(context.Background(), st, cfg, time.Now())
	if err != nil {
		if report.Days == nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		logErrf("task stats unavailable: %v\n", err)
	}
	if err := stats.Render(cmd.OutOrStdout(), report, stats.ChartOptions{ForceColor: statsColor}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change saved timer settings",
		Long:  "Show the saved timer settings. Pass --study-minutes and friends to change them.",
		Args:  cobra.NoArgs,
		RunE:  runSettingsCmd,
	}
	cmd.Flags().BoolVar(&settingsReset, "reset", false, "restore default settings")
	return cmd
}

func runSettingsCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	var settings pomodoro.Settings
	if settingsReset {
		settings = pomodoro.DefaultSettings()
		if err := pomodoro.SaveSettings(ctx, st, settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		if err := st.Delete(ctx, pomodoro.StateKey); err != nil {
			return fmt.Errorf("failed to clear timer state: %w", err)
		}
		logErrln("Settings reset to defaults.")
	} else {
		// The config file is applied by the planner and timer at launch;
		// here only explicit flags change what is saved.
		settings, err = loadSettings(ctx, cmd, st, config.FileConfig{})
		if err != nil {
			return err
		}
	}
	return writeSettings(cmd, settings)
}

func writeSettings(cmd *cobra.Command, s pomodoro.Settings) error {
	rows := [][]string{
		{"study-minutes", fmt.Sprintf("%d", s.StudyMinutes)},
		{"break-minutes", fmt.Sprintf("%d", s.BreakMinutes)},
		{"long-break-minutes", fmt.Sprintf("%d", s.LongBreakMinutes)},
		{"sessions-before-long-break", fmt.Sprintf("%d", s.SessionsBeforeLongBreak)},
	}
	if err := stats.WriteTable(cmd.OutOrStdout(), nil, rows, map[int]bool{1: true}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

// applyIntSetting overrides target with the flag when it was given, else with
// the config value when it is set.
func applyIntSetting(cmd *cobra.Command, name string, flagValue int, fileValue, target *int) {
	if cmd.Flags().Changed(name) {
		*target = flagValue
		return
	}
	if fileValue != nil {
		*target = *fileValue
	}
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# studyplanner configuration
# Uncomment a value to enable it. CLI flags override config values.
# Config values override the settings saved from the planner.

[timer]
# study-minutes = %d                # Study phase length in minutes
# break-minutes = %d                 # Short break length in minutes
# long-break-minutes = %d           # Long break length in minutes
# sessions-before-long-break = %d    # Study sessions between long breaks

[tasks]
# filter = %q                    # Initial task filter: all, pending, completed
`,
		pomodoro.DefaultStudyMinutes,
		pomodoro.DefaultBreakMinutes,
		pomodoro.DefaultLongBreakMinutes,
		pomodoro.DefaultSessionsBeforeLongBreak,
		string(tasks.FilterAll),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
