package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/config"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/pomodoro"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/stats"
)

const (
	timerLineWidthBackup = 80
	timerBarWidthMax     = 40
)

func newTimerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timer",
		Short: "Run the current timer phase in the terminal",
		Long:  "Run the current phase until it completes, then exit. Ctrl-C pauses and saves the countdown.",
		Args:  cobra.NoArgs,
		RunE:  runTimerCmd,
	}
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := openEngine(ctx, cmd, st, fileCfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	events := engine.Subscribe(16)
	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start timer: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(runCtx, time.Second)
	}()
	halt := func() {
		cancel()
		<-done
	}

	line := newTimerLine(cmd.OutOrStdout())
	line.render(engine.Snapshot())
	for {
		select {
		case <-ctx.Done():
			halt()
			engine.Pause()
			line.finish()
			if err := pomodoro.SaveState(context.Background(), st, engine); err != nil {
				return fmt.Errorf("failed to save timer state: %w", err)
			}
			logErrf("Paused with %s left; state saved.\n", stats.FormatClock(engine.Snapshot().RemainingSeconds))
			return nil
		case event := <-events:
			switch event.Type {
			case pomodoro.EventTick:
				line.render(event.State)
			case pomodoro.EventTransition:
				halt()
				line.finish()
				saveCtx := context.Background()
				if err := pomodoro.RecordPhase(saveCtx, st, event); err != nil {
					logErrf("failed to record phase: %v\n", err)
				}
				if err := pomodoro.SaveState(saveCtx, st, engine); err != nil {
					logErrf("failed to save timer state: %v\n", err)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), completionMessage(event))
				if err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				return nil
			}
		}
	}
}

func completionMessage(event pomodoro.Event) string {
	next := event.State.Phase.Label(event.State.LongBreak)
	completed := event.Completed.Label(event.CompletedLong)
	return fmt.Sprintf("%s complete (%s). Next: %s %s. Run `studyplanner timer` to start it.",
		completed,
		stats.FormatMinutes(event.CompletedSeconds),
		strings.ToLower(next),
		stats.FormatClock(event.State.TotalSeconds),
	)
}

// timerLine redraws one status line on a terminal and falls back to one line
// per minute otherwise.
type timerLine struct {
	w     io.Writer
	live  bool
	width int
	drawn bool
}

func newTimerLine(w io.Writer) *timerLine {
	line := &timerLine{w: w, width: timerLineWidthBackup}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		line.live = true
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			line.width = width
		}
	}
	return line
}

func (l *timerLine) render(state pomodoro.State) {
	if !l.live && l.drawn && state.RemainingSeconds%60 != 0 {
		return
	}
	text := formatTimerLine(state, l.width)
	if l.live {
		text = "\r\x1b[2K" + text
	} else {
		text += "\n"
	}
	_, _ = io.WriteString(l.w, text)
	l.drawn = true
}

func (l *timerLine) finish() {
	if !l.live || !l.drawn {
		return
	}
	_, _ = io.WriteString(l.w, "\n")
}

func formatTimerLine(state pomodoro.State, width int) string {
	head := fmt.Sprintf("%s %s ", state.Phase.Label(state.LongBreak), stats.FormatClock(state.RemainingSeconds))
	tail := fmt.Sprintf(" %3.0f%%  session %d", state.ProgressPercent(), state.CurrentSessionIndex+1)
	barWidth := width - len(head) - len(tail) - 2
	if barWidth > timerBarWidthMax {
		barWidth = timerBarWidthMax
	}
	if barWidth < 0 {
		barWidth = 0
	}
	filled := int(state.ProgressPercent() / 100 * float64(barWidth))
	bar := "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
	return head + bar + tail
}
