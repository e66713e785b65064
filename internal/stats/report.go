package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/model"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/store"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/tasks"
)

const defaultDays = 7

// Report contains precomputed data for stats rendering.
type Report struct {
	Focus FocusSummary
	Days  []model.DaySummary
	Tasks tasks.Summary
}

// BuildReport loads phase history and the task list and aggregates them.
// A corrupt task list is reported as an error; the caller decides whether
// to print the focus part anyway.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig, now time.Time) (Report, error) {
	days := cfg.Days
	if days <= 0 {
		days = defaultDays
	}
	phases, err := st.ListPhases(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		Focus: SummarizePhases(phases, now),
		Days:  DailyFocus(phases, now, days),
	}
	list, err := tasks.NewList(st).Load(ctx)
	report.Tasks = tasks.Summarize(list)
	if err != nil {
		return report, fmt.Errorf("load tasks: %w", err)
	}
	return report, nil
}

// Render writes the full report.
func Render(w io.Writer, report Report, opts ChartOptions) error {
	if err := RenderSummary(w, report.Focus, report.Tasks); err != nil {
		return err
	}
	if err := RenderDailyTable(w, report.Days); err != nil {
		return err
	}
	return RenderDailyChart(w, report.Days, opts)
}
