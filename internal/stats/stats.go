// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/model"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/pomodoro"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/tasks"
)

// FocusSummary aggregates completed timer phases.
type FocusSummary struct {
	StudySessions  int
	FocusSeconds   int
	Breaks         int
	LongBreaks     int
	TodaySessions  int
	TodaySeconds   int
	AverageSeconds int
}

// SummarizePhases counts study and break phases; "today" is the local
// calendar day of now.
func SummarizePhases(phases []model.PhaseRecord, now time.Time) FocusSummary {
	var s FocusSummary
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	for _, p := range phases {
		if p.Phase != string(pomodoro.PhaseStudy) {
			s.Breaks++
			if p.LongBreak {
				s.LongBreaks++
			}
			continue
		}
		s.StudySessions++
		s.FocusSeconds += p.DurationSec
		ended := p.EndedAt.In(now.Location())
		if !ended.Before(today) && ended.Before(tomorrow) {
			s.TodaySessions++
			s.TodaySeconds += p.DurationSec
		}
	}
	if s.StudySessions > 0 {
		s.AverageSeconds = s.FocusSeconds / s.StudySessions
	}
	return s
}

// DailyFocus buckets study phases into the last days calendar days ending
// with now's day, oldest first. Days without sessions are included.
func DailyFocus(phases []model.PhaseRecord, now time.Time, days int) []model.DaySummary {
	if days <= 0 {
		return nil
	}
	first := startOfDay(now).AddDate(0, 0, -(days - 1))
	out := make([]model.DaySummary, days)
	for i := range out {
		out[i].Day = first.AddDate(0, 0, i)
	}
	for _, p := range phases {
		if p.Phase != string(pomodoro.PhaseStudy) {
			continue
		}
		ended := p.EndedAt.In(now.Location())
		if ended.Before(first) {
			continue
		}
		idx := dayIndex(first, startOfDay(ended))
		if idx < 0 || idx >= days {
			continue
		}
		out[idx].Sessions++
		out[idx].FocusSeconds += p.DurationSec
	}
	return out
}

// dayIndex counts calendar days between two midnights; DST shifts make the
// raw hour difference unreliable.
func dayIndex(first, day time.Time) int {
	idx := 0
	for d := first; d.Before(day); d = d.AddDate(0, 0, 1) {
		idx++
	}
	return idx
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatMinutes renders seconds as "1h 05m" or "25m".
func FormatMinutes(seconds int) string {
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// FormatClock renders seconds as mm:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// RenderSummary prints the focus and task summaries.
func RenderSummary(w io.Writer, focus FocusSummary, taskSummary tasks.Summary) error {
	lines := []string{
		"Summary",
		fmt.Sprintf("Study sessions: %d", focus.StudySessions),
		fmt.Sprintf("Focus time: %s", FormatMinutes(focus.FocusSeconds)),
		fmt.Sprintf("Average session: %s", FormatMinutes(focus.AverageSeconds)),
		fmt.Sprintf("Today: %d sessions, %s", focus.TodaySessions, FormatMinutes(focus.TodaySeconds)),
		fmt.Sprintf("Breaks: %d (%d long)", focus.Breaks, focus.LongBreaks),
		"",
		"Tasks",
		fmt.Sprintf("Total: %d", taskSummary.Total),
		fmt.Sprintf("Pending: %d", taskSummary.Pending),
		fmt.Sprintf("Completed: %d", taskSummary.Completed),
		fmt.Sprintf("Completion rate: %d%%", taskSummary.CompletionRate),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderDailyTable prints sessions and focus minutes per day.
func RenderDailyTable(w io.Writer, days []model.DaySummary) error {
	if len(days) == 0 {
		_, err := fmt.Fprintln(w, "No days to show.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per Day"); err != nil {
		return err
	}
	headers := []string{"Day", "Sessions", "Focus"}
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Day.Format("Mon Jan 02"),
			fmt.Sprintf("%d", d.Sessions),
			FormatMinutes(d.FocusSeconds),
		})
	}
	if err := WriteTable(w, headers, rows, map[int]bool{1: true, 2: true}); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
