package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/model"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	terminalWidthBackup = 80
	minBarWidth         = 10
	barGlyph            = "█"
	colorFocus          = "\x1b[36m"
	colorReset          = "\x1b[0m"
)

// ChartOptions controls daily chart rendering.
type ChartOptions struct {
	Width      int
	ForceColor bool
}

// RenderDailyChart draws a horizontal bar per day scaled to the busiest day.
func RenderDailyChart(w io.Writer, days []model.DaySummary, opts ChartOptions) error {
	if len(days) == 0 {
		return nil
	}
	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}
	useColor := shouldUseColor(w, opts.ForceColor)

	labels := make([]string, len(days))
	values := make([]string, len(days))
	labelWidth, valueWidth, maxSeconds := 0, 0, 0
	for i, d := range days {
		labels[i] = d.Day.Format("Mon 02")
		values[i] = FormatMinutes(d.FocusSeconds)
		labelWidth = max(labelWidth, runewidth.StringWidth(labels[i]))
		valueWidth = max(valueWidth, runewidth.StringWidth(values[i]))
		maxSeconds = max(maxSeconds, d.FocusSeconds)
	}
	barWidth := BarWidthFor(width, labelWidth, valueWidth)

	if _, err := fmt.Fprintln(w, "Focus by Day"); err != nil {
		return err
	}
	for i, d := range days {
		bar := strings.Repeat(barGlyph, scaleBar(d.FocusSeconds, maxSeconds, barWidth))
		if useColor && bar != "" {
			bar = colorFocus + bar + colorReset
		}
		line := fmt.Sprintf("%s │%s %s",
			runewidth.FillRight(labels[i], labelWidth),
			bar,
			values[i],
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// BarWidthFor returns the bar area left after the label and value columns.
func BarWidthFor(totalWidth, labelWidth, valueWidth int) int {
	if totalWidth <= 0 {
		totalWidth = terminalWidthBackup
	}
	// label, " │", bar, " ", value
	bar := totalWidth - labelWidth - 2 - 1 - valueWidth
	if bar < minBarWidth {
		bar = minBarWidth
	}
	return bar
}

func scaleBar(value, maxValue, width int) int {
	if value <= 0 || maxValue <= 0 || width <= 0 {
		return 0
	}
	n := value * width / maxValue
	if n == 0 {
		n = 1
	}
	return n
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
