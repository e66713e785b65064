// Package tui provides the Bubble Tea study planner interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/pomodoro"
	statsPkg "github.com/KasthuriRaja-M/Study-Planner-App/internal/stats"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/tasks"
)

type mode int

const (
	modeNormal mode = iota
	modeSettings
	modeTask
)

// Store is the persistence the planner needs: the key-value port plus the
// completed phase log.
type Store interface {
	pomodoro.Store
	pomodoro.PhaseRecorder
}

type tickMsg time.Time

// Model implements the Bubble Tea planner UI.
type Model struct {
	engine *pomodoro.Engine
	store  Store
	list   *tasks.List

	tasks     []tasks.Task
	visible   []tasks.Task
	filter    tasks.Filter
	taskTable table.Model

	width  int
	height int

	mode           mode
	settingsInputs []textinput.Model
	taskInputs     []textinput.Model
	formIndex      int
	formError      string
	editingID      string

	status  string
	errMsg  string
	listErr string
}

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	timerCardStudyStyle = cardStyle.
				BorderForeground(lipgloss.Color("#dc3545"))
	timerCardBreakStyle = cardStyle.
				BorderForeground(lipgloss.Color("#28a745"))
	cardTitleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	clockStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	progressFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	progressEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	modalStyle         = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A")).
				Padding(1, 2)
)

// NewModel constructs the planner model. The engine should already carry the
// persisted settings and any restored snapshot.
func NewModel(engine *pomodoro.Engine, st Store, filter tasks.Filter) *Model {
	if filter == "" {
		filter = tasks.FilterAll
	}
	m := &Model{
		engine: engine,
		store:  st,
		list:   tasks.NewList(st),
		filter: filter,
	}
	m.initInputs()
	m.initTaskTable()
	m.reloadTasks()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tickMsg:
		m.handleEvent(m.engine.Tick())
		return m, tick()
	case tea.KeyMsg:
		if m.mode != modeNormal {
			return m.updateForm(msg)
		}
		return m.updateNormal(msg)
	default:
		return m, nil
	}
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errMsg = ""
	if msg.Type == tea.KeyCtrlC {
		m.persistState()
		return m, tea.Quit
	}
	switch msg.String() {
	case "q":
		m.persistState()
		return m, tea.Quit
	case " ", "s":
		m.toggleTimer()
	case "x":
		m.engine.Stop()
		m.persistState()
		m.status = "Timer reset."
	case "e":
		return m.startSettingsForm()
	case "a":
		return m.startTaskForm(nil)
	case "enter":
		if task, ok := m.selectedTask(); ok {
			return m.startTaskForm(&task)
		}
	case "c":
		m.toggleSelected()
	case "d":
		m.deleteSelected()
	case "f":
		m.filter = m.filter.Next()
		m.refreshTable()
	case "up", "k":
		m.taskTable.MoveUp(1)
	case "down", "j":
		m.taskTable.MoveDown(1)
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.mode != modeNormal {
		return m.renderForm()
	}
	header := m.renderHeader()
	cards := m.renderCards()
	footer := m.renderFooter()
	body := m.renderTasks()
	if m.width == 0 || m.height == 0 {
		return strings.Join([]string{header, cards, body, footer}, "\n")
	}
	used := lipgloss.Height(header) + lipgloss.Height(cards) + lipgloss.Height(footer)
	bodyHeight := maxInt(1, m.height-used)
	return strings.Join([]string{
		fitLines(header, m.width, lipgloss.Height(header)),
		fitLines(cards, m.width, lipgloss.Height(cards)),
		fitLines(body, m.width, bodyHeight),
		fitLines(footer, m.width, lipgloss.Height(footer)),
	}, "\n")
}

func (m *Model) toggleTimer() {
	if m.engine.Snapshot().IsRunning {
		m.engine.Pause()
		m.persistState()
		m.status = "Paused."
		return
	}
	if err := m.engine.Start(); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.status = ""
	m.errMsg = ""
}

func (m *Model) handleEvent(event pomodoro.Event) {
	if event.Type != pomodoro.EventTransition {
		return
	}
	ctx := context.Background()
	if err := pomodoro.RecordPhase(ctx, m.store, event); err != nil {
		m.errMsg = err.Error()
	}
	m.persistState()
	m.status = transitionMessage(event)
}

func transitionMessage(event pomodoro.Event) string {
	if event.Completed == pomodoro.PhaseStudy {
		next := strings.ToLower(event.State.Phase.Label(event.State.LongBreak))
		return fmt.Sprintf("Study session complete. Press space to start your %s.", next)
	}
	return "Break over. Press space to start studying."
}

func (m *Model) persistState() {
	if err := pomodoro.SaveState(context.Background(), m.store, m.engine); err != nil {
		m.errMsg = err.Error()
	}
}

func (m *Model) reloadTasks() {
	list, err := m.list.Load(context.Background())
	m.listErr = ""
	if err != nil {
		m.listErr = fmt.Sprintf("%v (run `studyplanner tasks clear --force` to reset)", err)
	}
	m.tasks = list
	m.refreshTable()
}

func (m *Model) selectedTask() (tasks.Task, bool) {
	idx := m.taskTable.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return tasks.Task{}, false
	}
	return m.visible[idx], true
}

func (m *Model) toggleSelected() {
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	updated, err := m.list.Toggle(context.Background(), task.ID)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	if updated.Completed {
		m.status = fmt.Sprintf("Completed %q.", updated.Title)
	} else {
		m.status = fmt.Sprintf("Reopened %q.", updated.Title)
	}
	m.reloadTasks()
}

func (m *Model) deleteSelected() {
	task, ok := m.selectedTask()
	if !ok {
		return
	}
	if err := m.list.Delete(context.Background(), task.ID); err != nil {
		if !errors.Is(err, tasks.ErrTaskNotFound) {
			m.errMsg = err.Error()
			return
		}
	}
	m.status = fmt.Sprintf("Deleted %q.", task.Title)
	m.reloadTasks()
}

func (m *Model) initTaskTable() {
	m.taskTable = table.New(
		table.WithColumns(taskColumns(0)),
		table.WithHeight(5),
		table.WithFocused(true),
	)
	m.taskTable.SetStyles(taskTableStyles())
}

func taskColumns(width int) []table.Column {
	fixed := 4 + 14 + 13 + 8
	title := maxInt(16, width-fixed-10)
	return []table.Column{
		{Title: "Done", Width: 4},
		{Title: "Title", Width: title},
		{Title: "Subject", Width: 14},
		{Title: "Due", Width: 13},
		{Title: "Priority", Width: 8},
	}
}

func (m *Model) refreshTable() {
	m.visible = m.filter.Apply(m.tasks)
	rows := make([]table.Row, 0, len(m.visible))
	for _, t := range m.visible {
		done := "[ ]"
		if t.Completed {
			done = "[x]"
		}
		rows = append(rows, table.Row{
			done,
			t.Title,
			t.Subject,
			tasks.FormatDue(t.DueDate),
			string(t.Priority),
		})
	}
	m.taskTable.SetRows(rows)
	if cursor := m.taskTable.Cursor(); cursor >= len(rows) {
		m.taskTable.SetCursor(maxInt(0, len(rows)-1))
	}
}

func taskTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.taskTable.SetColumns(taskColumns(m.width))
	m.taskTable.SetWidth(m.width)
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderCards()) + lipgloss.Height(m.renderFooter())
	// table header plus the selected task detail block
	m.taskTable.SetHeight(maxInt(3, m.height-used-6))
	m.updateInputWidths()
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("Study Planner")
	summary := headerStyle.Render(fmt.Sprintf("  filter=%s  tasks=%d", m.filter, len(m.tasks)))
	return title + summary
}

func (m *Model) renderCards() string {
	timer := m.renderTimerCard()
	summary := tasks.Summarize(m.tasks)
	cards := []string{
		metricCard("Total", fmt.Sprintf("%d", summary.Total)),
		metricCard("Pending", fmt.Sprintf("%d", summary.Pending)),
		metricCard("Completed", fmt.Sprintf("%d", summary.Completed)),
		metricCard("Rate", fmt.Sprintf("%d%%", summary.CompletionRate)),
	}
	if m.width > 0 && m.width < 80 {
		return lipgloss.JoinVertical(lipgloss.Left, timer, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, append([]string{timer}, cards...)...)
}

func (m *Model) renderTimerCard() string {
	state := m.engine.Snapshot()
	label := state.Phase.Label(state.LongBreak)
	run := "paused"
	if state.IsRunning {
		run = "running"
	}
	lines := []string{
		cardTitleStyle.Render(fmt.Sprintf("%s · %s", label, run)),
		clockStyle.Render(statsPkg.FormatClock(state.RemainingSeconds)),
		progressBar(state.ProgressPercent(), 24),
		cardTitleStyle.Render(fmt.Sprintf("Session %d · %d done", state.CurrentSessionIndex+1, state.CompletedStudySessions)),
	}
	style := timerCardStudyStyle
	if state.Phase == pomodoro.PhaseBreak {
		style = timerCardBreakStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func (m *Model) renderTasks() string {
	if len(m.visible) == 0 {
		if len(m.tasks) == 0 {
			return statusStyle.Render("No tasks yet. Press a to add one.")
		}
		return statusStyle.Render(fmt.Sprintf("No %s tasks.", m.filter))
	}
	view := m.taskTable.View()
	if detail := m.renderDetail(); detail != "" {
		view += "\n" + detail
	}
	return view
}

func (m *Model) renderDetail() string {
	task, ok := m.selectedTask()
	if !ok {
		return ""
	}
	priority := lipgloss.NewStyle().
		Foreground(lipgloss.Color(tasks.PriorityColor(task.Priority))).
		Render(string(task.Priority))
	lines := []string{headerStyle.Render("Priority: ") + priority}
	if task.Description != "" {
		width := m.width
		if width <= 0 {
			width = 80
		}
		lines = append(lines, statusStyle.Render(wrapText(task.Description, width)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	help := "space: start/pause  x: reset  e: settings  a: add  enter: edit  c: done  d: delete  f: filter  q: quit"
	lines := []string{headerStyle.Render(truncateLine(help, m.width))}
	if m.status != "" {
		lines = append(lines, statusStyle.Render(truncateLine(m.status, m.width)))
	}
	for _, msg := range []string{m.listErr, m.errMsg} {
		if msg != "" {
			lines = append(lines, errorStyle.Render(truncateLine(msg, m.width)))
		}
	}
	return strings.Join(lines, "\n")
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

// SaveOnExit persists the timer snapshot once the program has returned and
// reports failures on stderr.
func (m *Model) SaveOnExit() {
	if err := pomodoro.SaveState(context.Background(), m.store, m.engine); err != nil {
		logErrf("failed to save timer state: %v\n", err)
	}
}
