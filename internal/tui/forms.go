package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/KasthuriRaja-M/Study-Planner-App/internal/pomodoro"
	"github.com/KasthuriRaja-M/Study-Planner-App/internal/tasks"
)

const (
	taskFieldTitle = iota
	taskFieldSubject
	taskFieldDue
	taskFieldPriority
	taskFieldDescription
)

func newFormInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) initInputs() {
	m.settingsInputs = []textinput.Model{
		newFormInput("Study minutes: "),
		newFormInput("Break minutes: "),
		newFormInput("Long break minutes: "),
		newFormInput("Sessions before long break: "),
	}
	m.taskInputs = []textinput.Model{
		newFormInput("Title: "),
		newFormInput("Subject: "),
		newFormInput("Due (YYYY-MM-DD): "),
		newFormInput("Priority (low/medium/high): "),
		newFormInput("Description: "),
	}
	m.taskInputs[taskFieldPriority].Placeholder = string(tasks.PriorityMedium)
}

func (m *Model) activeInputs() []textinput.Model {
	switch m.mode {
	case modeSettings:
		return m.settingsInputs
	case modeTask:
		return m.taskInputs
	default:
		return nil
	}
}

func (m *Model) startSettingsForm() (tea.Model, tea.Cmd) {
	s := m.engine.Settings()
	values := []int{s.StudyMinutes, s.BreakMinutes, s.LongBreakMinutes, s.SessionsBeforeLongBreak}
	for i, v := range values {
		m.settingsInputs[i].SetValue(strconv.Itoa(v))
	}
	m.mode = modeSettings
	m.formError = ""
	return m, m.setFormIndex(0)
}

func (m *Model) startTaskForm(task *tasks.Task) (tea.Model, tea.Cmd) {
	for i := range m.taskInputs {
		m.taskInputs[i].SetValue("")
	}
	m.editingID = ""
	if task != nil {
		m.editingID = task.ID
		m.taskInputs[taskFieldTitle].SetValue(task.Title)
		m.taskInputs[taskFieldSubject].SetValue(task.Subject)
		m.taskInputs[taskFieldDue].SetValue(task.DueDate)
		m.taskInputs[taskFieldPriority].SetValue(string(task.Priority))
		m.taskInputs[taskFieldDescription].SetValue(task.Description)
	}
	m.mode = modeTask
	m.formError = ""
	return m, m.setFormIndex(0)
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.persistState()
		return m, tea.Quit
	case tea.KeyEsc:
		m.closeForm()
		return m, nil
	case tea.KeyEnter:
		var err error
		if m.mode == modeSettings {
			err = m.applySettingsForm()
		} else {
			err = m.applyTaskForm()
		}
		if err != nil {
			m.formError = err.Error()
			return m, nil
		}
		m.closeForm()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.setFormIndex(m.formIndex + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.setFormIndex(m.formIndex - 1)
	}
	inputs := m.activeInputs()
	if len(inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	inputs[m.formIndex], cmd = inputs[m.formIndex].Update(msg)
	return m, cmd
}

func (m *Model) closeForm() {
	m.mode = modeNormal
	m.formError = ""
	m.editingID = ""
	for i := range m.settingsInputs {
		m.settingsInputs[i].Blur()
	}
	for i := range m.taskInputs {
		m.taskInputs[i].Blur()
	}
}

func (m *Model) setFormIndex(idx int) tea.Cmd {
	inputs := m.activeInputs()
	count := len(inputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.formIndex = idx
	var cmd tea.Cmd
	for i := range inputs {
		if i == m.formIndex {
			cmd = inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applySettingsForm() error {
	names := []string{"study minutes", "break minutes", "long break minutes", "sessions before long break"}
	values := make([]int, len(m.settingsInputs))
	for i, input := range m.settingsInputs {
		parsed, err := strconv.Atoi(strings.TrimSpace(input.Value()))
		if err != nil {
			return fmt.Errorf("invalid %s (use a whole number)", names[i])
		}
		values[i] = parsed
	}
	s := pomodoro.Settings{
		StudyMinutes:            values[0],
		BreakMinutes:            values[1],
		LongBreakMinutes:        values[2],
		SessionsBeforeLongBreak: values[3],
	}
	if err := m.engine.UpdateSettings(s); err != nil {
		return err
	}
	m.errMsg = ""
	if err := pomodoro.SaveSettings(context.Background(), m.store, s); err != nil {
		m.errMsg = fmt.Sprintf("settings applied but not saved: %v", err)
	}
	m.persistState()
	m.status = "Settings updated. Timer reset."
	return nil
}

func (m *Model) applyTaskForm() error {
	ctx := context.Background()
	value := func(field int) string {
		return m.taskInputs[field].Value()
	}
	if m.editingID == "" {
		task, err := m.list.Add(ctx, tasks.Draft{
			Title:       value(taskFieldTitle),
			Subject:     value(taskFieldSubject),
			DueDate:     value(taskFieldDue),
			Priority:    value(taskFieldPriority),
			Description: value(taskFieldDescription),
		})
		if err != nil {
			return err
		}
		m.status = fmt.Sprintf("Added %q.", task.Title)
		m.reloadTasks()
		return nil
	}
	current, err := tasks.Find(m.tasks, m.editingID)
	if err != nil {
		return err
	}
	current.Title = value(taskFieldTitle)
	current.Subject = strings.TrimSpace(value(taskFieldSubject))
	current.DueDate = strings.TrimSpace(value(taskFieldDue))
	current.Priority = tasks.Priority(value(taskFieldPriority))
	current.Description = strings.TrimSpace(value(taskFieldDescription))
	updated, err := m.list.Update(ctx, current)
	if err != nil {
		return err
	}
	m.status = fmt.Sprintf("Updated %q.", updated.Title)
	m.reloadTasks()
	return nil
}

func (m *Model) renderForm() string {
	title := "Timer Settings"
	if m.mode == modeTask {
		title = "New Task"
		if m.editingID != "" {
			title = "Edit Task"
		}
	}
	body := []string{cardValueStyle.Render(title)}
	for _, input := range m.activeInputs() {
		body = append(body, input.View())
	}
	body = append(body, headerStyle.Render("tab/shift+tab: next field  enter: save  esc: cancel"))
	if m.formError != "" {
		body = append(body, errorStyle.Render(m.formError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) updateInputWidths() {
	inner := modalInnerWidth(m.width)
	for _, inputs := range [][]textinput.Model{m.settingsInputs, m.taskInputs} {
		for i := range inputs {
			promptWidth := lipgloss.Width(inputs[i].Prompt)
			inputs[i].Width = maxInt(10, inner-promptWidth)
		}
	}
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}
