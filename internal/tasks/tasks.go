// Package tasks manages the study task list.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StorageKey is the persistence key holding the JSON task list.
const StorageKey = "studyTasks"

const dueLayout = "2006-01-02"

var (
	ErrEmptyTitle   = errors.New("task title must not be empty")
	ErrInvalidTask  = errors.New("invalid task")
	ErrTaskNotFound = errors.New("task not found")
)

// Store is the key-value persistence port.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts low, medium or high; empty input means medium.
func ParsePriority(value string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q (use low, medium or high)", ErrInvalidTask, value)
	}
}

// Task is one entry of the study list.
type Task struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Subject     string    `json:"subject" yaml:"subject"`
	DueDate     string    `json:"dueDate" yaml:"dueDate"`
	Priority    Priority  `json:"priority" yaml:"priority"`
	Description string    `json:"description" yaml:"description"`
	Completed   bool      `json:"completed" yaml:"completed"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// Draft holds the user-editable fields of a new task.
type Draft struct {
	Title       string
	Subject     string
	DueDate     string
	Priority    string
	Description string
}

// List reads and writes tasks through the persistence port. Every mutation
// loads the current list, applies the change and writes the whole list back.
type List struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewList returns a task list backed by st.
func NewList(st Store) *List {
	return &List{
		store: st,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Load returns all tasks in insertion order. A missing list is empty. An
// unparsable list is reported and read as empty; mutations refuse to run on
// top of it so the stored value is never overwritten by accident.
func (l *List) Load(ctx context.Context) ([]Task, error) {
	raw, ok, err := l.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Task{}, nil
	}
	var list []Task
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []Task{}, fmt.Errorf("decode tasks: %w", err)
	}
	if list == nil {
		list = []Task{}
	}
	return list, nil
}

func (l *List) save(ctx context.Context, list []Task) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err := l.store.Set(ctx, StorageKey, string(payload)); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}

// Add validates draft and appends it as a pending task.
func (l *List) Add(ctx context.Context, draft Draft) (Task, error) {
	priority, err := ParsePriority(draft.Priority)
	if err != nil {
		return Task{}, err
	}
	task := Task{
		ID:          l.newID(),
		Title:       strings.TrimSpace(draft.Title),
		Subject:     strings.TrimSpace(draft.Subject),
		DueDate:     strings.TrimSpace(draft.DueDate),
		Priority:    priority,
		Description: strings.TrimSpace(draft.Description),
		CreatedAt:   l.now().UTC(),
	}
	if err := validate(task); err != nil {
		return Task{}, err
	}
	list, err := l.Load(ctx)
	if err != nil {
		return Task{}, err
	}
	if err := l.save(ctx, append(list, task)); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Update replaces the task with the same ID. ID and creation time are kept.
func (l *List) Update(ctx context.Context, task Task) (Task, error) {
	priority, err := ParsePriority(string(task.Priority))
	if err != nil {
		return Task{}, err
	}
	task.Priority = priority
	task.Title = strings.TrimSpace(task.Title)
	if err := validate(task); err != nil {
		return Task{}, err
	}
	list, err := l.Load(ctx)
	if err != nil {
		return Task{}, err
	}
	idx := indexOf(list, task.ID)
	if idx < 0 {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, task.ID)
	}
	task.CreatedAt = list[idx].CreatedAt
	list[idx] = task
	if err := l.save(ctx, list); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Delete removes the task with id.
func (l *List) Delete(ctx context.Context, id string) error {
	list, err := l.Load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return l.save(ctx, append(list[:idx], list[idx+1:]...))
}

// Toggle flips the completed flag of the task with id.
func (l *List) Toggle(ctx context.Context, id string) (Task, error) {
	list, err := l.Load(ctx)
	if err != nil {
		return Task{}, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	list[idx].Completed = !list[idx].Completed
	if err := l.save(ctx, list); err != nil {
		return Task{}, err
	}
	return list[idx], nil
}

// Find returns the task whose ID equals id or, failing that, the single task
// whose ID starts with id.
func Find(list []Task, id string) (Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Task{}, fmt.Errorf("%w: empty id", ErrTaskNotFound)
	}
	var match *Task
	for i := range list {
		if list[i].ID == id {
			return list[i], nil
		}
		if strings.HasPrefix(list[i].ID, id) {
			if match != nil {
				return Task{}, fmt.Errorf("%w: id prefix %q is ambiguous", ErrTaskNotFound, id)
			}
			match = &list[i]
		}
	}
	if match == nil {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return *match, nil
}

// Clear replaces the stored list with an empty one.
func (l *List) Clear(ctx context.Context) error {
	return l.save(ctx, []Task{})
}

func indexOf(list []Task, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func validate(task Task) error {
	if task.Title == "" {
		return ErrEmptyTitle
	}
	if _, err := ParsePriority(string(task.Priority)); err != nil {
		return err
	}
	if task.DueDate != "" {
		if _, err := time.Parse(dueLayout, task.DueDate); err != nil {
			return fmt.Errorf("%w: due date %q must be YYYY-MM-DD", ErrInvalidTask, task.DueDate)
		}
	}
	return nil
}

// Filter selects which tasks are shown.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// ParseFilter accepts all, pending or completed; empty input means all.
func ParseFilter(value string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterCompleted:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q (use all, pending or completed)", value)
	}
}

// Next cycles all -> pending -> completed -> all.
func (f Filter) Next() Filter {
	switch f {
	case FilterAll:
		return FilterPending
	case FilterPending:
		return FilterCompleted
	default:
		return FilterAll
	}
}

// Apply returns the tasks matching f.
func (f Filter) Apply(list []Task) []Task {
	out := make([]Task, 0, len(list))
	for _, task := range list {
		switch f {
		case FilterCompleted:
			if !task.Completed {
				continue
			}
		case FilterPending:
			if task.Completed {
				continue
			}
		}
		out = append(out, task)
	}
	return out
}

// Summary counts tasks by completion.
type Summary struct {
	Total          int
	Pending        int
	Completed      int
	CompletionRate int
}

// Summarize counts tasks; CompletionRate is a rounded percentage.
func Summarize(list []Task) Summary {
	s := Summary{Total: len(list)}
	for _, task := range list {
		if task.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}

// FormatDue renders a YYYY-MM-DD due date as "Jan 02, 2006". Unparsable
// values are returned unchanged.
func FormatDue(date string) string {
	if date == "" {
		return ""
	}
	parsed, err := time.Parse(dueLayout, date)
	if err != nil {
		return date
	}
	return parsed.Format("Jan 02, 2006")
}

// PriorityColor returns the display colour for a priority.
func PriorityColor(p Priority) string {
	switch p {
	case PriorityHigh:
		return "#dc3545"
	case PriorityMedium:
		return "#ffc107"
	case PriorityLow:
		return "#28a745"
	default:
		return "#6c757d"
	}
}
