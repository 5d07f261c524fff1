package task

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	MaxNameLength    = 200
	MaxTitleLength   = 200
	MaxTagNameLength = 50
	DefaultTagColor  = "#6c757d"

	// Subtask orders are stored as 32-bit integers.
	MinOrder = math.MinInt32
	MaxOrder = math.MaxInt32
)

type Task struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      Status     `json:"status" db:"status"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	Completed   bool       `json:"completed" db:"completed"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	Subtasks    []Subtask  `json:"subtasks"`
	Tags        []Tag      `json:"tags"`
}

type Subtask struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	Title     string    `json:"title" db:"title"`
	IsDone    bool      `json:"is_done" db:"is_done"`
	Order     int       `json:"order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Tag struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Priority string
type Status string

const PriorityLow Priority = "Low"
const PriorityMedium Priority = "Medium"
const PriorityHigh Priority = "High"

const StatusTodo Status = "todo"
const StatusDoing Status = "doing"
const StatusDone Status = "done"

// Rank orders priorities from most to least urgent: High=1, Medium=2, Low=3.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusDoing || s == StatusDone
}

func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("unknown priority %q", raw)
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// New returns a task with the default priority and status applied.
func New(name string) *Task {
	return &Task{
		Name:     name,
		Priority: PriorityMedium,
		Status:   StatusTodo,
	}
}

// SetStatus keeps Completed in step with Status.
func (t *Task) SetStatus(status Status) {
	t.Status = status
	t.Completed = status == StatusDone
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Completed
}

// DaysUntilDue counts calendar days between now and the due date; nil without a due date.
func (t *Task) DaysUntilDue(now time.Time) *int {
	if t.DueDate == nil {
		return nil
	}
	dy, dm, dd := t.DueDate.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	due := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	days := int(due.Sub(today) / (24 * time.Hour))
	return &days
}

func (t *Task) CompletionPercentage() int {
	if len(t.Subtasks) == 0 {
		if t.Completed {
			return 100
		}
		return 0
	}
	done := 0
	for _, s := range t.Subtasks {
		if s.IsDone {
			done++
		}
	}
	return done * 100 / len(t.Subtasks)
}

func (t *Task) HasTag(tagID int64) bool {
	for _, tag := range t.Tags {
		if tag.ID == tagID {
			return true
		}
	}
	return false
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
