package task

import (
	"time"
)

// TaskOption mutates a task loaded for update. A nil option is skipped.
type TaskOption func(*Task)

func WithName(name string) TaskOption {
	if name == "" {
		return nil
	}
	return func(task *Task) {
		task.Name = name
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithPriority(priority Priority) TaskOption {
	if !priority.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithStatus(status Status) TaskOption {
	if !status.Valid() {
		return nil
	}
	return func(task *Task) {
		task.SetStatus(status)
	}
}

func WithDueDate(dueDate time.Time) TaskOption {
	if dueDate.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.DueDate = &dueDate
	}
}

func WithoutDueDate() TaskOption {
	return func(task *Task) {
		task.DueDate = nil
	}
}

func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
