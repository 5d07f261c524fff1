package service

import (
	"context"
	"time"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
)

type TaskRepository interface {
	HealthCheck(context.Context) error

	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByID(context.Context, int64) (*task.Task, error)
	// Delete removes the task with its subtasks and tag links; tags stay.
	Delete(context.Context, int64) error
	List(context.Context, query.Params, time.Time) (*query.Page, error)
	ListByTags(context.Context, []int64, int) (*query.Page, error)
	CountOverdue(context.Context, time.Time) (int, error)
}

type SubtaskRepository interface {
	CreateSubtask(context.Context, *task.Subtask) error
	UpdateSubtask(context.Context, *task.Subtask) error
	GetSubtask(context.Context, int64) (*task.Subtask, error)
	DeleteSubtask(context.Context, int64) error
	ListSubtasks(context.Context, int64) ([]task.Subtask, error)
}

type TagRepository interface {
	// CreateTag returns repository.ErrAlreadyExists when the name is taken.
	CreateTag(context.Context, *task.Tag) error
	GetTag(context.Context, int64) (*task.Tag, error)
	GetTagByName(context.Context, string) (*task.Tag, error)
	ListTags(context.Context) ([]task.Tag, error)
	// DeleteTag removes the tag and its task links; tasks stay.
	DeleteTag(context.Context, int64) error
	AttachTag(ctx context.Context, taskID, tagID int64) error
	DetachTag(ctx context.Context, taskID, tagID int64) error
}

// Repository is what a store backend has to provide.
type Repository interface {
	TaskRepository
	SubtaskRepository
	TagRepository
}
