package handlers

import (
	"context"
	"time"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	"todoTracker/internal/service"
)

type TaskService interface {
	Now() time.Time
	HealthCheck(context.Context) error

	ListTasks(context.Context, query.Params) (*service.TaskList, error)
	GetTask(context.Context, int64) (*task.Task, error)
	CreateTask(context.Context, string, ...task.TaskOption) (*task.Task, error)
	UpdateTask(context.Context, int64, ...task.TaskOption) (*task.Task, error)
	ToggleComplete(context.Context, int64) (*task.Task, error)
	SetStatus(context.Context, int64, task.Status) (*task.Task, error)
	DeleteTask(context.Context, int64) error

	AddSubtask(context.Context, int64, string) (*task.Subtask, error)
	ToggleSubtask(context.Context, int64) (*task.Subtask, error)
	UpdateSubtaskTitle(context.Context, int64, string) (*task.Subtask, error)
	ReorderSubtask(context.Context, int64, int) (*task.Subtask, error)
	DeleteSubtask(context.Context, int64) (*task.Subtask, error)
	ListSubtasks(context.Context, int64) (*service.SubtaskList, error)

	CreateTag(ctx context.Context, name, color string) (*task.Tag, bool, error)
	ListTags(context.Context) ([]task.Tag, error)
	DeleteTag(context.Context, int64) error
	AttachTag(ctx context.Context, taskID, tagID int64) (*task.Task, error)
	DetachTag(ctx context.Context, taskID, tagID int64) (*task.Task, error)
	FilterByTags(ctx context.Context, tagIDs []int64, page int) (*query.Page, error)
}

var _ TaskService = (*service.TaskService)(nil)
