package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	repo "todoTracker/internal/repository"

	"go.uber.org/zap"
)

// TaskService holds the business rules for tasks, subtasks and tags on top of
// a Repository. It keeps no state between calls.
type TaskService struct {
	repo Repository
	now  func() time.Time
}

// TaskList is one page of the list view plus the overdue count over all tasks.
type TaskList struct {
	*query.Page
	Params       query.Params `json:"-"`
	OverdueCount int          `json:"overdue_count"`
}

// NewTaskService returns a service reading the time from now; nil means time.Now.
func NewTaskService(repo Repository, now func() time.Time) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		repo: repo,
		now:  now,
	}
}

func (s *TaskService) Now() time.Time {
	return s.now()
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		logger.Error("Service: health check failed", err)
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context, params query.Params) (*TaskList, error) {
	now := s.now()
	params = params.Normalize()

	page, err := s.repo.List(ctx, params, now)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	overdue, err := s.repo.CountOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("counting overdue tasks: %w", err)
	}

	return &TaskList{Page: page, Params: params, OverdueCount: overdue}, nil
}

func (s *TaskService) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, ResourceTask, id, "getting task")
	}
	return t, nil
}

// CreateTask stores a new task. Options that could not be parsed are nil and
// leave the defaults in place.
func (s *TaskService) CreateTask(ctx context.Context, name string, options ...task.TaskOption) (*task.Task, error) {
	name = strings.TrimSpace(name)
	if err := ValidateTaskName(name); err != nil {
		return nil, err
	}

	t := task.New(name)
	t.Apply(options...)
	t.CreatedAt = s.now()

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	logger.Info("Service: task created", zap.Int64("task_id", t.ID))
	return t, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id int64, options ...task.TaskOption) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, ResourceTask, id, "getting task")
	}

	t.Apply(options...)
	t.Name = strings.TrimSpace(t.Name)
	if err := ValidateTaskName(t.Name); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, s.lookupError(err, ResourceTask, id, "updating task")
	}
	return t, nil
}

// ToggleComplete flips a task between done and todo.
func (s *TaskService) ToggleComplete(ctx context.Context, id int64) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, ResourceTask, id, "getting task")
	}

	if t.Completed {
		t.SetStatus(task.StatusTodo)
	} else {
		t.SetStatus(task.StatusDone)
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, s.lookupError(err, ResourceTask, id, "updating task")
	}
	return t, nil
}

func (s *TaskService) SetStatus(ctx context.Context, id int64, status task.Status) (*task.Task, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, ResourceTask, id, "getting task")
	}

	t.SetStatus(status)
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, s.lookupError(err, ResourceTask, id, "updating task")
	}
	return t, nil
}

// DeleteTask removes the task with its subtasks; its tags stay.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(err, ResourceTask, id, "deleting task")
	}
	logger.Info("Service: task deleted", zap.Int64("task_id", id))
	return nil
}

func ValidateTaskName(name string) error {
	switch {
	case name == "":
		return NewValidationError("name", "required")
	case len([]rune(name)) > task.MaxNameLength:
		return NewValidationError("name", fmt.Sprintf("must be at most %d characters", task.MaxNameLength))
	}
	return nil
}

// lookupError turns a repository not-found into a business error and wraps
// everything else with op.
func (s *TaskService) lookupError(err error, resource Resource, id int64, op string) error {
	if errors.Is(err, repo.ErrNotFound) {
		logger.Info("Service: not found", zap.String("resource", string(resource)), zap.Int64("id", id))
		return NewNotFound(resource, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
