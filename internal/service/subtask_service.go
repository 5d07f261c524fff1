package service

import (
	"context"
	"fmt"
	"strings"
	"todoTracker/internal/models/task"
)

// SubtaskList is the checklist of a task with its completion percentage.
type SubtaskList struct {
	TaskID               int64          `json:"task_id"`
	Subtasks             []task.Subtask `json:"subtasks"`
	CompletionPercentage int            `json:"completion_percentage"`
}

// AddSubtask appends a subtask after the highest existing order.
func (s *TaskService) AddSubtask(ctx context.Context, taskID int64, title string) (*task.Subtask, error) {
	title = strings.TrimSpace(title)
	if err := ValidateSubtaskTitle(title); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListSubtasks(ctx, taskID)
	if err != nil {
		return nil, s.lookupError(err, ResourceTask, taskID, "listing subtasks")
	}

	order := 0
	for i, sub := range existing {
		if i == 0 || sub.Order > order {
			order = sub.Order
		}
	}
	if order >= task.MaxOrder {
		return nil, NewValidationError("order", "no order left after the last subtask")
	}

	sub := &task.Subtask{
		TaskID:    taskID,
		Title:     title,
		Order:     order + 1,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateSubtask(ctx, sub); err != nil {
		return nil, s.lookupError(err, ResourceTask, taskID, "creating subtask")
	}
	return sub, nil
}

func (s *TaskService) ToggleSubtask(ctx context.Context, id int64) (*task.Subtask, error) {
	return s.modifySubtask(ctx, id, func(sub *task.Subtask) {
		sub.IsDone = !sub.IsDone
	})
}

func (s *TaskService) UpdateSubtaskTitle(ctx context.Context, id int64, title string) (*task.Subtask, error) {
	title = strings.TrimSpace(title)
	if err := ValidateSubtaskTitle(title); err != nil {
		return nil, err
	}
	return s.modifySubtask(ctx, id, func(sub *task.Subtask) {
		sub.Title = title
	})
}

// ReorderSubtask sets an explicit order; siblings are not renumbered.
func (s *TaskService) ReorderSubtask(ctx context.Context, id int64, order int) (*task.Subtask, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}
	return s.modifySubtask(ctx, id, func(sub *task.Subtask) {
		sub.Order = order
	})
}

// DeleteSubtask removes a subtask and returns it, so callers know its parent.
func (s *TaskService) DeleteSubtask(ctx context.Context, id int64) (*task.Subtask, error) {
	sub, err := s.repo.GetSubtask(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, ResourceSubtask, id, "getting subtask")
	}
	if err := s.repo.DeleteSubtask(ctx, id); err != nil {
		return nil, s.lookupError(err, ResourceSubtask, id, "deleting subtask")
	}
	return sub, nil
}

func (s *TaskService) ListSubtasks(ctx context.Context, taskID int64) (*SubtaskList, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, s.lookupError(err, ResourceTask, taskID, "getting task")
	}

	subs := t.Subtasks
	if subs == nil {
		subs = []task.Subtask{}
	}
	return &SubtaskList{
		TaskID:               t.ID,
		Subtasks:             subs,
		CompletionPercentage: t.CompletionPercentage(),
	}, nil
}

func (s *TaskService) modifySubtask(ctx context.Context, id int64, modify func(*task.Subtask)) (*task.Subtask, error) {
	sub, err := s.repo.GetSubtask(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, ResourceSubtask, id, "getting subtask")
	}

	modify(sub)
	if err := s.repo.UpdateSubtask(ctx, sub); err != nil {
		return nil, s.lookupError(err, ResourceSubtask, id, "updating subtask")
	}
	return sub, nil
}

func ValidateOrder(order int) error {
	if order < task.MinOrder || order > task.MaxOrder {
		return NewValidationError("order", fmt.Sprintf("must be between %d and %d", task.MinOrder, task.MaxOrder))
	}
	return nil
}

func ValidateSubtaskTitle(title string) error {
	switch {
	case title == "":
		return NewValidationError("title", "required")
	case len([]rune(title)) > task.MaxTitleLength:
		return NewValidationError("title", fmt.Sprintf("must be at most %d characters", task.MaxTitleLength))
	}
	return nil
}
