package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const subtaskColumns = `id, task_id, title, is_done, sort_order, created_at`

func (s *Storage) CreateSubtask(ctx context.Context, sub *task.Subtask) error {
	defer observe("create_subtask", time.Now())

	err := s.pool.QueryRow(ctx,
		`INSERT INTO subtasks (task_id, title, is_done, sort_order)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`,
		sub.TaskID, sub.Title, sub.IsDone, sub.Order,
	).Scan(&sub.ID, &sub.CreatedAt)

	if err != nil {
		if pgCode(err) == fkViolation {
			return fmt.Errorf("task %d: %w", sub.TaskID, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to create subtask", err, zap.Int64("task_id", sub.TaskID))
		return fmt.Errorf("creating subtask: %w", err)
	}
	return nil
}

func (s *Storage) UpdateSubtask(ctx context.Context, sub *task.Subtask) error {
	defer observe("update_subtask", time.Now())

	tag, err := s.pool.Exec(ctx,
		`UPDATE subtasks SET title = $1, is_done = $2, sort_order = $3 WHERE id = $4`,
		sub.Title, sub.IsDone, sub.Order, sub.ID)
	if err != nil {
		logger.Error("Repository: failed to update subtask", err, zap.Int64("subtask_id", sub.ID))
		return fmt.Errorf("updating subtask: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subtask %d: %w", sub.ID, repo.ErrNotFound)
	}
	return nil
}

func (s *Storage) GetSubtask(ctx context.Context, id int64) (*task.Subtask, error) {
	sub := &task.Subtask{}
	err := s.pool.QueryRow(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = $1`, id).
		Scan(&sub.ID, &sub.TaskID, &sub.Title, &sub.IsDone, &sub.Order, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subtask %d: %w", id, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to get subtask", err, zap.Int64("subtask_id", id))
		return nil, fmt.Errorf("getting subtask: %w", err)
	}
	return sub, nil
}

func (s *Storage) DeleteSubtask(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete subtask", err, zap.Int64("subtask_id", id))
		return fmt.Errorf("deleting subtask: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subtask %d: %w", id, repo.ErrNotFound)
	}
	return nil
}

func (s *Storage) ListSubtasks(ctx context.Context, taskID int64) ([]task.Subtask, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking task: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("task %d: %w", taskID, repo.ErrNotFound)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE task_id = $1 ORDER BY sort_order, id`, taskID)
	if err != nil {
		logger.Error("Repository: failed to list subtasks", err, zap.Int64("task_id", taskID))
		return nil, fmt.Errorf("listing subtasks: %w", err)
	}
	return collectSubtasks(rows)
}

func collectSubtasks(rows pgx.Rows) ([]task.Subtask, error) {
	defer rows.Close()

	subs := []task.Subtask{}
	for rows.Next() {
		var sub task.Subtask
		if err := rows.Scan(&sub.ID, &sub.TaskID, &sub.Title, &sub.IsDone, &sub.Order, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning subtask: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subtasks: %w", err)
	}
	return subs, nil
}
