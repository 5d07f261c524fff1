package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Storage) CreateSubtask(ctx context.Context, sub *task.Subtask) error {
	defer observe("create_subtask", time.Now())

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	rec := toSubtaskRecord(sub)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := taskExists(tx, sub.TaskID); err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			logger.Error("Repository: failed to create subtask", err, zap.Int64("task_id", sub.TaskID))
		}
		return fmt.Errorf("creating subtask: %w", err)
	}

	sub.ID = rec.ID
	sub.CreatedAt = rec.CreatedAt
	return nil
}

func (s *Storage) UpdateSubtask(ctx context.Context, sub *task.Subtask) error {
	defer observe("update_subtask", time.Now())

	res := s.db.WithContext(ctx).Model(&subtaskRecord{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"title":      sub.Title,
			"is_done":    sub.IsDone,
			"sort_order": sub.Order,
		})
	if res.Error != nil {
		logger.Error("Repository: failed to update subtask", res.Error, zap.Int64("subtask_id", sub.ID))
		return fmt.Errorf("updating subtask: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subtask %d: %w", sub.ID, repo.ErrNotFound)
	}
	return nil
}

func (s *Storage) GetSubtask(ctx context.Context, id int64) (*task.Subtask, error) {
	var rec subtaskRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subtask %d: %w", id, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to get subtask", err, zap.Int64("subtask_id", id))
		return nil, fmt.Errorf("getting subtask: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Storage) DeleteSubtask(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&subtaskRecord{}, id)
	if res.Error != nil {
		logger.Error("Repository: failed to delete subtask", res.Error, zap.Int64("subtask_id", id))
		return fmt.Errorf("deleting subtask: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subtask %d: %w", id, repo.ErrNotFound)
	}
	return nil
}

func (s *Storage) ListSubtasks(ctx context.Context, taskID int64) ([]task.Subtask, error) {
	db := s.db.WithContext(ctx)
	if err := taskExists(db, taskID); err != nil {
		return nil, err
	}

	var recs []subtaskRecord
	if err := db.Where("task_id = ?", taskID).Order("sort_order, id").Find(&recs).Error; err != nil {
		logger.Error("Repository: failed to list subtasks", err, zap.Int64("task_id", taskID))
		return nil, fmt.Errorf("listing subtasks: %w", err)
	}

	subs := make([]task.Subtask, 0, len(recs))
	for i := range recs {
		subs = append(subs, *recs[i].toModel())
	}
	return subs, nil
}

func taskExists(db *gorm.DB, id int64) error {
	var count int64
	if err := db.Model(&taskRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("checking task: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("task %d: %w", id, repo.ErrNotFound)
	}
	return nil
}
