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
	"gorm.io/gorm/clause"
)

func (s *Storage) CreateTag(ctx context.Context, tag *task.Tag) error {
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now()
	}
	rec := &tagRecord{Name: tag.Name, Color: tag.Color, CreatedAt: tag.CreatedAt.UTC()}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("tag %q: %w", tag.Name, repo.ErrAlreadyExists)
		}
		logger.Error("Repository: failed to create tag", err, zap.String("name", tag.Name))
		return fmt.Errorf("creating tag: %w", err)
	}

	tag.ID = rec.ID
	tag.CreatedAt = rec.CreatedAt
	return nil
}

func (s *Storage) GetTag(ctx context.Context, id int64) (*task.Tag, error) {
	return s.getTag(ctx, "id = ?", id)
}

func (s *Storage) GetTagByName(ctx context.Context, name string) (*task.Tag, error) {
	return s.getTag(ctx, "name = ?", name)
}

func (s *Storage) getTag(ctx context.Context, cond string, arg any) (*task.Tag, error) {
	var rec tagRecord
	if err := s.db.WithContext(ctx).First(&rec, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tag %v: %w", arg, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to get tag", err)
		return nil, fmt.Errorf("getting tag: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Storage) ListTags(ctx context.Context) ([]task.Tag, error) {
	var recs []tagRecord
	if err := s.db.WithContext(ctx).Order("LOWER(name), id").Find(&recs).Error; err != nil {
		logger.Error("Repository: failed to list tags", err)
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	tags := make([]task.Tag, 0, len(recs))
	for i := range recs {
		tags = append(tags, *recs[i].toModel())
	}
	return tags, nil
}

// DeleteTag unlinks the tag from every task, then removes it.
func (s *Storage) DeleteTag(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&taskTagRecord{}).Error; err != nil {
			return fmt.Errorf("unlinking tag: %w", err)
		}
		res := tx.Delete(&tagRecord{}, id)
		if res.Error != nil {
			logger.Error("Repository: failed to delete tag", res.Error, zap.Int64("tag_id", id))
			return fmt.Errorf("deleting tag: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("tag %d: %w", id, repo.ErrNotFound)
		}
		return nil
	})
}

// AttachTag links a tag to a task. Linking twice is a no-op.
func (s *Storage) AttachTag(ctx context.Context, taskID, tagID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := taskExists(tx, taskID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&tagRecord{}).Where("id = ?", tagID).Count(&count).Error; err != nil {
			return fmt.Errorf("checking tag: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("tag %d: %w", tagID, repo.ErrNotFound)
		}

		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&taskTagRecord{TaskID: taskID, TagID: tagID}).Error
		if err != nil {
			logger.Error("Repository: failed to attach tag", err,
				zap.Int64("task_id", taskID), zap.Int64("tag_id", tagID))
			return fmt.Errorf("attaching tag: %w", err)
		}
		return nil
	})
}

func (s *Storage) DetachTag(ctx context.Context, taskID, tagID int64) error {
	err := s.db.WithContext(ctx).
		Where("task_id = ? AND tag_id = ?", taskID, tagID).
		Delete(&taskTagRecord{}).Error
	if err != nil {
		logger.Error("Repository: failed to detach tag", err,
			zap.Int64("task_id", taskID), zap.Int64("tag_id", tagID))
		return fmt.Errorf("detaching tag: %w", err)
	}
	return nil
}
