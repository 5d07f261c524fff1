package postgres

import (
	"context"
	"errors"
	"fmt"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const tagColumns = `id, name, color, created_at`

func (s *Storage) CreateTag(ctx context.Context, tag *task.Tag) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tags (name, color) VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
			RETURNING id, created_at`,
		tag.Name, tag.Color,
	).Scan(&tag.ID, &tag.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == uniqueViolation {
			return fmt.Errorf("tag %q: %w", tag.Name, repo.ErrAlreadyExists)
		}
		logger.Error("Repository: failed to create tag", err, zap.String("name", tag.Name))
		return fmt.Errorf("creating tag: %w", err)
	}
	return nil
}

func (s *Storage) GetTag(ctx context.Context, id int64) (*task.Tag, error) {
	return s.getTag(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = $1`, id)
}

func (s *Storage) GetTagByName(ctx context.Context, name string) (*task.Tag, error) {
	return s.getTag(ctx, `SELECT `+tagColumns+` FROM tags WHERE name = $1`, name)
}

func (s *Storage) getTag(ctx context.Context, q string, arg any) (*task.Tag, error) {
	tag := &task.Tag{}
	err := s.pool.QueryRow(ctx, q, arg).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tag %v: %w", arg, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to get tag", err)
		return nil, fmt.Errorf("getting tag: %w", err)
	}
	return tag, nil
}

func (s *Storage) ListTags(ctx context.Context) ([]task.Tag, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY LOWER(name)`)
	if err != nil {
		logger.Error("Repository: failed to list tags", err)
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	tags := []task.Tag{}
	for rows.Next() {
		var tag task.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// DeleteTag unlinks the tag from every task, then removes it.
func (s *Storage) DeleteTag(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM task_tags WHERE tag_id = $1`, id); err != nil {
			return fmt.Errorf("unlinking tag: %w", err)
		}
		res, err := tx.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
		if err != nil {
			logger.Error("Repository: failed to delete tag", err, zap.Int64("tag_id", id))
			return fmt.Errorf("deleting tag: %w", err)
		}
		if res.RowsAffected() == 0 {
			return fmt.Errorf("tag %d: %w", id, repo.ErrNotFound)
		}
		return nil
	})
}

func (s *Storage) AttachTag(ctx context.Context, taskID, tagID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_tags (task_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		taskID, tagID)
	if err != nil {
		if pgCode(err) == fkViolation {
			return fmt.Errorf("task %d / tag %d: %w", taskID, tagID, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to attach tag", err,
			zap.Int64("task_id", taskID), zap.Int64("tag_id", tagID))
		return fmt.Errorf("attaching tag: %w", err)
	}
	return nil
}

func (s *Storage) DetachTag(ctx context.Context, taskID, tagID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM task_tags WHERE task_id = $1 AND tag_id = $2`, taskID, tagID)
	if err != nil {
		logger.Error("Repository: failed to detach tag", err,
			zap.Int64("task_id", taskID), zap.Int64("tag_id", tagID))
		return fmt.Errorf("detaching tag: %w", err)
	}
	return nil
}
