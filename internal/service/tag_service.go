package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	repo "todoTracker/internal/repository"

	"go.uber.org/zap"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// CreateTag returns the tag with the given name, creating it when missing.
// The bool reports whether a new tag was stored.
func (s *TaskService) CreateTag(ctx context.Context, name, color string) (*task.Tag, bool, error) {
	name = strings.TrimSpace(name)
	if err := ValidateTagName(name); err != nil {
		return nil, false, err
	}

	if existing, err := s.repo.GetTagByName(ctx, name); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, fmt.Errorf("looking up tag: %w", err)
	}

	tag := &task.Tag{
		Name:      name,
		Color:     NormalizeColor(color),
		CreatedAt: s.now(),
	}
	err := s.repo.CreateTag(ctx, tag)
	switch {
	case errors.Is(err, repo.ErrAlreadyExists):
		// Lost a race with another request creating the same name.
		existing, getErr := s.repo.GetTagByName(ctx, name)
		if getErr != nil {
			return nil, false, fmt.Errorf("looking up tag: %w", getErr)
		}
		return existing, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("creating tag: %w", err)
	}

	logger.Info("Service: tag created", zap.Int64("tag_id", tag.ID), zap.String("name", tag.Name))
	return tag, true, nil
}

func (s *TaskService) ListTags(ctx context.Context) ([]task.Tag, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// DeleteTag removes the tag and its links; linked tasks stay.
func (s *TaskService) DeleteTag(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTag(ctx, id); err != nil {
		return s.lookupError(err, ResourceTag, id, "deleting tag")
	}
	return nil
}

// AttachTag links an existing tag to an existing task and returns the task.
func (s *TaskService) AttachTag(ctx context.Context, taskID, tagID int64) (*task.Task, error) {
	if _, err := s.repo.GetByID(ctx, taskID); err != nil {
		return nil, s.lookupError(err, ResourceTask, taskID, "getting task")
	}
	if _, err := s.repo.GetTag(ctx, tagID); err != nil {
		return nil, s.lookupError(err, ResourceTag, tagID, "getting tag")
	}

	if err := s.repo.AttachTag(ctx, taskID, tagID); err != nil {
		return nil, s.lookupError(err, ResourceTask, taskID, "attaching tag")
	}
	return s.GetTask(ctx, taskID)
}

// DetachTag unlinks a tag from a task. Unlinking an absent link is a no-op.
func (s *TaskService) DetachTag(ctx context.Context, taskID, tagID int64) (*task.Task, error) {
	if _, err := s.repo.GetByID(ctx, taskID); err != nil {
		return nil, s.lookupError(err, ResourceTask, taskID, "getting task")
	}

	if err := s.repo.DetachTag(ctx, taskID, tagID); err != nil {
		return nil, fmt.Errorf("detaching tag: %w", err)
	}
	return s.GetTask(ctx, taskID)
}

// FilterByTags lists tasks carrying any of tagIDs, newest first.
func (s *TaskService) FilterByTags(ctx context.Context, tagIDs []int64, page int) (*query.Page, error) {
	result, err := s.repo.ListByTags(ctx, uniqueIDs(tagIDs), page)
	if err != nil {
		return nil, fmt.Errorf("filtering by tags: %w", err)
	}
	return result, nil
}

func ValidateTagName(name string) error {
	switch {
	case name == "":
		return NewValidationError("name", "required")
	case len([]rune(name)) > task.MaxTagNameLength:
		return NewValidationError("name", fmt.Sprintf("must be at most %d characters", task.MaxTagNameLength))
	}
	return nil
}

// NormalizeColor returns color when it is a #rgb or #rrggbb value, the default
// tag color otherwise.
func NormalizeColor(color string) string {
	color = strings.TrimSpace(color)
	if hexColor.MatchString(color) {
		return color
	}
	return task.DefaultTagColor
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
