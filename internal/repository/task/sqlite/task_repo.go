// Package sqlite is the default store, backed by a single SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	repo "todoTracker/internal/repository"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQuery = 100 * time.Millisecond

type Storage struct {
	db *gorm.DB
}

// New opens the database file and brings the schema up to date.
func New(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		logger.Error("Repository: failed to open sqlite database", err, zap.String("path", path))
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := db.SetupJoinTable(&taskRecord{}, "Tags", &taskTagRecord{}); err != nil {
		return nil, fmt.Errorf("join table: %w", err)
	}
	if err := db.AutoMigrate(&taskRecord{}, &subtaskRecord{}, &tagRecord{}, &taskTagRecord{}); err != nil {
		logger.Error("Repository: sqlite migration failed", err)
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}

	logger.Info("Repository: opened SQLite database", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Repository: SQLite database closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlite handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	defer observe("create_task", time.Now())

	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}
	taskToCreate.UpdatedAt = taskToCreate.CreatedAt
	taskToCreate.Completed = taskToCreate.Status == task.StatusDone

	rec := toTaskRecord(taskToCreate)
	if err := s.db.WithContext(ctx).Omit("Subtasks", "Tags").Create(rec).Error; err != nil {
		logger.Error("Repository: failed to create task", err)
		return fmt.Errorf("creating task: %w", err)
	}

	taskToCreate.ID = rec.ID
	taskToCreate.CreatedAt = rec.CreatedAt
	taskToCreate.UpdatedAt = rec.UpdatedAt
	return nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	defer observe("update_task", time.Now())

	taskToUpdate.Completed = taskToUpdate.Status == task.StatusDone
	now := time.Now().UTC()

	res := s.db.WithContext(ctx).Model(&taskRecord{}).
		Where("id = ?", taskToUpdate.ID).
		Updates(map[string]interface{}{
			"name":        taskToUpdate.Name,
			"description": taskToUpdate.Description,
			"priority":    string(taskToUpdate.Priority),
			"status":      string(taskToUpdate.Status),
			"due_date":    utc(taskToUpdate.DueDate),
			"completed":   taskToUpdate.Completed,
			"updated_at":  now,
		})
	if res.Error != nil {
		logger.Error("Repository: failed to update task", res.Error, zap.Int64("task_id", taskToUpdate.ID))
		return fmt.Errorf("updating task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %d: %w", taskToUpdate.ID, repo.ErrNotFound)
	}

	taskToUpdate.UpdatedAt = now
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	defer observe("get_task", time.Now())

	var rec taskRecord
	err := s.db.WithContext(ctx).Scopes(withRelations).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", id, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to get task", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return rec.toModel(), nil
}

// Delete removes subtasks and tag links before the task itself.
func (s *Storage) Delete(ctx context.Context, id int64) error {
	defer observe("delete_task", time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&subtaskRecord{}).Error; err != nil {
			return fmt.Errorf("deleting subtasks: %w", err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&taskTagRecord{}).Error; err != nil {
			return fmt.Errorf("unlinking tags: %w", err)
		}
		res := tx.Delete(&taskRecord{}, id)
		if res.Error != nil {
			return fmt.Errorf("deleting task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("task %d: %w", id, repo.ErrNotFound)
		}
		return nil
	})

	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		logger.Error("Repository: failed to delete task", err, zap.Int64("task_id", id))
	}
	return err
}

func (s *Storage) List(ctx context.Context, params query.Params, now time.Time) (*query.Page, error) {
	defer observe("list_tasks", time.Now())

	params = params.Normalize()
	filtered := s.db.WithContext(ctx).Model(&taskRecord{}).Scopes(filterBy(params, now))

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Repository: failed to count tasks", err)
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	if int64(params.Offset()) >= total {
		return query.NewPage(nil, params.Page, int(total)), nil
	}

	var recs []taskRecord
	err := filtered.Session(&gorm.Session{}).
		Scopes(withRelations).
		Order(params.Sort.OrderBy()).
		Limit(query.PerPage).
		Offset(params.Offset()).
		Find(&recs).Error
	if err != nil {
		logger.Error("Repository: failed to list tasks", err)
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return query.NewPage(toModels(recs), params.Page, int(total)), nil
}

func (s *Storage) ListByTags(ctx context.Context, tagIDs []int64, page int) (*query.Page, error) {
	defer observe("list_tasks_by_tags", time.Now())

	page = query.ParsePageNumber(page)
	if len(tagIDs) == 0 {
		return query.NewPage(nil, page, 0), nil
	}

	tagged := s.db.WithContext(ctx).Model(&taskRecord{}).
		Where("id IN (?)", s.db.Model(&taskTagRecord{}).Select("task_id").Where("tag_id IN ?", tagIDs))

	var total int64
	if err := tagged.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Repository: failed to count tagged tasks", err)
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	if int64(query.Offset(page)) >= total {
		return query.NewPage(nil, page, int(total)), nil
	}

	var recs []taskRecord
	err := tagged.Session(&gorm.Session{}).
		Scopes(withRelations).
		Order(query.SortCreatedDesc.OrderBy()).
		Limit(query.PerPage).
		Offset(query.Offset(page)).
		Find(&recs).Error
	if err != nil {
		logger.Error("Repository: failed to list tagged tasks", err)
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return query.NewPage(toModels(recs), page, int(total)), nil
}

func (s *Storage) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&taskRecord{}).
		Scopes(overdue(now)).
		Count(&count).Error
	if err != nil {
		logger.Error("Repository: failed to count overdue tasks", err)
		return 0, fmt.Errorf("counting overdue tasks: %w", err)
	}
	return int(count), nil
}

// filterBy applies the search, priority, status and date filters of p.
func filterBy(p query.Params, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Search != "" {
			pattern := query.SearchPattern(p.Search)
			db = db.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		if p.Priority != "" {
			db = db.Where("priority = ?", string(p.Priority))
		}
		if p.Status != "" {
			db = db.Where("status = ?", string(p.Status))
		}

		switch p.DateFilter {
		case query.DateOverdue:
			db = db.Scopes(overdue(now))
		case query.DateNoDueDate:
			db = db.Where("due_date IS NULL")
		case query.DateToday, query.DateThisWeek:
			r, _ := query.Bounds(p.DateFilter, now)
			db = db.Where("due_date BETWEEN ? AND ?", r.From.UTC(), r.To.UTC())
		}
		return db
	}
}

func overdue(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("due_date IS NOT NULL AND due_date < ? AND completed = ?", now.UTC(), false)
	}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order, id")
		}).
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("LOWER(tags.name)")
		})
}

func toModels(recs []taskRecord) []*task.Task {
	tasks := make([]*task.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toModel())
	}
	return tasks
}

func observe(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: slow query", zap.String("operation", op), zap.Duration("ms", elapsed))
	}
}
