package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"todoTracker/internal/config"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	repo "todoTracker/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	taskColumns = `id, name, description, priority, status, due_date, completed, created_at, updated_at`

	slowQuery = 100 * time.Millisecond

	fkViolation     = "23503"
	uniqueViolation = "23505"
)

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("Repository: failed to parse database url", err)
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: PostgreSQL connections closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
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
	taskToCreate.Completed = taskToCreate.Status == task.StatusDone

	q := `INSERT INTO tasks
			(name, description, priority, status, due_date, completed, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING id, created_at, updated_at`

	err := s.pool.QueryRow(ctx, q,
		taskToCreate.Name,
		taskToCreate.Description,
		taskToCreate.Priority,
		taskToCreate.Status,
		taskToCreate.DueDate,
		taskToCreate.Completed,
		taskToCreate.CreatedAt,
	).Scan(&taskToCreate.ID, &taskToCreate.CreatedAt, &taskToCreate.UpdatedAt)

	if err != nil {
		logger.Error("Repository: failed to create task", err)
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	defer observe("update_task", time.Now())

	taskToUpdate.Completed = taskToUpdate.Status == task.StatusDone

	q := `UPDATE tasks
			SET name = $1,
				description = $2,
				priority = $3,
				status = $4,
				due_date = $5,
				completed = $6,
				updated_at = NOW()
			WHERE id = $7
			RETURNING updated_at`

	err := s.pool.QueryRow(ctx, q,
		taskToUpdate.Name,
		taskToUpdate.Description,
		taskToUpdate.Priority,
		taskToUpdate.Status,
		taskToUpdate.DueDate,
		taskToUpdate.Completed,
		taskToUpdate.ID,
	).Scan(&taskToUpdate.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("task %d: %w", taskToUpdate.ID, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to update task", err, zap.Int64("task_id", taskToUpdate.ID))
		return fmt.Errorf("updating task: %w", err)
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	defer observe("get_task", time.Now())

	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to get task", err, zap.Int64("task_id", id))
		return nil, fmt.Errorf("getting task: %w", err)
	}

	if err := s.loadRelations(ctx, []*task.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes subtasks and tag links before the task itself.
func (s *Storage) Delete(ctx context.Context, id int64) error {
	defer observe("delete_task", time.Now())

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM subtasks WHERE task_id = $1`, id); err != nil {
			return fmt.Errorf("deleting subtasks: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM task_tags WHERE task_id = $1`, id); err != nil {
			return fmt.Errorf("unlinking tags: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting task: %w", err)
		}
		if tag.RowsAffected() == 0 {
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
	where, args := buildFilter(params, now)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		logger.Error("Repository: failed to count tasks", err)
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	if params.Offset() >= total {
		return query.NewPage(nil, params.Page, total), nil
	}

	q := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY %s LIMIT %d OFFSET %d`,
		taskColumns, where, params.Sort.OrderBy(), query.PerPage, params.Offset())

	tasks, err := s.queryTasks(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return query.NewPage(tasks, params.Page, total), nil
}

func (s *Storage) ListByTags(ctx context.Context, tagIDs []int64, page int) (*query.Page, error) {
	defer observe("list_tasks_by_tags", time.Now())

	page = query.ParsePageNumber(page)
	const where = ` WHERE id IN (SELECT task_id FROM task_tags WHERE tag_id = ANY($1))`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, tagIDs).Scan(&total); err != nil {
		logger.Error("Repository: failed to count tagged tasks", err)
		return nil, fmt.Errorf("counting tasks: %w", err)
	}
	if query.Offset(page) >= total {
		return query.NewPage(nil, page, total), nil
	}

	q := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY %s LIMIT %d OFFSET %d`,
		taskColumns, where, query.SortCreatedDesc.OrderBy(), query.PerPage, query.Offset(page))

	tasks, err := s.queryTasks(ctx, q, tagIDs)
	if err != nil {
		return nil, err
	}
	return query.NewPage(tasks, page, total), nil
}

func (s *Storage) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE due_date IS NOT NULL AND due_date < $1 AND NOT completed`,
		now,
	).Scan(&count)
	if err != nil {
		logger.Error("Repository: failed to count overdue tasks", err)
		return 0, fmt.Errorf("counting overdue tasks: %w", err)
	}
	return count, nil
}

// buildFilter renders the params as a WHERE clause with positional arguments.
func buildFilter(p query.Params, now time.Time) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Search != "" {
		ph := arg(query.SearchPattern(p.Search))
		conds = append(conds, fmt.Sprintf(`(LOWER(name) LIKE %[1]s ESCAPE '\' OR LOWER(description) LIKE %[1]s ESCAPE '\')`, ph))
	}
	if p.Priority != "" {
		conds = append(conds, "priority = "+arg(p.Priority))
	}
	if p.Status != "" {
		conds = append(conds, "status = "+arg(p.Status))
	}

	switch p.DateFilter {
	case query.DateOverdue:
		conds = append(conds, "due_date IS NOT NULL AND due_date < "+arg(now)+" AND NOT completed")
	case query.DateNoDueDate:
		conds = append(conds, "due_date IS NULL")
	case query.DateToday, query.DateThisWeek:
		r, _ := query.Bounds(p.DateFilter, now)
		conds = append(conds, "due_date BETWEEN "+arg(r.From)+" AND "+arg(r.To))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Storage) queryTasks(ctx context.Context, q string, args ...any) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		logger.Error("Repository: failed to query tasks", err)
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: failed to scan task", zap.Error(err))
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if err := s.loadRelations(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// loadRelations fills Subtasks and Tags for a page of tasks with two queries.
func (s *Storage) loadRelations(ctx context.Context, tasks []*task.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]int64, len(tasks))
	byID := make(map[int64]*task.Task, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		t.Subtasks = []task.Subtask{}
		t.Tags = []task.Tag{}
		byID[t.ID] = t
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE task_id = ANY($1) ORDER BY sort_order, id`, ids)
	if err != nil {
		return fmt.Errorf("loading subtasks: %w", err)
	}
	subs, err := collectSubtasks(rows)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		byID[sub.TaskID].Subtasks = append(byID[sub.TaskID].Subtasks, sub)
	}

	tagRows, err := s.pool.Query(ctx,
		`SELECT tt.task_id, t.id, t.name, t.color, t.created_at
			FROM task_tags tt JOIN tags t ON t.id = tt.tag_id
			WHERE tt.task_id = ANY($1)
			ORDER BY LOWER(t.name)`, ids)
	if err != nil {
		return fmt.Errorf("loading tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var taskID int64
		var tag task.Tag
		if err := tagRows.Scan(&taskID, &tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt); err != nil {
			return fmt.Errorf("scanning tag: %w", err)
		}
		byID[taskID].Tags = append(byID[taskID].Tags, tag)
	}
	return tagRows.Err()
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Priority,
		&t.Status,
		&t.DueDate,
		&t.Completed,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func observe(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: slow query", zap.String("operation", op), zap.Duration("ms", elapsed))
	}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
