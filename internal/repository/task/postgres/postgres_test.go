package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"
	"todoTracker/internal/config"
	"todoTracker/internal/migrations"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	"todoTracker/internal/repository"
	"todoTracker/internal/repository/task/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite runs the store against a real PostgreSQL container.
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	connString string
	ctx        context.Context
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(s.T(), migrations.Up(s.connString))

	s.storage, err = postgres.New(s.ctx, config.DatabaseConfig{URL: s.connString, MaxConnections: 4})
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// SetupTest empties every table between tests.
func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, "TRUNCATE task_tags, subtasks, tags, tasks RESTART IDENTITY")
	require.NoError(s.T(), err)
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) TestStorage_HealthCheck() {
	assert.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}

func (s *PostgresTestSuite) TestStorage_CreateGetUpdate() {
	due := time.Now().Add(24 * time.Hour).Truncate(time.Microsecond)
	tk := task.New("Test Task")
	tk.Description = "Test Description"
	tk.Priority = task.PriorityHigh
	tk.DueDate = &due

	require.NoError(s.T(), s.storage.Create(s.ctx, tk))
	assert.NotZero(s.T(), tk.ID)
	assert.False(s.T(), tk.CreatedAt.IsZero())

	got, err := s.storage.GetByID(s.ctx, tk.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Test Task", got.Name)
	assert.Equal(s.T(), task.PriorityHigh, got.Priority)
	assert.Equal(s.T(), task.StatusTodo, got.Status)
	require.NotNil(s.T(), got.DueDate)
	assert.True(s.T(), due.Equal(*got.DueDate))
	assert.Empty(s.T(), got.Subtasks)

	got.SetStatus(task.StatusDone)
	got.DueDate = nil
	require.NoError(s.T(), s.storage.Update(s.ctx, got))

	again, err := s.storage.GetByID(s.ctx, tk.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), again.Completed)
	assert.Nil(s.T(), again.DueDate)
	assert.False(s.T(), again.UpdatedAt.Before(again.CreatedAt))

	_, err = s.storage.GetByID(s.ctx, 9999)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	ghost := task.New("ghost")
	ghost.ID = 9999
	assert.ErrorIs(s.T(), s.storage.Update(s.ctx, ghost), repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_DeleteCascades() {
	tk := task.New("Parent")
	require.NoError(s.T(), s.storage.Create(s.ctx, tk))

	sub := &task.Subtask{TaskID: tk.ID, Title: "child", Order: 1}
	require.NoError(s.T(), s.storage.CreateSubtask(s.ctx, sub))

	tag := &task.Tag{Name: "home", Color: "#00ff00"}
	require.NoError(s.T(), s.storage.CreateTag(s.ctx, tag))
	require.NoError(s.T(), s.storage.AttachTag(s.ctx, tk.ID, tag.ID))

	require.NoError(s.T(), s.storage.Delete(s.ctx, tk.ID))

	_, err := s.storage.GetSubtask(s.ctx, sub.ID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	kept, err := s.storage.GetTag(s.ctx, tag.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "home", kept.Name)

	assert.ErrorIs(s.T(), s.storage.Delete(s.ctx, tk.ID), repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_Subtasks() {
	tk := task.New("Parent")
	require.NoError(s.T(), s.storage.Create(s.ctx, tk))

	for i, title := range []string{"one", "two", "three"} {
		require.NoError(s.T(), s.storage.CreateSubtask(s.ctx, &task.Subtask{TaskID: tk.ID, Title: title, Order: i + 1}))
	}

	subs, err := s.storage.ListSubtasks(s.ctx, tk.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), subs, 3)

	subs[0].IsDone = true
	subs[2].Order = 0
	require.NoError(s.T(), s.storage.UpdateSubtask(s.ctx, &subs[0]))
	require.NoError(s.T(), s.storage.UpdateSubtask(s.ctx, &subs[2]))

	got, err := s.storage.GetByID(s.ctx, tk.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), got.Subtasks, 3)
	assert.Equal(s.T(), "three", got.Subtasks[0].Title)
	assert.Equal(s.T(), 33, got.CompletionPercentage())

	require.NoError(s.T(), s.storage.DeleteSubtask(s.ctx, subs[1].ID))
	assert.ErrorIs(s.T(), s.storage.DeleteSubtask(s.ctx, subs[1].ID), repository.ErrNotFound)

	assert.ErrorIs(s.T(), s.storage.CreateSubtask(s.ctx, &task.Subtask{TaskID: 9999, Title: "x"}), repository.ErrNotFound)
	_, err = s.storage.ListSubtasks(s.ctx, 9999)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

func (s *PostgresTestSuite) TestStorage_Tags() {
	work := &task.Tag{Name: "work", Color: "#ff0000"}
	require.NoError(s.T(), s.storage.CreateTag(s.ctx, work))
	assert.ErrorIs(s.T(), s.storage.CreateTag(s.ctx, &task.Tag{Name: "work", Color: "#000"}), repository.ErrAlreadyExists)

	byName, err := s.storage.GetTagByName(s.ctx, "work")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), work.ID, byName.ID)

	tk := task.New("Tagged")
	require.NoError(s.T(), s.storage.Create(s.ctx, tk))
	require.NoError(s.T(), s.storage.AttachTag(s.ctx, tk.ID, work.ID))
	require.NoError(s.T(), s.storage.AttachTag(s.ctx, tk.ID, work.ID))
	assert.ErrorIs(s.T(), s.storage.AttachTag(s.ctx, tk.ID, 9999), repository.ErrNotFound)

	got, err := s.storage.GetByID(s.ctx, tk.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), got.Tags, 1)

	require.NoError(s.T(), s.storage.DetachTag(s.ctx, tk.ID, work.ID))
	require.NoError(s.T(), s.storage.DetachTag(s.ctx, tk.ID, work.ID))

	require.NoError(s.T(), s.storage.AttachTag(s.ctx, tk.ID, work.ID))
	require.NoError(s.T(), s.storage.DeleteTag(s.ctx, work.ID))
	assert.ErrorIs(s.T(), s.storage.DeleteTag(s.ctx, work.ID), repository.ErrNotFound)

	got, err = s.storage.GetByID(s.ctx, tk.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), got.Tags)
}

func (s *PostgresTestSuite) TestStorage_ListFiltersSortsAndPages() {
	now := time.Now()
	base := now.Add(-time.Hour)

	for i := 1; i <= 25; i++ {
		tk := task.New(fmt.Sprintf("task %02d", i))
		tk.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i%5 == 0 {
			due := now.Add(-time.Duration(i) * time.Minute)
			tk.DueDate = &due
		}
		if i == 10 {
			tk.SetStatus(task.StatusDone)
		}
		if i == 3 {
			tk.Description = "contains 100% MILK"
		}
		require.NoError(s.T(), s.storage.Create(s.ctx, tk))
	}

	for page, expected := range map[int]int{1: 10, 2: 10, 3: 5, 4: 0, 922337203685477582: 0} {
		res, err := s.storage.List(s.ctx, query.Params{Page: page}, now)
		require.NoError(s.T(), err)
		assert.Len(s.T(), res.Tasks, expected, "page %d", page)
		assert.Equal(s.T(), 25, res.Total)
		assert.Equal(s.T(), 3, res.Pages)
	}

	res, err := s.storage.List(s.ctx, query.Params{Search: "100% milk"}, now)
	require.NoError(s.T(), err)
	require.Len(s.T(), res.Tasks, 1)
	assert.Equal(s.T(), "task 03", res.Tasks[0].Name)

	res, err = s.storage.List(s.ctx, query.Params{DateFilter: query.DateOverdue}, now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 4, res.Total)

	res, err = s.storage.List(s.ctx, query.Params{DateFilter: query.DateNoDueDate}, now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 20, res.Total)

	for _, key := range []query.SortKey{query.SortDueDateAsc, query.SortDueDateDesc} {
		res, err = s.storage.List(s.ctx, query.Params{Sort: key}, now)
		require.NoError(s.T(), err)
		for i, tk := range res.Tasks {
			if i < 5 {
				assert.NotNil(s.T(), tk.DueDate, key)
			} else {
				assert.Nil(s.T(), tk.DueDate, key)
			}
		}
	}

	res, err = s.storage.List(s.ctx, query.Params{Sort: query.SortDueDateAsc}, now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "task 25", res.Tasks[0].Name)

	count, err := s.storage.CountOverdue(s.ctx, now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 4, count)
}

func (s *PostgresTestSuite) TestStorage_ListByTags() {
	one := &task.Tag{Name: "one", Color: "#111"}
	two := &task.Tag{Name: "two", Color: "#222"}
	require.NoError(s.T(), s.storage.CreateTag(s.ctx, one))
	require.NoError(s.T(), s.storage.CreateTag(s.ctx, two))

	ids := make([]int64, 4)
	for i := range ids {
		tk := task.New(fmt.Sprintf("t%d", i))
		tk.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(s.T(), s.storage.Create(s.ctx, tk))
		ids[i] = tk.ID
	}
	require.NoError(s.T(), s.storage.AttachTag(s.ctx, ids[0], one.ID))
	require.NoError(s.T(), s.storage.AttachTag(s.ctx, ids[1], one.ID))
	require.NoError(s.T(), s.storage.AttachTag(s.ctx, ids[1], two.ID))
	require.NoError(s.T(), s.storage.AttachTag(s.ctx, ids[3], two.ID))

	res, err := s.storage.ListByTags(s.ctx, []int64{one.ID, two.ID}, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, res.Total)
	require.Len(s.T(), res.Tasks, 3)
	assert.Equal(s.T(), []int64{ids[3], ids[1], ids[0]},
		[]int64{res.Tasks[0].ID, res.Tasks[1].ID, res.Tasks[2].ID})
	assert.Len(s.T(), res.Tasks[1].Tags, 2)
}
