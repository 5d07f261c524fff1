package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	repo "todoTracker/internal/repository"
	"todoTracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a testify mock of the store.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, p query.Params, now time.Time) (*query.Page, error) {
	args := m.Called(ctx, p, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*query.Page), args.Error(1)
}

func (m *MockRepository) ListByTags(ctx context.Context, tagIDs []int64, page int) (*query.Page, error) {
	args := m.Called(ctx, tagIDs, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*query.Page), args.Error(1)
}

func (m *MockRepository) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CreateSubtask(ctx context.Context, sub *task.Subtask) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockRepository) UpdateSubtask(ctx context.Context, sub *task.Subtask) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockRepository) GetSubtask(ctx context.Context, id int64) (*task.Subtask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Subtask), args.Error(1)
}

func (m *MockRepository) DeleteSubtask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ListSubtasks(ctx context.Context, taskID int64) ([]task.Subtask, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]task.Subtask), args.Error(1)
}

func (m *MockRepository) CreateTag(ctx context.Context, tag *task.Tag) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}

func (m *MockRepository) GetTag(ctx context.Context, id int64) (*task.Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Tag), args.Error(1)
}

func (m *MockRepository) GetTagByName(ctx context.Context, name string) (*task.Tag, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Tag), args.Error(1)
}

func (m *MockRepository) ListTags(ctx context.Context) ([]task.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]task.Tag), args.Error(1)
}

func (m *MockRepository) DeleteTag(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) AttachTag(ctx context.Context, taskID, tagID int64) error {
	args := m.Called(ctx, taskID, tagID)
	return args.Error(0)
}

func (m *MockRepository) DetachTag(ctx context.Context, taskID, tagID int64) error {
	args := m.Called(ctx, taskID, tagID)
	return args.Error(0)
}

var _ service.Repository = (*MockRepository)(nil)

var fixedNow = time.Date(2026, 4, 15, 14, 0, 0, 0, time.UTC)

func newService(m *MockRepository) *service.TaskService {
	return service.NewTaskService(m, func() time.Time { return fixedNow })
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var busErr *service.BusinessError
	require.True(t, errors.As(err, &busErr), "expected BusinessError, got %v", err)
	assert.Equal(t, code, busErr.Code)
}

func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setupMock(mockRepo)

			err := newService(mockRepo).HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "service health check")
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()
	due := fixedNow.Add(48 * time.Hour)

	tests := []struct {
		name      string
		taskName  string
		options   []task.TaskOption
		setupMock func(*MockRepository)
		check     func(*testing.T, *task.Task)
		errorCode string
	}{
		{
			name:     "success - defaults applied",
			taskName: "  Buy milk  ",
			setupMock: func(m *MockRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Name == "Buy milk" && t.Priority == task.PriorityMedium &&
						t.Status == task.StatusTodo && t.CreatedAt.Equal(fixedNow)
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*task.Task).ID = 7
				}).Return(nil)
			},
			check: func(t *testing.T, got *task.Task) {
				assert.Equal(t, int64(7), got.ID)
				assert.False(t, got.Completed)
			},
		},
		{
			name:     "success - options applied, unparsed ones skipped",
			taskName: "Report",
			options: []task.TaskOption{
				task.WithPriority(task.PriorityHigh),
				task.WithStatus(task.Status("bogus")),
				task.WithStatus(task.StatusDone),
				task.WithDueDate(due),
				task.WithDescription("quarterly"),
			},
			setupMock: func(m *MockRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, got *task.Task) {
				assert.Equal(t, task.PriorityHigh, got.Priority)
				assert.Equal(t, task.StatusDone, got.Status)
				assert.True(t, got.Completed)
				require.NotNil(t, got.DueDate)
				assert.True(t, due.Equal(*got.DueDate))
				assert.Equal(t, "quarterly", got.Description)
			},
		},
		{
			name:      "error - empty name",
			taskName:  "   ",
			setupMock: func(m *MockRepository) {},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - name too long",
			taskName:  strings.Repeat("x", task.MaxNameLength+1),
			setupMock: func(m *MockRepository) {},
			errorCode: service.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setupMock(mockRepo)

			got, err := newService(mockRepo).CreateTask(ctx, tt.taskName, tt.options...)

			if tt.errorCode != "" {
				assertCode(t, err, tt.errorCode)
			} else {
				require.NoError(t, err)
				tt.check(t, got)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_UpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("success - options applied", func(t *testing.T) {
		mockRepo := new(MockRepository)
		due := fixedNow
		existing := &task.Task{ID: 3, Name: "Old", Priority: task.PriorityLow, Status: task.StatusTodo, DueDate: &due}

		mockRepo.On("GetByID", mock.Anything, int64(3)).Return(existing, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
			return t.Name == "New" && t.DueDate == nil && t.Priority == task.PriorityLow
		})).Return(nil)

		got, err := newService(mockRepo).UpdateTask(ctx, 3,
			task.WithName("New"), task.WithoutDueDate(), task.WithPriority("nope"))

		require.NoError(t, err)
		assert.Equal(t, "New", got.Name)
		mockRepo.AssertExpectations(t)
	})

	t.Run("error - task not found", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetByID", mock.Anything, int64(9)).Return(nil, repo.ErrNotFound)

		_, err := newService(mockRepo).UpdateTask(ctx, 9, task.WithName("x"))

		assertCode(t, err, service.CodeNotFound)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("error - name too long", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetByID", mock.Anything, int64(3)).Return(&task.Task{ID: 3, Name: "Old"}, nil)

		_, err := newService(mockRepo).UpdateTask(ctx, 3, task.WithName(strings.Repeat("y", 201)))

		assertCode(t, err, service.CodeValidation)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("error - storage failure is not a business error", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetByID", mock.Anything, int64(3)).Return(&task.Task{ID: 3, Name: "Old"}, nil)
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, err := newService(mockRepo).UpdateTask(ctx, 3)

		require.Error(t, err)
		assert.False(t, service.IsCode(err, service.CodeNotFound))
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestTaskService_ToggleComplete(t *testing.T) {
	tests := []struct {
		name           string
		status         task.Status
		expectedStatus task.Status
	}{
		{name: "todo becomes done", status: task.StatusTodo, expectedStatus: task.StatusDone},
		{name: "doing becomes done", status: task.StatusDoing, expectedStatus: task.StatusDone},
		{name: "done becomes todo", status: task.StatusDone, expectedStatus: task.StatusTodo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			existing := &task.Task{ID: 1, Name: "t"}
			existing.SetStatus(tt.status)

			mockRepo.On("GetByID", mock.Anything, int64(1)).Return(existing, nil)
			mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

			got, err := newService(mockRepo).ToggleComplete(context.Background(), 1)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, got.Status)
			assert.Equal(t, got.Status == task.StatusDone, got.Completed)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_SetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(&task.Task{ID: 1, Name: "t", Status: task.StatusTodo}, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
			return t.Status == task.StatusDone && t.Completed
		})).Return(nil)

		_, err := newService(mockRepo).SetStatus(ctx, 1, task.StatusDone)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("error - unknown status", func(t *testing.T) {
		mockRepo := new(MockRepository)
		_, err := newService(mockRepo).SetStatus(ctx, 1, task.Status("archived"))
		assertCode(t, err, service.CodeValidation)
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestTaskService_DeleteTask(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("Delete", mock.Anything, int64(1)).Return(nil)
	mockRepo.On("Delete", mock.Anything, int64(2)).Return(repo.ErrNotFound)

	svc := newService(mockRepo)
	assert.NoError(t, svc.DeleteTask(context.Background(), 1))
	assertCode(t, svc.DeleteTask(context.Background(), 2), service.CodeNotFound)
}

func TestTaskService_ListTasks(t *testing.T) {
	mockRepo := new(MockRepository)
	page := query.NewPage([]*task.Task{{ID: 1, Name: "a"}}, 2, 11)

	mockRepo.On("List", mock.Anything, mock.MatchedBy(func(p query.Params) bool {
		return p.Page == 2 && p.Sort == query.DefaultSort
	}), fixedNow).Return(page, nil)
	mockRepo.On("CountOverdue", mock.Anything, fixedNow).Return(4, nil)

	got, err := newService(mockRepo).ListTasks(context.Background(), query.Params{Page: 2, Sort: "bogus"})

	require.NoError(t, err)
	assert.Equal(t, 4, got.OverdueCount)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, query.DefaultSort, got.Params.Sort)
	assert.Len(t, got.Tasks, 1)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_AddSubtask(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		title         string
		setupMock     func(*MockRepository)
		expectedOrder int
		errorCode     string
	}{
		{
			name:  "first subtask gets order 1",
			title: "step",
			setupMock: func(m *MockRepository) {
				m.On("ListSubtasks", mock.Anything, int64(1)).Return([]task.Subtask{}, nil)
				m.On("CreateSubtask", mock.Anything, mock.Anything).Return(nil)
			},
			expectedOrder: 1,
		},
		{
			name:  "appends after the highest order",
			title: "step",
			setupMock: func(m *MockRepository) {
				m.On("ListSubtasks", mock.Anything, int64(1)).Return([]task.Subtask{{Order: 0}, {Order: 5}, {Order: 2}}, nil)
				m.On("CreateSubtask", mock.Anything, mock.Anything).Return(nil)
			},
			expectedOrder: 6,
		},
		{
			name:  "negative orders still append after the highest",
			title: "step",
			setupMock: func(m *MockRepository) {
				m.On("ListSubtasks", mock.Anything, int64(1)).Return([]task.Subtask{{Order: -3}, {Order: -7}}, nil)
				m.On("CreateSubtask", mock.Anything, mock.Anything).Return(nil)
			},
			expectedOrder: -2,
		},
		{
			name:  "error - highest order already at the limit",
			title: "step",
			setupMock: func(m *MockRepository) {
				m.On("ListSubtasks", mock.Anything, int64(1)).Return([]task.Subtask{{Order: task.MaxOrder}}, nil)
			},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - empty title",
			title:     "  ",
			setupMock: func(m *MockRepository) {},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - title too long",
			title:     strings.Repeat("a", task.MaxTitleLength+1),
			setupMock: func(m *MockRepository) {},
			errorCode: service.CodeValidation,
		},
		{
			name:  "error - task not found",
			title: "step",
			setupMock: func(m *MockRepository) {
				m.On("ListSubtasks", mock.Anything, int64(1)).Return(nil, repo.ErrNotFound)
			},
			errorCode: service.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setupMock(mockRepo)

			got, err := newService(mockRepo).AddSubtask(ctx, 1, tt.title)

			if tt.errorCode != "" {
				assertCode(t, err, tt.errorCode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedOrder, got.Order)
				assert.Equal(t, int64(1), got.TaskID)
				assert.False(t, got.IsDone)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_SubtaskMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("toggle", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetSubtask", mock.Anything, int64(4)).Return(&task.Subtask{ID: 4, TaskID: 1, Title: "s"}, nil)
		mockRepo.On("UpdateSubtask", mock.Anything, mock.MatchedBy(func(s *task.Subtask) bool { return s.IsDone })).Return(nil)

		got, err := newService(mockRepo).ToggleSubtask(ctx, 4)
		require.NoError(t, err)
		assert.True(t, got.IsDone)
		mockRepo.AssertExpectations(t)
	})

	t.Run("update title", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetSubtask", mock.Anything, int64(4)).Return(&task.Subtask{ID: 4, Title: "old"}, nil)
		mockRepo.On("UpdateSubtask", mock.Anything, mock.Anything).Return(nil)

		got, err := newService(mockRepo).UpdateSubtaskTitle(ctx, 4, " new ")
		require.NoError(t, err)
		assert.Equal(t, "new", got.Title)

		_, err = newService(mockRepo).UpdateSubtaskTitle(ctx, 4, "")
		assertCode(t, err, service.CodeValidation)
	})

	t.Run("reorder", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetSubtask", mock.Anything, int64(4)).Return(&task.Subtask{ID: 4, Order: 1}, nil)
		mockRepo.On("UpdateSubtask", mock.Anything, mock.Anything).Return(nil)

		got, err := newService(mockRepo).ReorderSubtask(ctx, 4, 9)
		require.NoError(t, err)
		assert.Equal(t, 9, got.Order)
	})

	t.Run("reorder out of the stored range", func(t *testing.T) {
		mockRepo := new(MockRepository)

		for _, order := range []int{task.MaxOrder + 1, task.MinOrder - 1, 3000000000} {
			_, err := newService(mockRepo).ReorderSubtask(ctx, 4, order)
			assertCode(t, err, service.CodeValidation)
		}
		mockRepo.AssertNotCalled(t, "GetSubtask", mock.Anything, mock.Anything)
	})

	t.Run("delete returns the parent", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetSubtask", mock.Anything, int64(4)).Return(&task.Subtask{ID: 4, TaskID: 12}, nil)
		mockRepo.On("DeleteSubtask", mock.Anything, int64(4)).Return(nil)

		got, err := newService(mockRepo).DeleteSubtask(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(12), got.TaskID)
	})

	t.Run("missing subtask", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetSubtask", mock.Anything, int64(4)).Return(nil, repo.ErrNotFound)

		_, err := newService(mockRepo).ToggleSubtask(ctx, 4)
		assertCode(t, err, service.CodeNotFound)
	})
}

func TestTaskService_ListSubtasks(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("GetByID", mock.Anything, int64(1)).Return(&task.Task{
		ID:       1,
		Subtasks: []task.Subtask{{ID: 1, IsDone: true}, {ID: 2}, {ID: 3}},
	}, nil)
	mockRepo.On("GetByID", mock.Anything, int64(2)).Return(&task.Task{ID: 2, Completed: true}, nil)

	svc := newService(mockRepo)

	got, err := svc.ListSubtasks(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got.Subtasks, 3)
	assert.Equal(t, 33, got.CompletionPercentage)

	got, err = svc.ListSubtasks(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, got.Subtasks)
	assert.Equal(t, 100, got.CompletionPercentage)
}

func TestTaskService_CreateTag(t *testing.T) {
	ctx := context.Background()
	existing := &task.Tag{ID: 5, Name: "work", Color: "#ff0000"}

	tests := []struct {
		name            string
		tagName         string
		color           string
		setupMock       func(*MockRepository)
		expectedID      int64
		expectedColor   string
		expectedCreated bool
		errorCode       string
	}{
		{
			name:    "existing name returns the same tag",
			tagName: " work ",
			setupMock: func(m *MockRepository) {
				m.On("GetTagByName", mock.Anything, "work").Return(existing, nil)
			},
			expectedID:    5,
			expectedColor: "#ff0000",
		},
		{
			name:    "new tag with valid color",
			tagName: "home",
			color:   "#0F0",
			setupMock: func(m *MockRepository) {
				m.On("GetTagByName", mock.Anything, "home").Return(nil, repo.ErrNotFound)
				m.On("CreateTag", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
					args.Get(1).(*task.Tag).ID = 6
				}).Return(nil)
			},
			expectedID:      6,
			expectedColor:   "#0F0",
			expectedCreated: true,
		},
		{
			name:    "malformed color falls back to the default",
			tagName: "home",
			color:   "red",
			setupMock: func(m *MockRepository) {
				m.On("GetTagByName", mock.Anything, "home").Return(nil, repo.ErrNotFound)
				m.On("CreateTag", mock.Anything, mock.Anything).Return(nil)
			},
			expectedColor:   task.DefaultTagColor,
			expectedCreated: true,
		},
		{
			name:    "concurrent create resolves to the stored tag",
			tagName: "work",
			setupMock: func(m *MockRepository) {
				m.On("GetTagByName", mock.Anything, "work").Return(nil, repo.ErrNotFound).Once()
				m.On("CreateTag", mock.Anything, mock.Anything).Return(repo.ErrAlreadyExists)
				m.On("GetTagByName", mock.Anything, "work").Return(existing, nil).Once()
			},
			expectedID:    5,
			expectedColor: "#ff0000",
		},
		{
			name:      "error - empty name",
			tagName:   "",
			setupMock: func(m *MockRepository) {},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - name too long",
			tagName:   strings.Repeat("t", task.MaxTagNameLength+1),
			setupMock: func(m *MockRepository) {},
			errorCode: service.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setupMock(mockRepo)

			got, created, err := newService(mockRepo).CreateTag(ctx, tt.tagName, tt.color)

			if tt.errorCode != "" {
				assertCode(t, err, tt.errorCode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedID, got.ID)
				assert.Equal(t, tt.expectedColor, got.Color)
				assert.Equal(t, tt.expectedCreated, created)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_AttachAndDetachTag(t *testing.T) {
	ctx := context.Background()

	t.Run("attach", func(t *testing.T) {
		mockRepo := new(MockRepository)
		tagged := &task.Task{ID: 1, Tags: []task.Tag{{ID: 2}}}
		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(tagged, nil)
		mockRepo.On("GetTag", mock.Anything, int64(2)).Return(&task.Tag{ID: 2}, nil)
		mockRepo.On("AttachTag", mock.Anything, int64(1), int64(2)).Return(nil)

		got, err := newService(mockRepo).AttachTag(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, got.HasTag(2))
		mockRepo.AssertExpectations(t)
	})

	t.Run("attach - missing tag", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(&task.Task{ID: 1}, nil)
		mockRepo.On("GetTag", mock.Anything, int64(2)).Return(nil, repo.ErrNotFound)

		_, err := newService(mockRepo).AttachTag(ctx, 1, 2)
		assertCode(t, err, service.CodeNotFound)
		mockRepo.AssertNotCalled(t, "AttachTag", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("attach - missing task", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(nil, repo.ErrNotFound)

		_, err := newService(mockRepo).AttachTag(ctx, 1, 2)
		assertCode(t, err, service.CodeNotFound)
	})

	t.Run("detach", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockRepo.On("GetByID", mock.Anything, int64(1)).Return(&task.Task{ID: 1}, nil)
		mockRepo.On("DetachTag", mock.Anything, int64(1), int64(2)).Return(nil)

		_, err := newService(mockRepo).DetachTag(ctx, 1, 2)
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestTaskService_FilterByTags(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("ListByTags", mock.Anything, []int64{1, 2}, 1).Return(query.NewPage(nil, 1, 0), nil)

	got, err := newService(mockRepo).FilterByTags(context.Background(), []int64{1, 2, 1}, 1)

	require.NoError(t, err)
	assert.Empty(t, got.Tasks)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_DeleteTag(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("DeleteTag", mock.Anything, int64(3)).Return(repo.ErrNotFound)

	err := newService(mockRepo).DeleteTag(context.Background(), 3)
	assertCode(t, err, service.CodeNotFound)
}

func TestNormalizeColor(t *testing.T) {
	tests := map[string]string{
		"#abc":     "#abc",
		"#A1B2C3":  "#A1B2C3",
		" #123456": "#123456",
		"":         task.DefaultTagColor,
		"#12":      task.DefaultTagColor,
		"blue":     task.DefaultTagColor,
		"#1234567": task.DefaultTagColor,
	}
	for in, expected := range tests {
		assert.Equal(t, expected, service.NormalizeColor(in), in)
	}
}
