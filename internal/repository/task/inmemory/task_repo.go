package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	repo "todoTracker/internal/repository"
)

// TaskStorage keeps tasks, subtasks and tags in maps. Every read returns a copy,
// so callers never share state with the store.
type TaskStorage struct {
	mtx *sync.RWMutex

	tasks    map[int64]*task.Task
	ids      []int64
	subtasks map[int64]*task.Subtask
	tags     map[int64]*task.Tag
	links    map[int64]map[int64]struct{}

	lastTaskID    int64
	lastSubtaskID int64
	lastTagID     int64
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		mtx:      &sync.RWMutex{},
		tasks:    make(map[int64]*task.Task),
		ids:      []int64{},
		subtasks: make(map[int64]*task.Subtask),
		tags:     make(map[int64]*task.Tag),
		links:    make(map[int64]map[int64]struct{}),
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: in-memory store is healthy")
	return nil
}

func (s *TaskStorage) Close() {}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.lastTaskID++
	taskToCreate.ID = s.lastTaskID
	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now()
	}
	taskToCreate.UpdatedAt = taskToCreate.CreatedAt
	taskToCreate.Completed = taskToCreate.Status == task.StatusDone

	stored := *taskToCreate
	stored.Subtasks = nil
	stored.Tags = nil
	s.tasks[stored.ID] = &stored
	s.ids = append(s.ids, stored.ID)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[taskToUpdate.ID]; !ok {
		return repo.ErrNotFound
	}

	taskToUpdate.UpdatedAt = time.Now()
	taskToUpdate.Completed = taskToUpdate.Status == task.StatusDone

	stored := *taskToUpdate
	stored.Subtasks = nil
	stored.Tags = nil
	s.tasks[stored.ID] = &stored
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if _, ok := s.tasks[id]; !ok {
		return nil, repo.ErrNotFound
	}
	return s.hydrate(id), nil
}

// Delete drops the task together with its subtasks and tag links.
func (s *TaskStorage) Delete(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return repo.ErrNotFound
	}

	delete(s.tasks, id)
	delete(s.links, id)
	for subID, sub := range s.subtasks {
		if sub.TaskID == id {
			delete(s.subtasks, subID)
		}
	}
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
	return nil
}

func (s *TaskStorage) List(ctx context.Context, params query.Params, now time.Time) (*query.Page, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return query.Apply(s.all(), params, now), nil
}

func (s *TaskStorage) ListByTags(ctx context.Context, tagIDs []int64, page int) (*query.Page, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return query.ApplyTags(s.all(), tagIDs, page), nil
}

func (s *TaskStorage) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := 0
	for _, t := range s.tasks {
		if t.IsOverdue(now) {
			count++
		}
	}
	return count, nil
}

func (s *TaskStorage) CreateSubtask(ctx context.Context, sub *task.Subtask) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[sub.TaskID]; !ok {
		return repo.ErrNotFound
	}

	s.lastSubtaskID++
	sub.ID = s.lastSubtaskID
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	stored := *sub
	s.subtasks[sub.ID] = &stored
	return nil
}

func (s *TaskStorage) UpdateSubtask(ctx context.Context, sub *task.Subtask) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.subtasks[sub.ID]
	if !ok {
		return repo.ErrNotFound
	}
	existing.Title = sub.Title
	existing.IsDone = sub.IsDone
	existing.Order = sub.Order
	return nil
}

func (s *TaskStorage) GetSubtask(ctx context.Context, id int64) (*task.Subtask, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	sub, ok := s.subtasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	res := *sub
	return &res, nil
}

func (s *TaskStorage) DeleteSubtask(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.subtasks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.subtasks, id)
	return nil
}

func (s *TaskStorage) ListSubtasks(ctx context.Context, taskID int64) ([]task.Subtask, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if _, ok := s.tasks[taskID]; !ok {
		return nil, repo.ErrNotFound
	}
	return s.subtasksOf(taskID), nil
}

func (s *TaskStorage) CreateTag(ctx context.Context, tag *task.Tag) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, existing := range s.tags {
		if existing.Name == tag.Name {
			return repo.ErrAlreadyExists
		}
	}

	s.lastTagID++
	tag.ID = s.lastTagID
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now()
	}
	stored := *tag
	s.tags[tag.ID] = &stored
	return nil
}

func (s *TaskStorage) GetTag(ctx context.Context, id int64) (*task.Tag, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tag, ok := s.tags[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	res := *tag
	return &res, nil
}

func (s *TaskStorage) GetTagByName(ctx context.Context, name string) (*task.Tag, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, tag := range s.tags {
		if tag.Name == name {
			res := *tag
			return &res, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *TaskStorage) ListTags(ctx context.Context) ([]task.Tag, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]task.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		res = append(res, *tag)
	}
	sortTags(res)
	return res, nil
}

// DeleteTag drops the tag and unlinks it from every task.
func (s *TaskStorage) DeleteTag(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tags[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tags, id)
	for _, linked := range s.links {
		delete(linked, id)
	}
	return nil
}

func (s *TaskStorage) AttachTag(ctx context.Context, taskID, tagID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return repo.ErrNotFound
	}
	if _, ok := s.tags[tagID]; !ok {
		return repo.ErrNotFound
	}
	if s.links[taskID] == nil {
		s.links[taskID] = make(map[int64]struct{})
	}
	s.links[taskID][tagID] = struct{}{}
	return nil
}

func (s *TaskStorage) DetachTag(ctx context.Context, taskID, tagID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.links[taskID], tagID)
	return nil
}

// all returns hydrated copies in insertion order. Caller holds the lock.
func (s *TaskStorage) all() []*task.Task {
	res := make([]*task.Task, 0, len(s.ids))
	for _, id := range s.ids {
		res = append(res, s.hydrate(id))
	}
	return res
}

func (s *TaskStorage) hydrate(id int64) *task.Task {
	t := *s.tasks[id]
	t.Subtasks = s.subtasksOf(id)
	t.Tags = []task.Tag{}
	for tagID := range s.links[id] {
		if tag, ok := s.tags[tagID]; ok {
			t.Tags = append(t.Tags, *tag)
		}
	}
	sortTags(t.Tags)
	return &t
}

func (s *TaskStorage) subtasksOf(taskID int64) []task.Subtask {
	res := []task.Subtask{}
	for _, sub := range s.subtasks {
		if sub.TaskID == taskID {
			res = append(res, *sub)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Order != res[j].Order {
			return res[i].Order < res[j].Order
		}
		return res[i].ID < res[j].ID
	})
	return res
}

func sortTags(tags []task.Tag) {
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i].Name) < strings.ToLower(tags[j].Name)
	})
}
