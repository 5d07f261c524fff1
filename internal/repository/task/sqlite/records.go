package sqlite

import (
	"time"
	"todoTracker/internal/models/task"
)

// taskRecord is the gorm row for a task. Times are stored in UTC so that text
// comparisons in SQLite follow chronological order.
type taskRecord struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	Name        string     `gorm:"size:200;not null"`
	Description string     `gorm:"type:text;not null;default:''"`
	Priority    string     `gorm:"size:10;not null;default:'Medium';index"`
	Status      string     `gorm:"size:10;not null;default:'todo';index"`
	DueDate     *time.Time `gorm:"index"`
	Completed   bool       `gorm:"not null;default:false"`
	CreatedAt   time.Time  `gorm:"not null;index"`
	UpdatedAt   time.Time  `gorm:"not null"`

	Subtasks []subtaskRecord `gorm:"foreignKey:TaskID"`
	Tags     []tagRecord     `gorm:"many2many:task_tags;joinForeignKey:TaskID;joinReferences:TagID"`
}

func (taskRecord) TableName() string { return "tasks" }

type subtaskRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	TaskID    int64  `gorm:"not null;index"`
	Title     string `gorm:"size:200;not null"`
	IsDone    bool   `gorm:"not null;default:false"`
	SortOrder int    `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (subtaskRecord) TableName() string { return "subtasks" }

type tagRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:50;not null;uniqueIndex"`
	Color     string `gorm:"size:7;not null"`
	CreatedAt time.Time
}

func (tagRecord) TableName() string { return "tags" }

type taskTagRecord struct {
	TaskID int64 `gorm:"primaryKey"`
	TagID  int64 `gorm:"primaryKey;index"`
}

func (taskTagRecord) TableName() string { return "task_tags" }

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func toTaskRecord(t *task.Task) *taskRecord {
	return &taskRecord{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		DueDate:     utc(t.DueDate),
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

func (r *taskRecord) toModel() *task.Task {
	t := &task.Task{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Priority:    task.Priority(r.Priority),
		Status:      task.Status(r.Status),
		DueDate:     utc(r.DueDate),
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
		Subtasks:    make([]task.Subtask, 0, len(r.Subtasks)),
		Tags:        make([]task.Tag, 0, len(r.Tags)),
	}
	for _, s := range r.Subtasks {
		t.Subtasks = append(t.Subtasks, *s.toModel())
	}
	for _, tag := range r.Tags {
		t.Tags = append(t.Tags, *tag.toModel())
	}
	return t
}

func toSubtaskRecord(s *task.Subtask) *subtaskRecord {
	return &subtaskRecord{
		ID:        s.ID,
		TaskID:    s.TaskID,
		Title:     s.Title,
		IsDone:    s.IsDone,
		SortOrder: s.Order,
		CreatedAt: s.CreatedAt.UTC(),
	}
}

func (r *subtaskRecord) toModel() *task.Subtask {
	return &task.Subtask{
		ID:        r.ID,
		TaskID:    r.TaskID,
		Title:     r.Title,
		IsDone:    r.IsDone,
		Order:     r.SortOrder,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (r *tagRecord) toModel() *task.Tag {
	return &task.Tag{
		ID:        r.ID,
		Name:      r.Name,
		Color:     r.Color,
		CreatedAt: r.CreatedAt.UTC(),
	}
}
