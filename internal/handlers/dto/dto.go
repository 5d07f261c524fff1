package dto

import (
	"time"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
)

// TaskRequest carries task fields from a JSON body or a form. Nil means the
// field was not sent.
type TaskRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

type SubtaskRequest struct {
	Title string `json:"title"`
}

type ReorderRequest struct {
	Order *int `json:"order"`
}

type TagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type TaskResponse struct {
	ID                   int64          `json:"id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	Priority             task.Priority  `json:"priority"`
	Status               task.Status    `json:"status"`
	DueDate              *time.Time     `json:"due_date"`
	Completed            bool           `json:"completed"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	IsOverdue            bool           `json:"is_overdue"`
	DaysUntilDue         *int           `json:"days_until_due"`
	CompletionPercentage int            `json:"completion_percentage"`
	Subtasks             []task.Subtask `json:"subtasks"`
	Tags                 []task.Tag     `json:"tags"`
}

type TaskListResponse struct {
	Tasks   []TaskResponse `json:"tasks"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int            `json:"total"`
	Pages   int            `json:"pages"`
}

func FromTask(t *task.Task, now time.Time) TaskResponse {
	subtasks := t.Subtasks
	if subtasks == nil {
		subtasks = []task.Subtask{}
	}
	tags := t.Tags
	if tags == nil {
		tags = []task.Tag{}
	}

	return TaskResponse{
		ID:                   t.ID,
		Name:                 t.Name,
		Description:          t.Description,
		Priority:             t.Priority,
		Status:               t.Status,
		DueDate:              t.DueDate,
		Completed:            t.Completed,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
		IsOverdue:            t.IsOverdue(now),
		DaysUntilDue:         t.DaysUntilDue(now),
		CompletionPercentage: t.CompletionPercentage(),
		Subtasks:             subtasks,
		Tags:                 tags,
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}

func FromPage(page *query.Page, now time.Time) TaskListResponse {
	return TaskListResponse{
		Tasks:   FromTaskList(page.Tasks, now),
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   page.Total,
		Pages:   page.Pages,
	}
}
