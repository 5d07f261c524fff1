package query

import (
	"sort"
	"strings"
	"time"
	"todoTracker/internal/models/task"
)

type Page struct {
	Tasks   []*task.Task `json:"tasks"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Total   int          `json:"total"`
	Pages   int          `json:"pages"`
}

func NewPage(tasks []*task.Task, page, total int) *Page {
	if tasks == nil {
		tasks = []*task.Task{}
	}
	if page < 1 {
		page = 1
	}
	return &Page{
		Tasks:   tasks,
		Page:    page,
		PerPage: PerPage,
		Total:   total,
		Pages:   TotalPages(total),
	}
}

func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PerPage - 1) / PerPage
}

func (p *Page) HasPrev() bool {
	return p.Page > 1
}

func (p *Page) HasNext() bool {
	return p.Page < p.Pages
}

// Matches reports whether a task passes every filter in p.
func (p Params) Matches(t *task.Task, now time.Time) bool {
	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(t.Name), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if p.Priority != "" && t.Priority != p.Priority {
		return false
	}
	if p.Status != "" && t.Status != p.Status {
		return false
	}

	switch p.DateFilter {
	case DateOverdue:
		return t.IsOverdue(now)
	case DateNoDueDate:
		return t.DueDate == nil
	case DateToday, DateThisWeek:
		r, _ := Bounds(p.DateFilter, now)
		return t.DueDate != nil && r.Contains(*t.DueDate)
	}
	return true
}

// Less orders a before b under the sort key, falling back to id.
func (k SortKey) Less(a, b *task.Task) bool {
	switch k {
	case SortDueDateAsc, SortDueDateDesc:
		if (a.DueDate == nil) != (b.DueDate == nil) {
			return b.DueDate == nil
		}
		if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
			if k == SortDueDateAsc {
				return a.DueDate.Before(*b.DueDate)
			}
			return a.DueDate.After(*b.DueDate)
		}
	case SortPriorityHigh, SortPriorityLow:
		ra, rb := a.Priority.Rank(), b.Priority.Rank()
		if ra != rb {
			if k == SortPriorityHigh {
				return ra < rb
			}
			return ra > rb
		}
	case SortNameAsc, SortNameDesc:
		na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if na != nb {
			if k == SortNameAsc {
				return na < nb
			}
			return na > nb
		}
	case SortCreatedAsc:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}

// Apply filters, sorts and pages a task collection. The input slice is not
// reordered.
func Apply(tasks []*task.Task, p Params, now time.Time) *Page {
	p = p.Normalize()

	matched := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if p.Matches(t, now) {
			matched = append(matched, t)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return p.Sort.Less(matched[i], matched[j])
	})

	return NewPage(slice(matched, p.Page), p.Page, len(matched))
}

// ApplyTags returns tasks linked to any of tagIDs, newest first.
func ApplyTags(tasks []*task.Task, tagIDs []int64, page int) *Page {
	page = ParsePageNumber(page)

	matched := make([]*task.Task, 0)
	for _, t := range tasks {
		for _, id := range tagIDs {
			if t.HasTag(id) {
				matched = append(matched, t)
				break
			}
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return SortCreatedDesc.Less(matched[i], matched[j])
	})

	return NewPage(slice(matched, page), page, len(matched))
}

func CountOverdue(tasks []*task.Task, now time.Time) int {
	count := 0
	for _, t := range tasks {
		if t.IsOverdue(now) {
			count++
		}
	}
	return count
}

// ParsePageNumber clamps page into [1, MaxPage].
func ParsePageNumber(page int) int {
	switch {
	case page < 1:
		return 1
	case page > MaxPage:
		return MaxPage
	}
	return page
}

func slice(tasks []*task.Task, page int) []*task.Task {
	offset := Offset(page)
	if offset >= len(tasks) {
		return []*task.Task{}
	}
	end := offset + PerPage
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[offset:end]
}
