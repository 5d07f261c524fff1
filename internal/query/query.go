// Package query holds the task list filters, sort keys and pagination shared by
// every store. Apply runs them over an in-memory collection; SQL stores use
// Bounds, SearchPattern and SortKey.OrderBy to build equivalent statements.
package query

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"todoTracker/internal/models/task"
)

const PerPage = 10

// MaxPage caps page numbers so offsets stay far from int overflow. Any page
// past the last one is empty, so clamping does not change results.
const MaxPage = math.MaxInt32

type DateFilter string

const (
	DateAny       DateFilter = ""
	DateOverdue   DateFilter = "overdue"
	DateToday     DateFilter = "today"
	DateThisWeek  DateFilter = "this_week"
	DateNoDueDate DateFilter = "no_due_date"
)

func (d DateFilter) Valid() bool {
	switch d {
	case DateAny, DateOverdue, DateToday, DateThisWeek, DateNoDueDate:
		return true
	}
	return false
}

type SortKey string

const (
	SortDueDateAsc   SortKey = "due_date_asc"
	SortDueDateDesc  SortKey = "due_date_desc"
	SortPriorityHigh SortKey = "priority_high"
	SortPriorityLow  SortKey = "priority_low"
	SortNameAsc      SortKey = "name_asc"
	SortNameDesc     SortKey = "name_desc"
	SortCreatedAsc   SortKey = "created_asc"
	SortCreatedDesc  SortKey = "created_desc"

	DefaultSort = SortCreatedDesc
)

func (k SortKey) Valid() bool {
	switch k {
	case SortDueDateAsc, SortDueDateDesc, SortPriorityHigh, SortPriorityLow,
		SortNameAsc, SortNameDesc, SortCreatedAsc, SortCreatedDesc:
		return true
	}
	return false
}

type Params struct {
	Search     string        `json:"q"`
	Priority   task.Priority `json:"priority"`
	Status     task.Status   `json:"status"`
	DateFilter DateFilter    `json:"date_filter"`
	Sort       SortKey       `json:"sort"`
	Page       int           `json:"page"`
}

// ParseParams reads the list view query string. Unknown filter values are
// dropped instead of rejected.
func ParseParams(values url.Values) Params {
	p := Params{
		Search:     strings.TrimSpace(values.Get("q")),
		DateFilter: DateFilter(values.Get("date_filter")),
		Sort:       SortKey(values.Get("sort")),
		Page:       ParsePage(values.Get("page")),
	}
	if priority, err := task.ParsePriority(values.Get("priority")); err == nil {
		p.Priority = priority
	}
	if status, err := task.ParseStatus(values.Get("status")); err == nil {
		p.Status = status
	}
	return p.Normalize()
}

func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && !strings.HasPrefix(strings.TrimSpace(raw), "-") {
			return MaxPage
		}
		return 1
	}
	return ParsePageNumber(page)
}

func (p Params) Normalize() Params {
	p.Page = ParsePageNumber(p.Page)
	if !p.Sort.Valid() {
		p.Sort = DefaultSort
	}
	if !p.DateFilter.Valid() {
		p.DateFilter = DateAny
	}
	if !p.Priority.Valid() {
		p.Priority = ""
	}
	if !p.Status.Valid() {
		p.Status = ""
	}
	return p
}

func (p Params) Offset() int {
	return Offset(p.Page)
}

func Offset(page int) int {
	return (ParsePageNumber(page) - 1) * PerPage
}

// Values renders the params back into a query string, used for page links.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("q", p.Search)
	}
	if p.Priority != "" {
		v.Set("priority", string(p.Priority))
	}
	if p.Status != "" {
		v.Set("status", string(p.Status))
	}
	if p.DateFilter != DateAny {
		v.Set("date_filter", string(p.DateFilter))
	}
	if p.Sort != "" && p.Sort != DefaultSort {
		v.Set("sort", string(p.Sort))
	}
	return v
}

// Range is an inclusive due date window.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Bounds returns the due date window for the today and this_week buckets.
func Bounds(filter DateFilter, now time.Time) (Range, bool) {
	start := task.StartOfDay(now)
	switch filter {
	case DateToday:
		return Range{From: start, To: start.AddDate(0, 0, 1).Add(-time.Microsecond)}, true
	case DateThisWeek:
		return Range{From: start, To: start.AddDate(0, 0, 7)}, true
	}
	return Range{}, false
}

// SearchPattern turns free text into a lower-cased LIKE pattern, escaping
// wildcards with a backslash.
func SearchPattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}

// OrderBy renders the sort key as an ORDER BY list valid for PostgreSQL and
// SQLite. Ties always fall back to id.
func (k SortKey) OrderBy() string {
	const rank = "CASE priority WHEN 'High' THEN 1 WHEN 'Medium' THEN 2 WHEN 'Low' THEN 3 ELSE 2 END"
	switch k {
	case SortDueDateAsc:
		return "due_date IS NULL, due_date ASC, id ASC"
	case SortDueDateDesc:
		return "due_date IS NULL, due_date DESC, id ASC"
	case SortPriorityHigh:
		return rank + " ASC, id ASC"
	case SortPriorityLow:
		return rank + " DESC, id ASC"
	case SortNameAsc:
		return "LOWER(name) ASC, id ASC"
	case SortNameDesc:
		return "LOWER(name) DESC, id ASC"
	case SortCreatedAsc:
		return "created_at ASC, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}
