package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	pageIndex = "index.html"
	pageTask  = "task.html"
	pageTags  = "tags.html"
)

var (
	allPriorities  = []task.Priority{task.PriorityHigh, task.PriorityMedium, task.PriorityLow}
	allStatuses    = []task.Status{task.StatusTodo, task.StatusDoing, task.StatusDone}
	allDateFilters = []query.DateFilter{query.DateOverdue, query.DateToday, query.DateThisWeek, query.DateNoDueDate}
	allSorts       = []query.SortKey{
		query.SortCreatedDesc, query.SortCreatedAsc,
		query.SortDueDateAsc, query.SortDueDateDesc,
		query.SortPriorityHigh, query.SortPriorityLow,
		query.SortNameAsc, query.SortNameDesc,
	}
)

var templateFuncs = template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.In(time.Local).Format("2006-01-02 15:04")
	},
	"inputDate": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.In(time.Local).Format("2006-01-02T15:04")
	},
	"inIDs": func(id int64, ids []int64) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	},
}

type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template)}
	for _, page := range []string{pageIndex, pageTask, pageTags} {
		tmpl, err := template.New(page).Funcs(templateFuncs).
			ParseFS(templateFiles, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", page, err)
		}
		v.pages[page] = tmpl
	}
	return v, nil
}

// render executes the page into a buffer first, so a template error never
// leaves a half-written response.
func (v *views) render(w http.ResponseWriter, page string, data any) {
	var buf bytes.Buffer
	if err := v.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Error("HTTP: failed to render page", err, zap.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type indexView struct {
	Tasks        []dto.TaskResponse
	Page         int
	Pages        int
	Total        int
	OverdueCount int
	PrevURL      string
	NextURL      string
	Params       query.Params
	Tags         []task.Tag
	TagFilter    []int64
	Editing      *dto.TaskResponse

	Priorities  []task.Priority
	Statuses    []task.Status
	DateFilters []query.DateFilter
	Sorts       []query.SortKey
}

type taskView struct {
	Task     dto.TaskResponse
	AllTags  []task.Tag
	Statuses []task.Status
}

type tagsView struct {
	Tags []task.Tag
}

func newIndexView(page *query.Page, now time.Time, link func(int) string) indexView {
	view := indexView{
		Tasks:       dto.FromTaskList(page.Tasks, now),
		Page:        page.Page,
		Pages:       page.Pages,
		Total:       page.Total,
		Priorities:  allPriorities,
		Statuses:    allStatuses,
		DateFilters: allDateFilters,
		Sorts:       allSorts,
	}
	if page.HasPrev() {
		view.PrevURL = link(page.Page - 1)
	}
	if page.HasNext() {
		view.NextURL = link(page.Page + 1)
	}
	return view
}

func listLink(params query.Params) func(int) string {
	return func(page int) string {
		values := params.Values()
		values.Set("page", strconv.Itoa(page))
		return "/?" + values.Encode()
	}
}

func tagFilterLink(tagIDs []int64) func(int) string {
	ids := make([]string, len(tagIDs))
	for i, id := range tagIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return func(page int) string {
		values := url.Values{}
		values.Set("tags", strings.Join(ids, ","))
		values.Set("page", strconv.Itoa(page))
		return "/filter/tags?" + values.Encode()
	}
}
