package handlers

import (
	"net/http"
	"strings"
	"time"
	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"
	"todoTracker/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
	views       *views
}

func NewTaskHandler(taskService TaskService) (*TaskHandler, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &TaskHandler{
		TaskService: taskService,
		views:       v,
	}, nil
}

// Register mounts every route on r. Numeric path parameters are matched by
// pattern, so anything else falls through to 404.
func (h *TaskHandler) Register(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Get("/", h.Index)
	r.Get("/task/{id:[0-9]+}", h.GetTask)
	r.Post("/add", h.AddTask)
	r.Post("/update/{id:[0-9]+}", h.UpdateTask)
	r.Get("/complete/{id:[0-9]+}", h.CompleteTask)
	r.Get("/status/{id:[0-9]+}/{status}", h.SetStatus)
	r.Get("/delete/{id:[0-9]+}", h.DeleteTask)
	r.Get("/edit/{id:[0-9]+}", h.EditTask)

	r.Post("/task/{id:[0-9]+}/subtask/add", h.AddSubtask)
	r.Post("/subtask/{id:[0-9]+}/toggle", h.ToggleSubtask)
	r.Post("/subtask/{id:[0-9]+}/delete", h.DeleteSubtask)
	r.Post("/subtask/{id:[0-9]+}/update", h.UpdateSubtask)
	r.Post("/subtask/{id:[0-9]+}/reorder", h.ReorderSubtask)
	r.Get("/task/{id:[0-9]+}/subtasks", h.ListSubtasks)

	r.Get("/tags", h.ListTags)
	r.Post("/tag/create", h.CreateTag)
	r.Post("/tag/{id:[0-9]+}/delete", h.DeleteTag)
	r.Post("/task/{tid:[0-9]+}/tag/{gid:[0-9]+}/add", h.AttachTag)
	r.Post("/task/{tid:[0-9]+}/tag/{gid:[0-9]+}/remove", h.DetachTag)
	r.Get("/filter/tags", h.FilterByTags)
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: health check")

	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: health check failed", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", "todo-tracker"))
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", "todo-tracker"))
}

func (h *TaskHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "list_tasks", nil)
}

// EditTask is the list view with one task loaded into the edit form.
func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	t, err := h.TaskService.GetTask(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "edit_task", "/")
		return
	}

	editing := dto.FromTask(t, h.TaskService.Now())
	h.renderList(w, r, "edit_task", &editing)
}

func (h *TaskHandler) renderList(w http.ResponseWriter, r *http.Request, op string, editing *dto.TaskResponse) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	params := query.ParseParams(r.URL.Query())
	list, err := h.TaskService.ListTasks(r.Context(), params)
	if err != nil {
		h.fail(w, r, err, op, "/")
		return
	}
	now := h.TaskService.Now()

	logger.Info("HTTP_OUT: tasks listed",
		zap.Int("total", list.Total),
		zap.Int("page", list.Page.Page),
		zap.Duration("ms", time.Since(start)))

	if wantsJSON(r) {
		body := dto.FromPage(list.Page, now)
		payload := []Payload{
			toPayload("tasks", body.Tasks),
			toPayload("page", body.Page),
			toPayload("per_page", body.PerPage),
			toPayload("total", body.Total),
			toPayload("pages", body.Pages),
			toPayload("overdue_count", list.OverdueCount),
			toPayload("filters", list.Params),
		}
		if editing != nil {
			payload = append(payload, toPayload("editing_task", editing))
		}
		responseWithJSON(w, http.StatusOK, payload...)
		return
	}

	tags, err := h.TaskService.ListTags(r.Context())
	if err != nil {
		h.fail(w, r, err, op, "/")
		return
	}

	view := newIndexView(list.Page, now, listLink(list.Params))
	view.OverdueCount = list.OverdueCount
	view.Params = list.Params
	view.Tags = tags
	view.Editing = editing
	h.views.render(w, pageIndex, view)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	t, err := h.TaskService.GetTask(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get_task", "/")
		return
	}
	resp := dto.FromTask(t, h.TaskService.Now())

	logger.Info("HTTP_OUT: task fetched",
		zap.Int64("task_id", id),
		zap.Duration("ms", time.Since(start)))

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK, toPayload("task", resp))
		return
	}

	tags, err := h.TaskService.ListTags(r.Context())
	if err != nil {
		h.fail(w, r, err, "get_task", "/")
		return
	}
	var available []task.Tag
	for _, tag := range tags {
		if !t.HasTag(tag.ID) {
			available = append(available, tag)
		}
	}

	h.views.render(w, pageTask, taskView{
		Task:     resp,
		AllTags:  available,
		Statuses: allStatuses,
	})
}

func (h *TaskHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	strict := wantsJSON(r)
	req, err := readTaskRequest(r, "task")
	if err != nil {
		h.fail(w, r, err, "create_task", "/")
		return
	}

	options, err := taskOptions(req, strict, false)
	if err != nil {
		h.fail(w, r, err, "create_task", "/")
		return
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	t, err := h.TaskService.CreateTask(r.Context(), name, options...)
	if err != nil {
		h.fail(w, r, err, "create_task", "/")
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.Int64("task_id", t.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	if strict {
		responseWithJSON(w, http.StatusCreated, toPayload("task", dto.FromTask(t, h.TaskService.Now())))
		return
	}
	redirect(w, r, "/")
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	strict := wantsJSON(r)
	req, err := readTaskRequest(r, "task_name")
	if err != nil {
		h.fail(w, r, err, "update_task", "/")
		return
	}

	options, err := taskOptions(req, strict, true)
	if err != nil {
		h.fail(w, r, err, "update_task", "/")
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := service.ValidateTaskName(name); err != nil {
			h.fail(w, r, err, "update_task", "/")
			return
		}
		options = append(options, task.WithName(name))
	}

	t, err := h.TaskService.UpdateTask(r.Context(), id, options...)
	if err != nil {
		h.fail(w, r, err, "update_task", "/")
		return
	}

	logger.Info("HTTP_OUT: task updated",
		zap.Int64("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	if strict {
		responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(t, h.TaskService.Now())))
		return
	}
	redirect(w, r, "/")
}

func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	t, err := h.TaskService.ToggleComplete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "complete_task", "/")
		return
	}

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(t, h.TaskService.Now())))
		return
	}
	redirect(w, r, backTo(r, "/"))
}

func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	status, err := task.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	t, err := h.TaskService.SetStatus(r.Context(), id, status)
	if err != nil {
		h.fail(w, r, err, "set_status", "/")
		return
	}

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(t, h.TaskService.Now())))
		return
	}
	redirect(w, r, backTo(r, "/"))
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := h.TaskService.DeleteTask(r.Context(), id); err != nil {
		h.fail(w, r, err, "delete_task", "/")
		return
	}

	logger.Info("HTTP_OUT: task deleted",
		zap.Int64("task_id", id),
		zap.Duration("ms", time.Since(start)))

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK, toPayload("deleted", true), toPayload("id", id))
		return
	}
	redirect(w, r, "/")
}
