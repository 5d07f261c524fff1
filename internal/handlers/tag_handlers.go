package handlers

import (
	"context"
	"net/http"
	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	"todoTracker/internal/query"

	"go.uber.org/zap"
)

func (h *TaskHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tags, err := h.TaskService.ListTags(r.Context())
	if err != nil {
		h.fail(w, r, err, "list_tags", "/")
		return
	}

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK, toPayload("tags", tags))
		return
	}
	h.views.render(w, pageTags, tagsView{Tags: tags})
}

// CreateTag answers 201 for a new tag and 200 when the name already existed.
func (h *TaskHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	req, err := readTagRequest(r)
	if err != nil {
		h.fail(w, r, err, "create_tag", "/tags")
		return
	}

	tag, created, err := h.TaskService.CreateTag(r.Context(), req.Name, req.Color)
	if err != nil {
		h.fail(w, r, err, "create_tag", "/tags")
		return
	}

	logger.Info("HTTP_OUT: tag resolved",
		zap.Int64("tag_id", tag.ID),
		zap.Bool("created", created))

	if wantsJSON(r) {
		code := http.StatusOK
		if created {
			code = http.StatusCreated
		}
		responseWithJSON(w, code, toPayload("tag", tag), toPayload("created", created))
		return
	}
	redirect(w, r, backTo(r, "/tags"))
}

func (h *TaskHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := h.TaskService.DeleteTag(r.Context(), id); err != nil {
		h.fail(w, r, err, "delete_tag", "/tags")
		return
	}

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK, toPayload("deleted", true), toPayload("id", id))
		return
	}
	redirect(w, r, "/tags")
}

func (h *TaskHandler) AttachTag(w http.ResponseWriter, r *http.Request) {
	h.linkTag(w, r, "attach_tag", h.TaskService.AttachTag)
}

func (h *TaskHandler) DetachTag(w http.ResponseWriter, r *http.Request) {
	h.linkTag(w, r, "detach_tag", h.TaskService.DetachTag)
}

func (h *TaskHandler) linkTag(w http.ResponseWriter, r *http.Request, op string, link func(ctx context.Context, taskID, tagID int64) (*task.Task, error)) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	taskID, ok := urlID(r, "tid")
	if !ok {
		http.NotFound(w, r)
		return
	}
	tagID, ok := urlID(r, "gid")
	if !ok {
		http.NotFound(w, r)
		return
	}

	t, err := link(r.Context(), taskID, tagID)
	if err != nil {
		h.fail(w, r, err, op, taskURL(taskID))
		return
	}

	logger.Info("HTTP_OUT: task tags changed",
		zap.String("operation", op),
		zap.Int64("task_id", taskID),
		zap.Int64("tag_id", tagID))

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(t, h.TaskService.Now())))
		return
	}
	redirect(w, r, taskURL(taskID))
}

func (h *TaskHandler) FilterByTags(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	values := r.URL.Query()
	tagIDs := parseTagIDs(values)
	page := query.ParsePage(values.Get("page"))

	result, err := h.TaskService.FilterByTags(r.Context(), tagIDs, page)
	if err != nil {
		h.fail(w, r, err, "filter_by_tags", "/")
		return
	}
	now := h.TaskService.Now()

	if wantsJSON(r) {
		body := dto.FromPage(result, now)
		responseWithJSON(w, http.StatusOK,
			toPayload("tasks", body.Tasks),
			toPayload("page", body.Page),
			toPayload("per_page", body.PerPage),
			toPayload("total", body.Total),
			toPayload("pages", body.Pages),
			toPayload("tag_ids", tagIDs))
		return
	}

	tags, err := h.TaskService.ListTags(r.Context())
	if err != nil {
		h.fail(w, r, err, "filter_by_tags", "/")
		return
	}

	view := newIndexView(result, now, tagFilterLink(tagIDs))
	view.Params = query.Params{Sort: query.DefaultSort}
	view.Tags = tags
	view.TagFilter = tagIDs
	h.views.render(w, pageIndex, view)
}
