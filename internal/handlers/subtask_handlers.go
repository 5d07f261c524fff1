package handlers

import (
	"net/http"
	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"

	"go.uber.org/zap"
)

func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	taskID, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	title, err := readSubtaskTitle(r)
	if err != nil {
		h.fail(w, r, err, "add_subtask", taskURL(taskID))
		return
	}

	sub, err := h.TaskService.AddSubtask(r.Context(), taskID, title)
	if err != nil {
		h.fail(w, r, err, "add_subtask", taskURL(taskID))
		return
	}

	logger.Info("HTTP_OUT: subtask added",
		zap.Int64("task_id", taskID),
		zap.Int64("subtask_id", sub.ID))

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusCreated, toPayload("subtask", sub))
		return
	}
	redirect(w, r, taskURL(taskID))
}

func (h *TaskHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	h.changeSubtask(w, r, "toggle_subtask", func(id int64) (*task.Subtask, error) {
		return h.TaskService.ToggleSubtask(r.Context(), id)
	})
}

func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	h.changeSubtask(w, r, "update_subtask", func(id int64) (*task.Subtask, error) {
		title, err := readSubtaskTitle(r)
		if err != nil {
			return nil, err
		}
		return h.TaskService.UpdateSubtaskTitle(r.Context(), id, title)
	})
}

func (h *TaskHandler) ReorderSubtask(w http.ResponseWriter, r *http.Request) {
	h.changeSubtask(w, r, "reorder_subtask", func(id int64) (*task.Subtask, error) {
		order, err := readOrder(r)
		if err != nil {
			return nil, err
		}
		return h.TaskService.ReorderSubtask(r.Context(), id, order)
	})
}

func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	sub, err := h.TaskService.DeleteSubtask(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "delete_subtask", "/")
		return
	}

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK,
			toPayload("deleted", true),
			toPayload("id", id),
			toPayload("task_id", sub.TaskID))
		return
	}
	redirect(w, r, taskURL(sub.TaskID))
}

// ListSubtasks always answers JSON; it backs client-side checklists.
func (h *TaskHandler) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	taskID, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	list, err := h.TaskService.ListSubtasks(r.Context(), taskID)
	if err != nil {
		if !handleBusinessError(w, err) {
			logger.Error("HTTP: service error", err, zap.String("operation", "list_subtasks"))
			responseWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// changeSubtask runs a single-subtask mutation and answers with the subtask
// or a redirect to its task.
func (h *TaskHandler) changeSubtask(w http.ResponseWriter, r *http.Request, op string, change func(int64) (*task.Subtask, error)) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}

	sub, err := change(id)
	if err != nil {
		h.fail(w, r, err, op, "/")
		return
	}

	logger.Info("HTTP_OUT: subtask changed",
		zap.String("operation", op),
		zap.Int64("subtask_id", id))

	if wantsJSON(r) {
		responseWithJSON(w, http.StatusOK, toPayload("subtask", sub))
		return
	}
	redirect(w, r, taskURL(sub.TaskID))
}
