package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"todoTracker/internal/handlers/dto"
	"todoTracker/internal/models/task"
	"todoTracker/internal/service"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

var dueDateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// wantsJSON reports whether the client talks JSON: a JSON body, or an Accept
// header whose first choice is JSON.
func wantsJSON(r *http.Request) bool {
	if checkContentType(r, "application/json") {
		return true
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}
	first := strings.TrimSpace(strings.Split(accept, ",")[0])
	mediaType, _, err := mime.ParseMediaType(first)
	return err == nil && mediaType == "application/json"
}

func urlID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	defer r.Body.Close()
	if err := decoder.Decode(dst); err != nil {
		return service.NewValidationError("body", err.Error())
	}
	return nil
}

// parseDueDate accepts datetime-local, date-only and RFC 3339 values. Local
// layouts are read in the server's zone.
func parseDueDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// readTaskRequest fills a TaskRequest from JSON or form fields. alias is the
// form field accepted in place of name.
func readTaskRequest(r *http.Request, alias string) (dto.TaskRequest, error) {
	var req dto.TaskRequest
	if checkContentType(r, "application/json") {
		return req, decodeJSON(r, &req)
	}

	if err := r.ParseForm(); err != nil {
		return req, service.NewValidationError("form", err.Error())
	}
	field := func(names ...string) *string {
		for _, name := range names {
			if values, ok := r.PostForm[name]; ok && len(values) > 0 {
				v := values[0]
				return &v
			}
		}
		return nil
	}

	req.Name = field("name", alias)
	req.Description = field("description")
	req.Priority = field("priority")
	req.Status = field("status")
	req.DueDate = field("due_date")
	return req, nil
}

// taskOptions turns request fields into task options. Unknown priority and
// status values are rejected for JSON clients and ignored for forms. An
// unparsable due date is always ignored; an empty one clears the date when
// clearDue is set.
func taskOptions(req dto.TaskRequest, strict, clearDue bool) ([]task.TaskOption, error) {
	var options []task.TaskOption

	if req.Description != nil {
		options = append(options, task.WithDescription(strings.TrimSpace(*req.Description)))
	}

	if req.Priority != nil && strings.TrimSpace(*req.Priority) != "" {
		priority, err := task.ParsePriority(*req.Priority)
		if err != nil && strict {
			return nil, service.NewValidationError("priority", err.Error())
		}
		options = append(options, task.WithPriority(priority))
	}

	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		status, err := task.ParseStatus(*req.Status)
		if err != nil && strict {
			return nil, service.NewValidationError("status", err.Error())
		}
		options = append(options, task.WithStatus(status))
	}

	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			if clearDue {
				options = append(options, task.WithoutDueDate())
			}
		} else if due, ok := parseDueDate(*req.DueDate); ok {
			options = append(options, task.WithDueDate(due))
		}
	}

	return options, nil
}

func readSubtaskTitle(r *http.Request) (string, error) {
	if checkContentType(r, "application/json") {
		var req dto.SubtaskRequest
		err := decodeJSON(r, &req)
		return req.Title, err
	}
	return r.PostFormValue("title"), nil
}

func readOrder(r *http.Request) (int, error) {
	if checkContentType(r, "application/json") {
		var req dto.ReorderRequest
		if err := decodeJSON(r, &req); err != nil {
			return 0, err
		}
		if req.Order == nil {
			return 0, service.NewValidationError("order", "required")
		}
		return *req.Order, nil
	}

	order, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("order")))
	if err != nil {
		return 0, service.NewValidationError("order", "must be an integer")
	}
	return order, nil
}

func readTagRequest(r *http.Request) (dto.TagRequest, error) {
	var req dto.TagRequest
	if checkContentType(r, "application/json") {
		return req, decodeJSON(r, &req)
	}
	req.Name = r.PostFormValue("name")
	req.Color = r.PostFormValue("color")
	return req, nil
}

// parseTagIDs reads tags=1&tags=2 and tags=1,2, skipping anything that is not
// a positive integer.
func parseTagIDs(values url.Values) []int64 {
	ids := []int64{}
	for _, raw := range values["tags"] {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err == nil && id > 0 {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// backTo picks the page a browser came from when it is on this site.
func backTo(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func taskURL(id int64) string {
	return fmt.Sprintf("/task/%d", id)
}
