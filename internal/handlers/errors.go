package handlers

import (
	"errors"
	"net/http"
	"todoTracker/internal/logger"
	"todoTracker/internal/service"

	"go.uber.org/zap"
)

func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	logger.Warn("HTTP: business error",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// fail answers a failed operation. JSON clients get the error body. Browsers
// are sent back to back on validation errors, since form input is not
// rejected, and get a plain status page otherwise.
func (h *TaskHandler) fail(w http.ResponseWriter, r *http.Request, err error, op, back string) {
	if wantsJSON(r) {
		if handleBusinessError(w, err) {
			return
		}
		logger.Error("HTTP: service error", err, zap.String("operation", op))
		responseWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		if businessErr.Code == service.CodeValidation {
			logger.Info("HTTP: form input ignored",
				zap.String("operation", op),
				zap.String("reason", businessErr.Message))
			redirect(w, r, backTo(r, back))
			return
		}
		status := mapBusinessErrorToHTTP(businessErr.Code)
		http.Error(w, businessErr.Message, status)
		return
	}

	logger.Error("HTTP: service error", err, zap.String("operation", op))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// badRequest rejects input in both modes.
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	logger.Warn("HTTP: bad request",
		zap.String("reason", message),
		zap.String("client_ip", r.RemoteAddr))

	if wantsJSON(r) {
		responseWithError(w, http.StatusBadRequest, message)
		return
	}
	http.Error(w, message, http.StatusBadRequest)
}
