package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zainab-noor-25/invoice-api/internal/async"
	"github.com/zainab-noor-25/invoice-api/internal/common"
)

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPStatus maps the error taxonomy onto response codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrTransport), errors.Is(err, common.ErrRecognition):
		return http.StatusBadGateway
	case errors.Is(err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := HTTPStatus(err)
	body := errorBody{Error: err.Error(), RequestID: common.RequestIDFromContext(r.Context())}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		if status < http.StatusInternalServerError {
			body.Error = appErr.Message
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error("http.request.failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err, "request_id", body.RequestID)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	} else {
		logger.Warn("http.request.rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err, "request_id", body.RequestID)
	}
	writeJSON(w, status, body)
}
