package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/negroni"

	"github.com/zainab-noor-25/invoice-api/internal/common"
)

const HeaderRequestID = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or assigns a new one, and echoes it back.
func RequestID() negroni.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next(w, r.WithContext(common.WithRequestID(r.Context(), id)))
	}
}

// AccessLog writes one slog line per request.
func AccessLog(logger *slog.Logger) negroni.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		start := time.Now()
		next(w, r)
		status := 0
		if rw, ok := w.(negroni.ResponseWriter); ok {
			status = rw.Status()
		}
		logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", common.RequestIDFromContext(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
