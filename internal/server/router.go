// Package server exposes the invoice API over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"github.com/zainab-noor-25/invoice-api/internal/async"
	"github.com/zainab-noor-25/invoice-api/internal/chat"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
	"github.com/zainab-noor-25/invoice-api/internal/ingest"
	"github.com/zainab-noor-25/invoice-api/internal/pipeline"
)

type DocumentReader interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	List(ctx context.Context, limit int) ([]entity.Document, error)
}

type Asker interface {
	Ask(ctx context.Context, docID uuid.UUID, question string) (chat.Answer, error)
}

type Exporter interface {
	ExportInvoicesXLSX(ctx context.Context, limit int) ([]byte, error)
}

type Reprocessor interface {
	Reprocess(ctx context.Context, docID uuid.UUID) (pipeline.State, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Documents DocumentReader
	Ingestor  ingest.Ingestor
	Queue     async.Queue
	Pipeline  Reprocessor // used for synchronous reprocessing (?sync=true)
	Chat      Asker
	Exporter  Exporter
}

type Handler struct {
	deps   Deps
	logger *slog.Logger
}

func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{deps: deps, logger: logger}
}

func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	inv := r.PathPrefix("/invoices").Subrouter()
	inv.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	inv.HandleFunc("/export.xlsx", h.Export).Methods(http.MethodGet)
	inv.HandleFunc("", h.List).Methods(http.MethodGet)
	inv.HandleFunc("/", h.List).Methods(http.MethodGet)
	inv.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
	inv.HandleFunc("/{id}/reprocess", h.Reprocess).Methods(http.MethodPost)

	r.HandleFunc("/chat", h.Chat).Methods(http.MethodPost)
	return r
}

// NewHTTPHandler wraps the routes in the middleware stack.
func NewHTTPHandler(deps Deps, logger *slog.Logger) http.Handler {
	h := NewHandler(deps, logger)
	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(RequestID())
	n.Use(AccessLog(h.logger))
	n.UseHandler(h.Routes())
	return n
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
