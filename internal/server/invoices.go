package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/zainab-noor-25/invoice-api/internal/async"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/ingest"
)

const (
	maxUploadBytes   = 25 << 20
	defaultListLimit = 20
	maxListLimit     = 200
)

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, h.logger, common.InvalidInputf("multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, common.InvalidInputf("file is required"))
		return
	}
	defer file.Close()

	res, err := h.deps.Ingestor.IngestUpload(r.Context(), ingest.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := http.StatusAccepted
	if res.Deduplicated {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, h.logger, common.InvalidInputf("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}
	docs, err := h.deps.Documents.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": docs})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	doc, err := h.deps.Documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	doc.OCRText = ""
	writeJSON(w, http.StatusOK, doc)
}

// Reprocess queues the invoice again, or runs it inline with ?sync=true or when no queue is configured.
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if _, err := h.deps.Documents.Get(ctx, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	inline := r.URL.Query().Get("sync") == "true" || h.deps.Queue == nil
	if inline && h.deps.Pipeline != nil {
		if _, err := h.deps.Pipeline.Reprocess(ctx, id); err != nil && !errors.Is(err, common.ErrRecognition) && !errors.Is(err, common.ErrTransport) {
			writeError(w, r, h.logger, err)
			return
		}
		// stage failures are stored on the invoice
		doc, err := h.deps.Documents.Get(ctx, id)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		doc.OCRText = ""
		writeJSON(w, http.StatusOK, doc)
		return
	}

	if h.deps.Queue == nil {
		writeError(w, r, h.logger, async.ErrQueueClosed)
		return
	}
	if err := h.deps.Queue.Enqueue(ctx, async.Job{
		DocumentID:  id,
		Reprocess:   true,
		SubmittedAt: time.Now(),
		TraceID:     common.RequestIDFromContext(ctx),
	}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"invoice_id": id, "queued": true})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, h.logger, common.InvalidInputf("limit must be a positive integer"))
			return
		}
		limit = n
	}
	data, err := h.deps.Exporter.ExportInvoicesXLSX(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	name := fmt.Sprintf("invoices-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	if err := common.NewValidator().Field("invoice_id", raw, common.Required, common.UUID).Err(); err != nil {
		writeError(w, r, h.logger, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(raw), true
}
