package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/internal/common"
)

const maxQuestionLength = 500

type chatRequest struct {
	InvoiceID string `json:"invoice_id"`
	Question  string `json:"question"`
}

// Chat takes a JSON body; invoice_id and question query parameters are accepted too.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			writeError(w, r, h.logger, common.InvalidInputf("invalid request body"))
			return
		}
	}
	q := r.URL.Query()
	if req.InvoiceID == "" {
		req.InvoiceID = q.Get("invoice_id")
	}
	if req.Question == "" {
		req.Question = q.Get("question")
	}

	err := common.NewValidator().
		Field("invoice_id", req.InvoiceID, common.Required, common.UUID).
		Field("question", req.Question, common.Required, common.MaxLength(maxQuestionLength)).
		Err()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ans, err := h.deps.Chat.Ask(r.Context(), uuid.MustParse(req.InvoiceID), req.Question)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}
