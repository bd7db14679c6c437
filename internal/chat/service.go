// Package chat answers questions about a single processed invoice.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/embedding"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
	"github.com/zainab-noor-25/invoice-api/internal/llm"
	"github.com/zainab-noor-25/invoice-api/internal/retrieval"
)

const (
	SourceFields = "fields"
	SourceChunks = "chunks"
)

// FieldAliases maps normalized questions straight to a stored field.
var FieldAliases = map[string]string{
	"supplier name": entity.FieldSupplierName,
	"supplier_name": entity.FieldSupplierName,
	"vendor name":   entity.FieldSupplierName,

	"customer name": entity.FieldCustomerName,
	"customer_name": entity.FieldCustomerName,
	"client name":   entity.FieldCustomerName,

	"invoice date": entity.FieldDateIssued,
	"issue date":   entity.FieldDateIssued,
	"date issued":  entity.FieldDateIssued,
	"date_issued":  entity.FieldDateIssued,

	"due date":    entity.FieldDueDate,
	"payment due": entity.FieldDueDate,
	"due_date":    entity.FieldDueDate,

	"total amount": entity.FieldTotalAmount,
	"total_amount": entity.FieldTotalAmount,
	"total":        entity.FieldTotalAmount,
	"grand total":  entity.FieldTotalAmount,
	"total due":    entity.FieldTotalAmount,
}

type Answer struct {
	Answer     any    `json:"answer"`
	UsedChunks []int  `json:"used_chunks"`
	Source     string `json:"source"`
}

type DocumentGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
}

type Service struct {
	docs      DocumentGetter
	embedder  embedding.Embedder
	retriever retrieval.Retriever
	completer llm.Completer
	topK      int
	logger    *slog.Logger
}

func NewService(docs DocumentGetter, embedder embedding.Embedder, retriever retrieval.Retriever, completer llm.Completer, topK int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Service{docs: docs, embedder: embedder, retriever: retriever, completer: completer, topK: topK, logger: logger}
}

// NormalizeQuestion lowercases and trims q, drops question marks and collapses runs of spaces.
func NormalizeQuestion(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.ReplaceAll(q, "?", "")
	return strings.Join(strings.Fields(q), " ")
}

// Ask answers from stored fields when the question names one, otherwise from the top-K chunks.
func (s *Service) Ask(ctx context.Context, docID uuid.UUID, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, common.InvalidInputf("question is empty")
	}
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return Answer{}, err
	}

	if field, ok := FieldAliases[NormalizeQuestion(question)]; ok {
		val := doc.Fields.Value(field)
		if val == nil {
			val = llm.NotFoundAnswer
		}
		s.logger.Info("chat.answered", "document_id", docID, "source", SourceFields, "field", field)
		return Answer{Answer: val, UsedChunks: []int{}, Source: SourceFields}, nil
	}

	start := time.Now()
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, common.TransportError("embed question", err)
	}
	hits, err := s.retriever.Retrieve(ctx, docID, vec, s.topK)
	if err != nil {
		return Answer{}, err
	}
	if len(hits) == 0 {
		s.logger.Info("chat.no_context", "document_id", docID)
		return Answer{Answer: llm.NotFoundAnswer, UsedChunks: []int{}, Source: SourceChunks}, nil
	}

	contexts := make([]string, len(hits))
	used := make([]int, len(hits))
	for i, h := range hits {
		contexts[i] = h.Chunk.Text
		used[i] = h.Chunk.Seq
	}
	out, err := s.completer.Complete(ctx, llm.Request{
		System:      llm.AnswerSystemPrompt,
		User:        llm.BuildAnswerPrompt(contexts, question),
		Temperature: 0,
		MaxTokens:   llm.AnswerMaxTokens,
	})
	if err != nil {
		return Answer{}, common.TransportError("llm", err)
	}
	answer := strings.TrimSpace(out)
	if answer == "" {
		answer = llm.NotFoundAnswer
	}
	s.logger.Info("chat.answered",
		"document_id", docID,
		"source", SourceChunks,
		"chunks", used,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Answer{Answer: answer, UsedChunks: used, Source: SourceChunks}, nil
}
