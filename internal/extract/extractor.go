// Package extract turns recognized invoice text into grounded fields.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
	"github.com/zainab-noor-25/invoice-api/internal/grounding"
	"github.com/zainab-noor-25/invoice-api/internal/llm"
	"github.com/zainab-noor-25/invoice-api/internal/quality"
)

const (
	WarnEmptyText   = "empty OCR text"
	WarnModelOutput = "model output unusable"
)

type Extractor struct {
	llm      llm.Completer
	gate     *quality.Gate
	verifier *grounding.Verifier
	logger   *slog.Logger
}

func NewExtractor(completer llm.Completer, gate *quality.Gate, verifier *grounding.Verifier, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = quality.NewGate(quality.Config{})
	}
	if verifier == nil {
		verifier = grounding.NewVerifier(logger)
	}
	return &Extractor{llm: completer, gate: gate, verifier: verifier, logger: logger}
}

// Extract always returns a best-effort field set. The only error is a failed
// model call (common.ErrTransport); unusable model output falls back to the matchers.
func (e *Extractor) Extract(ctx context.Context, in Input) (entity.ExtractedFields, Report, error) {
	var rep Report
	docID := common.DocumentIDFromContext(ctx)

	src := in.RawText
	if strings.TrimSpace(src) == "" {
		src = in.Text
	}
	if strings.TrimSpace(src) == "" {
		var f entity.ExtractedFields
		f.AddWarning(WarnEmptyText)
		rep.Verdict = e.gate.Check(src)
		e.logger.Warn("extract.empty_text", "document_id", docID)
		return f, rep, nil
	}

	rep.Verdict = e.gate.Check(src)
	fallback := FallbackFields(src)

	if !rep.Verdict.Usable {
		e.logger.Warn("extract.noisy_text", "document_id", docID, "reason", rep.Verdict.Reason)
		fields := fallback
		fields.AddWarning(fmt.Sprintf("noisy OCR (%s): model skipped", rep.Verdict.Reason))
		return e.ground(fields, src, &rep), rep, nil
	}

	start := time.Now()
	rep.ModelCalled = true
	raw, err := e.llm.Complete(ctx, llm.Request{
		System:        llm.ExtractionSystemPrompt,
		User:          llm.BuildExtractionPrompt(Prune(src)),
		Temperature:   0,
		MaxTokens:     llm.ExtractMaxTokens,
		ContextWindow: llm.ExtractContextWindow,
		JSON:          true,
	})
	if err != nil {
		e.logger.Error("extract.model.failed", "document_id", docID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedFields{}, rep, common.TransportError("llm", err)
	}

	parsed, err := llm.ParseInvoiceFields(raw)
	if err != nil {
		rep.ModelFailed = true
		e.logger.Warn("extract.model_output.unusable",
			"document_id", docID,
			"error", err,
			"completion_chars", len(raw),
		)
		fields := fallback
		fields.AddWarning(WarnModelOutput)
		return e.ground(fields, src, &rep), rep, nil
	}

	merged := e.merge(parsed, fallback, &rep)
	e.logger.Info("extract.model.ok",
		"document_id", docID,
		"filled", rep.Filled,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return e.ground(merged, src, &rep), rep, nil
}

// merge fills fields the model left null. A model value is never replaced.
func (e *Extractor) merge(model, fallback entity.ExtractedFields, rep *Report) entity.ExtractedFields {
	out := model
	fill := func(name string, dst **string, src *string) {
		if *dst == nil && src != nil {
			*dst = src
			rep.Filled = append(rep.Filled, name)
		}
	}
	fill(entity.FieldDateIssued, &out.DateIssued, fallback.DateIssued)
	fill(entity.FieldDueDate, &out.DueDate, fallback.DueDate)
	fill(entity.FieldCustomerName, &out.CustomerName, fallback.CustomerName)
	if out.TotalAmount == nil && fallback.TotalAmount != nil {
		out.TotalAmount = fallback.TotalAmount
		rep.Filled = append(rep.Filled, entity.FieldTotalAmount)
	}
	return out
}

func (e *Extractor) ground(fields entity.ExtractedFields, src string, rep *Report) entity.ExtractedFields {
	out, rej := e.verifier.Verify(fields, src)
	rep.Rejections = rej
	return out
}
