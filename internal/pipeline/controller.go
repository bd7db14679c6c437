// Package pipeline runs one document through ocr, extract and chunk_embed.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/embedding"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
	"github.com/zainab-noor-25/invoice-api/internal/extract"
	"github.com/zainab-noor-25/invoice-api/internal/ocr"
	"github.com/zainab-noor-25/invoice-api/internal/repository"
)

type TextRecognizer interface {
	Recognize(ctx context.Context, path string) (ocr.Result, error)
}

type FieldExtractor interface {
	Extract(ctx context.Context, in extract.Input) (entity.ExtractedFields, extract.Report, error)
}

type Splitter interface {
	Split(docID uuid.UUID, text string) []entity.Chunk
}

type Deps struct {
	Documents  repository.DocumentRepository
	Chunks     repository.ChunkRepository
	Recognizer TextRecognizer
	Extractor  FieldExtractor
	Splitter   Splitter
	Embedder   embedding.Embedder
}

type Controller struct {
	deps             Deps
	embedConcurrency int
	logger           *slog.Logger
}

func NewController(deps Deps, embedConcurrency int, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if embedConcurrency <= 0 {
		embedConcurrency = 4
	}
	return &Controller{deps: deps, embedConcurrency: embedConcurrency, logger: logger}
}

// Process runs the pipeline for a stored document and persists the outcome.
// A failed run is still saved, with status error and the message.
func (c *Controller) Process(ctx context.Context, docID uuid.UUID) (State, error) {
	doc, err := c.deps.Documents.Get(ctx, docID)
	if err != nil {
		return State{DocumentID: docID}, err
	}
	ctx = common.WithDocumentID(ctx, docID.String())

	if err := c.deps.Documents.SetStatus(ctx, docID, constants.StatusProcessing); err != nil {
		return State{DocumentID: docID}, err
	}

	start := time.Now()
	st := c.run(ctx, State{DocumentID: docID, FilePath: doc.FilePath, Stage: constants.StageStart})

	// use a fresh context so a timed-out run still records its failure
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.deps.Documents.SaveResult(saveCtx, docID, st.Result()); err != nil {
		c.logger.Error("pipeline.save.failed", "document_id", docID, "error", err)
		if st.Err == nil {
			return st, err
		}
	}

	if st.Failed() {
		c.logger.Error("pipeline.failed",
			"document_id", docID,
			"stage", st.FailedAt,
			"error", st.Err,
			"request_id", common.RequestIDFromContext(ctx),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return st, st.Err
	}
	c.logger.Info("pipeline.done",
		"document_id", docID,
		"variant", st.OCR.Variant,
		"source", st.OCR.Source,
		"chunks", st.Chunks,
		"model_called", st.Report.ModelCalled,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return st, nil
}

// Reprocess drops the stored chunks of the document before running again.
func (c *Controller) Reprocess(ctx context.Context, docID uuid.UUID) (State, error) {
	if _, err := c.deps.Documents.Get(ctx, docID); err != nil {
		return State{DocumentID: docID}, err
	}
	n, err := c.deps.Chunks.DeleteChunks(ctx, docID)
	if err != nil {
		return State{DocumentID: docID}, err
	}
	c.logger.Info("pipeline.reprocess", "document_id", docID, "deleted_chunks", n)
	return c.Process(ctx, docID)
}

type stage struct {
	name constants.Stage
	run  func(context.Context, State) (State, error)
}

func (c *Controller) run(ctx context.Context, st State) State {
	stages := []stage{
		{constants.StageOCR, c.ocrStage},
		{constants.StageExtract, c.extractStage},
		{constants.StageChunkEmbed, c.chunkEmbedStage},
	}
	for _, s := range stages {
		if st.Failed() {
			return st
		}
		st.Stage = s.name
		next, err := s.run(ctx, st)
		if err != nil {
			c.logger.Warn("pipeline.stage.failed", "document_id", st.DocumentID, "stage", s.name, "error", err)
			return st.fail(s.name, err)
		}
		st = next
	}
	st.Stage = constants.StageDone
	return st
}

func (c *Controller) ocrStage(ctx context.Context, st State) (State, error) {
	res, err := c.deps.Recognizer.Recognize(ctx, st.FilePath)
	if err != nil {
		return st, err
	}
	st.OCR = res
	return st, nil
}

func (c *Controller) extractStage(ctx context.Context, st State) (State, error) {
	fields, rep, err := c.deps.Extractor.Extract(ctx, extract.Input{Text: st.OCR.Text, RawText: st.OCR.RawText})
	if err != nil {
		return st, err
	}
	st.Fields, st.Report = fields, rep
	return st, nil
}

func (c *Controller) chunkEmbedStage(ctx context.Context, st State) (State, error) {
	if strings.TrimSpace(st.OCR.Text) == "" {
		st.Chunks = 0
		return st, nil
	}
	chunks := c.deps.Splitter.Split(st.DocumentID, st.OCR.Text)
	if err := embedding.EmbedChunks(ctx, c.deps.Embedder, chunks, c.embedConcurrency); err != nil {
		return st, err
	}
	if err := c.deps.Chunks.InsertChunks(ctx, chunks); err != nil {
		return st, fmt.Errorf("store chunks: %w", err)
	}
	st.Chunks = len(chunks)
	return st, nil
}
