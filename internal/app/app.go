// Package app assembles the invoice services from configuration.
package app

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zainab-noor-25/invoice-api/internal/async"
	"github.com/zainab-noor-25/invoice-api/internal/chat"
	"github.com/zainab-noor-25/invoice-api/internal/chunker"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/embedding"
	"github.com/zainab-noor-25/invoice-api/internal/export"
	"github.com/zainab-noor-25/invoice-api/internal/extract"
	"github.com/zainab-noor-25/invoice-api/internal/grounding"
	"github.com/zainab-noor-25/invoice-api/internal/imaging"
	"github.com/zainab-noor-25/invoice-api/internal/ingest"
	"github.com/zainab-noor-25/invoice-api/internal/llm"
	"github.com/zainab-noor-25/invoice-api/internal/llm/ollama"
	"github.com/zainab-noor-25/invoice-api/internal/llm/openai"
	"github.com/zainab-noor-25/invoice-api/internal/ocr"
	"github.com/zainab-noor-25/invoice-api/internal/pipeline"
	"github.com/zainab-noor-25/invoice-api/internal/quality"
	"github.com/zainab-noor-25/invoice-api/internal/repository"
	"github.com/zainab-noor-25/invoice-api/internal/retrieval"
	"github.com/zainab-noor-25/invoice-api/internal/server"
)

// App holds every long-lived component of one process.
type App struct {
	Config    *common.Config
	Driver    *entsql.Driver
	Pool      *pgxpool.Pool // nil for sqlite
	Documents repository.DocumentRepository
	Chunks    repository.ChunkRepository
	Pipeline  *pipeline.Controller
	Queue     *async.ProcessorQueue // nil unless started with WithQueue
	Ingest    *ingest.Service
	Chat      *chat.Service
	Export    *export.Service

	logger *slog.Logger
}

type options struct {
	queue     bool
	completer llm.Completer
	embedder  embedding.Embedder
	recognize ocr.Recognizer
}

type Option func(*options)

// WithQueue starts the background workers; uploads are processed asynchronously.
func WithQueue() Option { return func(o *options) { o.queue = true } }

// WithCompleter, WithEmbedder and WithRecognizer replace the configured engines.
func WithCompleter(c llm.Completer) Option { return func(o *options) { o.completer = c } }
func WithEmbedder(e embedding.Embedder) Option { return func(o *options) { o.embedder = e } }
func WithRecognizer(r ocr.Recognizer) Option { return func(o *options) { o.recognize = r } }

// New connects to the store and wires the pipeline. Call Close when done.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	drv, pool, err := server.ConnectDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Driver: drv, Pool: pool, logger: logger}
	fail := func(err error) (*App, error) {
		a.Close(context.Background())
		return nil, err
	}

	a.Documents = repository.NewDocumentRepository(drv, logger)
	a.Chunks = repository.NewChunkRepository(drv, logger)

	rec := o.recognize
	if rec == nil {
		if rec, err = NewRecognizer(cfg.OCR, logger); err != nil {
			return fail(err)
		}
	}
	selector := ocr.NewSelector(ocr.Config{
		Pdftoppm:          cfg.OCR.Pdftoppm,
		HEICConverter:     cfg.OCR.HEICConverter,
		DPI:               cfg.OCR.DPI,
		MaxPages:          cfg.OCR.MaxPages,
		MinTextLayerChars: cfg.OCR.MinTextLayerChars,
	}, imaging.NewNormalizer(imaging.Config{MinWidth: cfg.OCR.MinWidth}), rec, logger)

	completer := o.completer
	if completer == nil {
		if completer, err = NewCompleter(cfg.LLM, logger); err != nil {
			return fail(err)
		}
	}
	embedder := o.embedder
	if embedder == nil {
		if embedder, err = embedding.New(cfg, logger); err != nil {
			return fail(err)
		}
	}

	split, err := chunker.New(chunker.WithSize(cfg.Pipeline.ChunkSize), chunker.WithOverlap(cfg.Pipeline.ChunkOverlap))
	if err != nil {
		return fail(err)
	}
	extractor := extract.NewExtractor(completer, quality.NewGate(quality.Config{}), grounding.NewVerifier(logger), logger)

	a.Pipeline = pipeline.NewController(pipeline.Deps{
		Documents:  a.Documents,
		Chunks:     a.Chunks,
		Recognizer: timeoutRecognizer{next: selector, timeout: cfg.OCR.Timeout},
		Extractor:  extractor,
		Splitter:   split,
		Embedder:   embedder,
	}, cfg.Embedding.Concurrency, logger)

	var retriever retrieval.Retriever = retrieval.NewLocal(a.Chunks)
	if cfg.Pipeline.Retriever == "pgvector" {
		retriever = retrieval.NewPGVector(pool, logger)
	}
	a.Chat = chat.NewService(a.Documents, embedder, retriever, completer, cfg.Pipeline.TopK, logger)
	a.Export = export.NewService(a.Documents, logger)

	var q async.Queue
	if o.queue {
		a.Queue = async.NewProcessorQueue(a.Pipeline, logger,
			async.WithWorkers(cfg.Pipeline.Workers),
			async.WithQueueSize(cfg.Pipeline.QueueSize),
			async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
		)
		q = a.Queue
	}
	if a.Ingest, err = ingest.NewService(a.Documents, q, cfg.Server.UploadDir, logger); err != nil {
		return fail(err)
	}
	logger.Info("app.ready",
		"db", cfg.Database.Driver,
		"llm", cfg.LLM.Provider,
		"embedding", cfg.Embedding.Provider,
		"retriever", cfg.Pipeline.Retriever,
		"queue", o.queue,
	)
	return a, nil
}

// HTTPDeps exposes the app to the HTTP layer.
func (a *App) HTTPDeps() server.Deps {
	deps := server.Deps{
		Documents: a.Documents,
		Ingestor:  a.Ingest,
		Pipeline:  a.Pipeline,
		Chat:      a.Chat,
		Exporter:  a.Export,
	}
	if a.Queue != nil {
		deps.Queue = a.Queue
	}
	return deps
}

// Close drains the queue, then closes the database.
func (a *App) Close(ctx context.Context) {
	if a.Queue != nil {
		a.Queue.Shutdown(ctx)
	}
	server.CloseDB(a.Driver, a.Pool, a.logger)
}

// NewRecognizer selects the text recognition engine from OCR_ENGINE.
func NewRecognizer(cfg common.OCRConfig, logger *slog.Logger) (ocr.Recognizer, error) {
	switch cfg.Engine {
	case "", "tesseract":
		return ocr.NewTesseractCLI(ocr.TesseractConfig{
			Binary:      cfg.Tesseract,
			Lang:        cfg.TesseractLang,
			TessdataDir: cfg.TessdataDir,
		}, nil, logger), nil
	case "gosseract":
		return ocr.NewGosseract(cfg.TesseractLang, logger)
	}
	return nil, common.InvalidInputf("unknown OCR engine %q", cfg.Engine)
}

// NewCompleter selects the language model provider from LLM_PROVIDER.
func NewCompleter(cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case "", "ollama":
		return ollama.NewClient(ollama.Config{BaseURL: cfg.OllamaBaseURL, Model: cfg.Model, Timeout: cfg.Timeout}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{BaseURL: cfg.OpenAIBaseURL, APIKey: cfg.APIKey, Model: cfg.Model, Timeout: cfg.Timeout}, logger), nil
	}
	return nil, common.InvalidInputf("unknown llm provider %q", cfg.Provider)
}

type timeoutRecognizer struct {
	next    pipeline.TextRecognizer
	timeout time.Duration
}

func (t timeoutRecognizer) Recognize(ctx context.Context, path string) (ocr.Result, error) {
	if t.timeout <= 0 {
		return t.next.Recognize(ctx, path)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Recognize(ctx, path)
}
