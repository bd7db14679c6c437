package ingest

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string    `json:"source_path,omitempty"`
	DocumentID   uuid.UUID `json:"invoice_id"`
	Deduplicated bool      `json:"deduplicated"`
	SHA256       string    `json:"sha256"`
	FileExt      string    `json:"file_ext"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Queued       bool      `json:"queued"`
	Err          string    `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// Upload is one file received over HTTP.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// DocumentStore is the part of the invoice repository ingestion writes to.
type DocumentStore interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetBySHA256(ctx context.Context, sum string) (*entity.Document, error)
}

// Ingestor is the behavior the HTTP layer, the CLI and the watcher depend on.
type Ingestor interface {
	IngestUpload(ctx context.Context, up Upload) (IngestionResult, error)
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
