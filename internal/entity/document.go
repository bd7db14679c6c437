package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/constants"
)

// Document is an uploaded invoice together with its latest pipeline result.
// File fields are immutable after upload; the rest is replaced by each run.
type Document struct {
	ID          uuid.UUID                `json:"invoice_id"`
	FileName    string                   `json:"file_name"`
	ContentType string                   `json:"content_type"`
	FilePath    string                   `json:"file_path"`
	SHA256      string                   `json:"sha256,omitempty"`
	Status      constants.DocumentStatus `json:"status"`
	OCRText     string                   `json:"ocr_text,omitempty"`
	OCRRawText  string                   `json:"-"`
	OCRVariant  string                   `json:"ocr_variant,omitempty"`
	Fields      ExtractedFields          `json:"fields"`
	ChunkCount  int                      `json:"chunk_count"`
	Error       *string                  `json:"error,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// ProcessResult is everything one pipeline run writes back to a document.
// It is persisted in a single update so readers never see text and fields from different runs.
type ProcessResult struct {
	Status     constants.DocumentStatus
	OCRText    string
	OCRRawText string
	OCRVariant string
	Fields     ExtractedFields
	ChunkCount int
	Error      *string
}
