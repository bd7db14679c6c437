package entity

import "github.com/google/uuid"

// Chunk is one overlapping window of a document's recognized text.
// CharStart/CharEnd are rune offsets, start inclusive and end exclusive.
type Chunk struct {
	DocumentID uuid.UUID `json:"document_id"`
	Seq        int       `json:"chunk_id"`
	Text       string    `json:"text"`
	CharStart  int       `json:"char_start"`
	CharEnd    int       `json:"char_end"`
	Source     string    `json:"source"`
	Embedding  []float32 `json:"-"`
}

// RetrievalHit is a scored chunk returned for a query. Not persisted.
type RetrievalHit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
