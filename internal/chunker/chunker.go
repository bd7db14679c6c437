// Package chunker splits recognized text into fixed-size overlapping windows.
package chunker

import (
	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

const (
	DefaultSize    = 1500
	DefaultOverlap = 150
)

// Chunker windows are measured in runes.
type Chunker struct {
	size    int
	overlap int
}

type Option func(*Chunker)

func WithSize(size int) Option {
	return func(c *Chunker) { c.size = size }
}

func WithOverlap(overlap int) Option {
	return func(c *Chunker) { c.overlap = overlap }
}

// New rejects a non-positive size, a negative overlap, and an overlap that is not smaller than size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{size: DefaultSize, overlap: DefaultOverlap}
	for _, o := range opts {
		o(c)
	}
	switch {
	case c.size <= 0:
		return nil, common.InvalidInputf("chunk size must be positive, got %d", c.size)
	case c.overlap < 0:
		return nil, common.InvalidInputf("chunk overlap must not be negative, got %d", c.overlap)
	case c.overlap >= c.size:
		return nil, common.InvalidInputf("chunk overlap %d must be smaller than size %d", c.overlap, c.size)
	}
	return c, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split is deterministic. Consecutive chunks share exactly overlap runes and
// together cover the whole text. Empty text yields no chunks.
func (c *Chunker) Split(docID uuid.UUID, text string) []entity.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	chunks := make([]entity.Chunk, 0, n/(c.size-c.overlap)+1)
	for start, seq := 0, 0; start < n; seq++ {
		end := min(n, start+c.size)
		chunks = append(chunks, entity.Chunk{
			DocumentID: docID,
			Seq:        seq,
			Text:       string(runes[start:end]),
			CharStart:  start,
			CharEnd:    end,
			Source:     constants.SourceOCR,
		})
		if end >= n {
			break
		}
		start = end - c.overlap
	}
	return chunks
}
