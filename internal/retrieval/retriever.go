// Package retrieval ranks a document's chunks against a query vector.
package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

const DefaultTopK = 4

// Retriever returns at most k hits for one document, best first.
type Retriever interface {
	Retrieve(ctx context.Context, docID uuid.UUID, query []float32, k int) ([]entity.RetrievalHit, error)
}

// ChunkLister is the storage a Local retriever scans.
type ChunkLister interface {
	ListChunks(ctx context.Context, docID uuid.UUID) ([]entity.Chunk, error)
}

// Local scores the document's embedded chunks in process.
type Local struct {
	store ChunkLister
}

var _ Retriever = (*Local)(nil)

func NewLocal(store ChunkLister) *Local {
	return &Local{store: store}
}

func (l *Local) Retrieve(ctx context.Context, docID uuid.UUID, query []float32, k int) ([]entity.RetrievalHit, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	chunks, err := l.store.ListChunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	hits := make([]entity.RetrievalHit, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		hits = append(hits, entity.RetrievalHit{Chunk: c, Score: Cosine(query, c.Embedding)})
	}
	Rank(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Rank sorts by score descending, then by sequence ascending.
func Rank(hits []entity.RetrievalHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Seq < hits[j].Chunk.Seq
	})
}

// Cosine returns 0 for mismatched lengths and zero-norm vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
