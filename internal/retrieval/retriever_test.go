package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

type memChunks map[uuid.UUID][]entity.Chunk

func (m memChunks) ListChunks(_ context.Context, id uuid.UUID) ([]entity.Chunk, error) {
	if id == uuid.Nil {
		return nil, errors.New("store down")
	}
	return m[id], nil
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 1}))
}

func TestLocalRetrieveRanksAndTruncates(t *testing.T) {
	doc, other := uuid.New(), uuid.New()
	store := memChunks{
		doc: {
			{Seq: 0, Text: "header", Embedding: []float32{0, 1}},
			{Seq: 1, Text: "total", Embedding: []float32{1, 0}},
			{Seq: 2, Text: "total again", Embedding: []float32{2, 0}},
			{Seq: 3, Text: "blank", Embedding: []float32{0, 0}},
			{Seq: 4, Text: "mixed", Embedding: []float32{1, 1}},
		},
		other: {{Seq: 0, Text: "other doc", Embedding: []float32{1, 0}}},
	}

	hits, err := NewLocal(store).Retrieve(context.Background(), doc, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Chunk.Seq, "ties resolve to the lower seq")
	assert.Equal(t, 2, hits[1].Chunk.Seq)
	assert.Equal(t, 4, hits[2].Chunk.Seq)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)

	all, err := NewLocal(store).Retrieve(context.Background(), doc, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, all, DefaultTopK)
}

func TestLocalRetrieveEmptyAndErrors(t *testing.T) {
	hits, err := NewLocal(memChunks{}).Retrieve(context.Background(), uuid.New(), []float32{1}, 4)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = NewLocal(memChunks{}).Retrieve(context.Background(), uuid.Nil, []float32{1}, 4)
	assert.Error(t, err)
}

func TestLocalRetrieveSkipsChunksWithoutVector(t *testing.T) {
	doc := uuid.New()
	store := memChunks{doc: {
		{Seq: 0, Text: "no vector"},
		{Seq: 1, Text: "total", Embedding: []float32{1, 0}},
	}}

	hits, err := NewLocal(store).Retrieve(context.Background(), doc, []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "total", hits[0].Chunk.Text)
}
