// Package embedding turns text into fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

// Embedder produces one vector per text. Failures are wrapped in common.ErrTransport.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// EmbedChunks embeds every chunk with at most limit calls in flight.
// Each vector is stored on the chunk it was computed from; the first failure cancels the rest.
func EmbedChunks(ctx context.Context, e Embedder, chunks []entity.Chunk, limit int) error {
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range chunks {
		g.Go(func() error {
			vec, err := e.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", chunks[i].Seq, err)
			}
			chunks[i].Embedding = vec
			return nil
		})
	}
	return g.Wait()
}

func checkDims(service string, vec []float32, want int) error {
	if len(vec) == 0 {
		return common.TransportError(service, fmt.Errorf("empty embedding"))
	}
	if want > 0 && len(vec) != want {
		return common.TransportError(service, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), want))
	}
	return nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
