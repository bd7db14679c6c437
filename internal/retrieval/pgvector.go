package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

// PGVector ranks inside Postgres with the cosine distance operator.
// Only chunks of the requested document are considered.
type PGVector struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Retriever = (*PGVector)(nil)

func NewPGVector(pool *pgxpool.Pool, logger *slog.Logger) *PGVector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGVector{pool: pool, logger: logger}
}

const pgvectorQuery = `
SELECT seq, text, char_start, char_end, source, 1 - (embedding <=> $1::vector) AS score
FROM invoice_chunks
WHERE document_id = $2 AND embedding IS NOT NULL
ORDER BY embedding <=> $1::vector, seq
LIMIT $3`

func (p *PGVector) Retrieve(ctx context.Context, docID uuid.UUID, query []float32, k int) ([]entity.RetrievalHit, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, pgvectorQuery, pgvector.NewVector(query), docID.String(), k)
	if err != nil {
		p.logger.Error("retrieval.pgvector.query_failed", "document_id", docID, "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "vector search", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	defer rows.Close()

	var hits []entity.RetrievalHit
	for rows.Next() {
		h := entity.RetrievalHit{Chunk: entity.Chunk{DocumentID: docID}}
		if err := rows.Scan(&h.Chunk.Seq, &h.Chunk.Text, &h.Chunk.CharStart, &h.Chunk.CharEnd, &h.Chunk.Source, &h.Score); err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "scan vector hit", fmt.Errorf("%w: %w", common.ErrDatabase, err))
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "iterate vector hits", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}

	p.logger.Debug("retrieval.pgvector.ok", "document_id", docID, "hits", len(hits), "elapsed_ms", time.Since(start).Milliseconds())
	return hits, nil
}
