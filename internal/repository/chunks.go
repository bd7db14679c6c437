package repository

import (
	"context"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

type ChunkRepository interface {
	// InsertChunks stores chunks atomically; all or none are written.
	InsertChunks(ctx context.Context, chunks []entity.Chunk) error
	ListChunks(ctx context.Context, docID uuid.UUID) ([]entity.Chunk, error)
	CountChunks(ctx context.Context, docID uuid.UUID) (int, error)
	DeleteChunks(ctx context.Context, docID uuid.UUID) (int64, error)
}

type chunkRepo struct {
	drv *entsql.Driver
	log *slog.Logger
}

func NewChunkRepository(drv *entsql.Driver, logger *slog.Logger) ChunkRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &chunkRepo{drv: drv, log: logger}
}

var chunkColumns = []string{"document_id", "seq", "text", "char_start", "char_end", "source", "embedding"}

// insertBatch keeps the bound parameter count well below driver limits.
const insertBatch = 100

func (r *chunkRepo) InsertChunks(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.drv.DB().BeginTx(ctx, nil)
	if err != nil {
		return dbError("begin chunk insert", err)
	}
	defer func() { _ = tx.Rollback() }()

	b := entsql.Dialect(r.drv.Dialect())
	for start := 0; start < len(chunks); start += insertBatch {
		ins := b.Insert(tableChunks).Columns(chunkColumns...)
		for _, c := range chunks[start:min(start+insertBatch, len(chunks))] {
			ins.Values(c.DocumentID.String(), c.Seq, c.Text, c.CharStart, c.CharEnd, c.Source, r.encodeVector(c.Embedding))
		}
		query, args := ins.Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.log.Error("failed to insert chunks", "document_id", chunks[0].DocumentID, "error", err)
			return dbError("insert chunks", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return dbError("commit chunk insert", err)
	}
	r.log.Debug("chunks inserted", "document_id", chunks[0].DocumentID, "count", len(chunks))
	return nil
}

func (r *chunkRepo) ListChunks(ctx context.Context, docID uuid.UUID) ([]entity.Chunk, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select(chunkColumns...).
		From(b.Table(tableChunks)).
		Where(entsql.EQ("document_id", docID.String())).
		OrderBy("seq").
		Query()
	rows, err := r.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list chunks", "document_id", docID, "error", err)
		return nil, dbError("list chunks", err)
	}
	defer rows.Close()

	var out []entity.Chunk
	for rows.Next() {
		var (
			c  entity.Chunk
			id string
		)
		dest := []any{&id, &c.Seq, &c.Text, &c.CharStart, &c.CharEnd, &c.Source}
		var (
			blob []byte
			vec  *pgvector.Vector
		)
		if r.drv.Dialect() == dialect.Postgres {
			dest = append(dest, &vec)
		} else {
			dest = append(dest, &blob)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, dbError("scan chunk", err)
		}
		if c.DocumentID, err = uuid.Parse(id); err != nil {
			return nil, dbError("scan chunk", err)
		}
		if vec != nil {
			c.Embedding = vec.Slice()
		} else {
			c.Embedding = deserializeVector(blob)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate chunks", err)
	}
	return out, nil
}

func (r *chunkRepo) CountChunks(ctx context.Context, docID uuid.UUID) (int, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(tableChunks)).
		Where(entsql.EQ("document_id", docID.String())).
		Query()
	var n int
	if err := r.drv.DB().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, dbError("count chunks", err)
	}
	return n, nil
}

func (r *chunkRepo) DeleteChunks(ctx context.Context, docID uuid.UUID) (int64, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).Delete(tableChunks).
		Where(entsql.EQ("document_id", docID.String())).
		Query()
	res, err := r.drv.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to delete chunks", "document_id", docID, "error", err)
		return 0, dbError("delete chunks", err)
	}
	n, _ := res.RowsAffected()
	r.log.Info("chunks deleted", "document_id", docID, "count", n)
	return n, nil
}

func (r *chunkRepo) encodeVector(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	if r.drv.Dialect() == dialect.Postgres {
		return pgvector.NewVector(v)
	}
	return serializeVector(v)
}
