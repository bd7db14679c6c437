package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableInvoices = "invoices"
	tableChunks   = "invoice_chunks"
)

// EnsureSchema creates missing tables. It never alters existing ones.
func EnsureSchema(ctx context.Context, drv *entsql.Driver, embeddingDim int, logger *slog.Logger) error {
	var stmts []string
	switch drv.Dialect() {
	case dialect.Postgres:
		stmts = []string{
			`CREATE EXTENSION IF NOT EXISTS vector`,
			`CREATE TABLE IF NOT EXISTS invoices (
				id UUID PRIMARY KEY,
				file_name TEXT NOT NULL,
				content_type TEXT NOT NULL,
				file_path TEXT NOT NULL,
				sha256 TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				ocr_text TEXT NOT NULL DEFAULT '',
				ocr_raw_text TEXT NOT NULL DEFAULT '',
				ocr_variant TEXT NOT NULL DEFAULT '',
				fields JSONB,
				chunk_count INTEGER NOT NULL DEFAULT 0,
				error TEXT,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS invoices_created_at_idx ON invoices (created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS invoices_sha256_idx ON invoices (sha256)`,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS invoice_chunks (
				document_id UUID NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
				seq INTEGER NOT NULL,
				text TEXT NOT NULL,
				char_start INTEGER NOT NULL,
				char_end INTEGER NOT NULL,
				source TEXT NOT NULL,
				embedding vector(%d),
				PRIMARY KEY (document_id, seq)
			)`, embeddingDim),
		}
	case dialect.SQLite:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS invoices (
				id TEXT PRIMARY KEY,
				file_name TEXT NOT NULL,
				content_type TEXT NOT NULL,
				file_path TEXT NOT NULL,
				sha256 TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				ocr_text TEXT NOT NULL DEFAULT '',
				ocr_raw_text TEXT NOT NULL DEFAULT '',
				ocr_variant TEXT NOT NULL DEFAULT '',
				fields TEXT,
				chunk_count INTEGER NOT NULL DEFAULT 0,
				error TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS invoices_created_at_idx ON invoices (created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS invoices_sha256_idx ON invoices (sha256)`,
			`CREATE TABLE IF NOT EXISTS invoice_chunks (
				document_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
				seq INTEGER NOT NULL,
				text TEXT NOT NULL,
				char_start INTEGER NOT NULL,
				char_end INTEGER NOT NULL,
				source TEXT NOT NULL,
				embedding BLOB,
				PRIMARY KEY (document_id, seq)
			)`,
		}
	default:
		return fmt.Errorf("unsupported dialect %q", drv.Dialect())
	}

	for _, s := range stmts {
		if _, err := drv.DB().ExecContext(ctx, s); err != nil {
			logger.Error("schema bootstrap failed", "dialect", drv.Dialect(), "error", err)
			return dbError("ensure schema", err)
		}
	}
	logger.Info("schema ready", "dialect", drv.Dialect())
	return nil
}
