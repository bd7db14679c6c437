package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetBySHA256(ctx context.Context, sum string) (*entity.Document, error)
	List(ctx context.Context, limit int) ([]entity.Document, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error
	// SaveResult replaces text, fields, chunk count, status and error in one statement.
	SaveResult(ctx context.Context, id uuid.UUID, res entity.ProcessResult) error
}

type documentRepo struct {
	drv *entsql.Driver
	log *slog.Logger
	now func() time.Time
}

func NewDocumentRepository(drv *entsql.Driver, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{drv: drv, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

var documentColumns = []string{
	"id", "file_name", "content_type", "file_path", "sha256", "status",
	"ocr_text", "ocr_raw_text", "ocr_variant", "fields", "chunk_count", "error",
	"created_at", "updated_at",
}

func (r *documentRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.StatusUploaded
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now()
	}
	doc.UpdatedAt = doc.CreatedAt

	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return err
	}
	query, args := r.builder().Insert(tableInvoices).
		Columns(documentColumns...).
		Values(
			doc.ID.String(), doc.FileName, doc.ContentType, doc.FilePath, doc.SHA256, string(doc.Status),
			doc.OCRText, doc.OCRRawText, doc.OCRVariant, string(fields), doc.ChunkCount, nullString(doc.Error),
			doc.CreatedAt, doc.UpdatedAt,
		).Query()
	if _, err := r.drv.DB().ExecContext(ctx, query, args...); err != nil {
		r.log.Error("failed to create invoice", "document_id", doc.ID, "file_name", doc.FileName, "error", err)
		return dbError("create invoice", err)
	}
	r.log.Info("invoice created", "document_id", doc.ID, "file_name", doc.FileName)
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	b := r.builder()
	query, args := b.Select(documentColumns...).
		From(b.Table(tableInvoices)).
		Where(entsql.EQ("id", id.String())).
		Query()
	doc, err := scanDocument(r.drv.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("invoice %s", id)
	}
	if err != nil {
		r.log.Error("failed to get invoice", "document_id", id, "error", err)
		return nil, dbError("get invoice", err)
	}
	return doc, nil
}

func (r *documentRepo) GetBySHA256(ctx context.Context, sum string) (*entity.Document, error) {
	b := r.builder()
	query, args := b.Select(documentColumns...).
		From(b.Table(tableInvoices)).
		Where(entsql.EQ("sha256", sum)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1).
		Query()
	doc, err := scanDocument(r.drv.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("invoice with sha256 %s", sum)
	}
	if err != nil {
		return nil, dbError("get invoice by hash", err)
	}
	return doc, nil
}

// List returns the newest invoices first, without their recognized text.
func (r *documentRepo) List(ctx context.Context, limit int) ([]entity.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	b := r.builder()
	query, args := b.Select(documentColumns...).
		From(b.Table(tableInvoices)).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()
	rows, err := r.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list invoices", "error", err)
		return nil, dbError("list invoices", err)
	}
	defer rows.Close()

	var out []entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, dbError("scan invoice", err)
		}
		doc.OCRText, doc.OCRRawText = "", ""
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate invoices", err)
	}
	return out, nil
}

func (r *documentRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error {
	query, args := r.builder().Update(tableInvoices).
		Set("status", string(status)).
		Set("updated_at", r.now()).
		Where(entsql.EQ("id", id.String())).
		Query()
	return r.execOne(ctx, "set invoice status", id, query, args)
}

func (r *documentRepo) SaveResult(ctx context.Context, id uuid.UUID, res entity.ProcessResult) error {
	fields, err := json.Marshal(res.Fields)
	if err != nil {
		return err
	}
	query, args := r.builder().Update(tableInvoices).
		Set("status", string(res.Status)).
		Set("ocr_text", res.OCRText).
		Set("ocr_raw_text", res.OCRRawText).
		Set("ocr_variant", res.OCRVariant).
		Set("fields", string(fields)).
		Set("chunk_count", res.ChunkCount).
		Set("error", nullString(res.Error)).
		Set("updated_at", r.now()).
		Where(entsql.EQ("id", id.String())).
		Query()
	if err := r.execOne(ctx, "save invoice result", id, query, args); err != nil {
		return err
	}
	r.log.Info("invoice result saved", "document_id", id, "status", res.Status, "chunks", res.ChunkCount)
	return nil
}

func (r *documentRepo) execOne(ctx context.Context, op string, id uuid.UUID, query string, args []any) error {
	res, err := r.drv.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("invoice update failed", "op", op, "document_id", id, "error", err)
		return dbError(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NotFoundf("invoice %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		doc            entity.Document
		id, status     string
		fields, errMsg sql.NullString
	)
	err := row.Scan(
		&id, &doc.FileName, &doc.ContentType, &doc.FilePath, &doc.SHA256, &status,
		&doc.OCRText, &doc.OCRRawText, &doc.OCRVariant, &fields, &doc.ChunkCount, &errMsg,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if doc.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	doc.Status = constants.DocumentStatus(status)
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &doc.Fields); err != nil {
			return nil, err
		}
	}
	if errMsg.Valid {
		doc.Error = &errMsg.String
	}
	return &doc, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
