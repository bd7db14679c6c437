package repository

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

func openTestDB(t *testing.T) *entsql.Driver {
	t.Helper()
	drv, err := OpenSQLite(filepath.Join(t.TempDir(), "invoices.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	require.NoError(t, EnsureSchema(context.Background(), drv, 3, slog.Default()))
	// second call is a no-op
	require.NoError(t, EnsureSchema(context.Background(), drv, 3, slog.Default()))
	return drv
}

func newDoc(name string, created time.Time) *entity.Document {
	return &entity.Document{
		FileName:    name,
		ContentType: "image/png",
		FilePath:    "invoices/" + name,
		SHA256:      "sum-" + name,
		CreatedAt:   created,
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	docs := NewDocumentRepository(openTestDB(t), nil)

	doc := newDoc("a.png", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, docs.Create(ctx, doc))
	require.NotEqual(t, uuid.Nil, doc.ID)

	got, err := docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusUploaded, got.Status)
	assert.Equal(t, "a.png", got.FileName)
	assert.Nil(t, got.Error)
	assert.True(t, got.CreatedAt.Equal(doc.CreatedAt))

	require.NoError(t, docs.SetStatus(ctx, doc.ID, constants.StatusProcessing))

	res := entity.ProcessResult{
		Status:     constants.StatusFieldsExtracted,
		OCRText:    "INVOICE clean",
		OCRRawText: "INVOICE  raw",
		OCRVariant: "mild",
		Fields: entity.ExtractedFields{
			SupplierName: entity.Ptr("Globex"),
			TotalAmount:  entity.Ptr(0.0),
		},
		ChunkCount: 2,
	}
	require.NoError(t, docs.SaveResult(ctx, doc.ID, res))

	got, err = docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFieldsExtracted, got.Status)
	assert.Equal(t, "INVOICE clean", got.OCRText)
	assert.Equal(t, "INVOICE  raw", got.OCRRawText)
	assert.Equal(t, "mild", got.OCRVariant)
	assert.Equal(t, 2, got.ChunkCount)
	require.NotNil(t, got.Fields.TotalAmount)
	assert.Equal(t, 0.0, *got.Fields.TotalAmount)
	assert.Equal(t, "Globex", *got.Fields.SupplierName)
	assert.Nil(t, got.Fields.CustomerName)

	msg := "stage transport error"
	require.NoError(t, docs.SaveResult(ctx, doc.ID, entity.ProcessResult{Status: constants.StatusError, Error: &msg}))
	got, err = docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusError, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, msg, *got.Error)
	assert.Empty(t, got.OCRText)
}

func TestDocumentNotFound(t *testing.T) {
	ctx := context.Background()
	docs := NewDocumentRepository(openTestDB(t), nil)

	_, err := docs.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, docs.SetStatus(ctx, uuid.New(), constants.StatusProcessing), common.ErrNotFound)
	assert.ErrorIs(t, docs.SaveResult(ctx, uuid.New(), entity.ProcessResult{}), common.ErrNotFound)
	_, err = docs.GetBySHA256(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListNewestFirstWithoutText(t *testing.T) {
	ctx := context.Background()
	docs := NewDocumentRepository(openTestDB(t), nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"old.png", "mid.png", "new.png"} {
		d := newDoc(name, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, docs.Create(ctx, d))
		require.NoError(t, docs.SaveResult(ctx, d.ID, entity.ProcessResult{Status: constants.StatusFieldsExtracted, OCRText: "text " + name}))
	}

	list, err := docs.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new.png", list[0].FileName)
	assert.Equal(t, "mid.png", list[1].FileName)
	assert.Empty(t, list[0].OCRText)

	byHash, err := docs.GetBySHA256(ctx, "sum-old.png")
	require.NoError(t, err)
	assert.Equal(t, "old.png", byHash.FileName)
}

func TestChunksRoundTripAndReprocessCount(t *testing.T) {
	ctx := context.Background()
	drv := openTestDB(t)
	docs := NewDocumentRepository(drv, nil)
	chunks := NewChunkRepository(drv, nil)

	doc := newDoc("c.png", time.Now().UTC())
	require.NoError(t, docs.Create(ctx, doc))

	batch := []entity.Chunk{
		{DocumentID: doc.ID, Seq: 0, Text: "Invoice", CharStart: 0, CharEnd: 7, Source: "ocr", Embedding: []float32{1, 0, 0.5}},
		{DocumentID: doc.ID, Seq: 1, Text: "Total", CharStart: 5, CharEnd: 10, Source: "ocr", Embedding: []float32{0, 1, -0.25}},
		{DocumentID: doc.ID, Seq: 2, Text: "no vector", CharStart: 8, CharEnd: 17, Source: "ocr"},
	}
	require.NoError(t, chunks.InsertChunks(ctx, batch))

	got, err := chunks.ListChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, batch[0], got[0])
	assert.Equal(t, batch[1], got[1])
	assert.Nil(t, got[2].Embedding)

	// reprocess: delete then re-insert the same number
	n, err := chunks.DeleteChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, chunks.InsertChunks(ctx, batch))
	count, err := chunks.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// duplicate keys roll back the whole insert
	err = chunks.InsertChunks(ctx, batch[:1])
	assert.ErrorIs(t, err, common.ErrDatabase)
	count, err = chunks.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestVectorSerialization(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, v, deserializeVector(serializeVector(v)))
	assert.Nil(t, deserializeVector(nil))
}
