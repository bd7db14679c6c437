package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

type listerFunc func(ctx context.Context, limit int) ([]entity.Document, error)

func (f listerFunc) List(ctx context.Context, limit int) ([]entity.Document, error) { return f(ctx, limit) }

func TestExportInvoicesXLSX(t *testing.T) {
	id := uuid.New()
	var gotLimit int
	docs := listerFunc(func(_ context.Context, limit int) ([]entity.Document, error) {
		gotLimit = limit
		return []entity.Document{
			{
				ID:         id,
				FileName:   "march.png",
				Status:     constants.StatusFieldsExtracted,
				ChunkCount: 2,
				CreatedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
				Fields: entity.ExtractedFields{
					SupplierName: entity.Ptr("Acme Ltd"),
					DateIssued:   entity.Ptr("2024-03-01"),
					TotalAmount:  entity.Ptr(1200.5),
				},
			},
			{ID: uuid.New(), FileName: "broken.pdf", Status: constants.StatusError},
		}, nil
	})

	out, err := NewService(docs, nil).ExportInvoicesXLSX(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, gotLimit)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, id.String(), rows[1][0])
	assert.Equal(t, "Acme Ltd", rows[1][3])
	assert.Equal(t, "", rows[1][4])
	assert.Equal(t, "2024-03-01", rows[1][5])
	assert.Equal(t, "1200.5", rows[1][7])
	assert.Equal(t, "2024-03-01T10:00:00Z", rows[1][10])
	assert.Equal(t, "error", rows[2][2])
}

func TestExportPropagatesListError(t *testing.T) {
	docs := listerFunc(func(context.Context, int) ([]entity.Document, error) { return nil, errors.New("db down") })
	_, err := NewService(docs, nil).ExportInvoicesXLSX(context.Background(), 10)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
