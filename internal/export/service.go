package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

const (
	SheetName    = "Invoices"
	DefaultLimit = 1000
)

var headers = []string{
	"Invoice ID",
	"File Name",
	"Status",
	"Supplier",
	"Customer",
	"Date Issued",
	"Due Date",
	"Total Amount",
	"Chunks",
	"Warning",
	"Uploaded At",
}

type DocumentLister interface {
	List(ctx context.Context, limit int) ([]entity.Document, error)
}

// Service produces XLSX bytes of extracted invoice fields.
type Service struct {
	docs   DocumentLister
	logger *slog.Logger
}

func NewService(docs DocumentLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ExportInvoicesXLSX returns a workbook with one row per invoice, newest first.
// Fields that were not found or not verified are left blank.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()
	if limit <= 0 {
		limit = DefaultLimit
	}
	docs, err := s.docs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, d := range docs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		write(1, d.ID.String())
		write(2, d.FileName)
		write(3, string(d.Status))
		write(4, str(d.Fields.SupplierName))
		write(5, str(d.Fields.CustomerName))
		write(6, str(d.Fields.DateIssued))
		write(7, str(d.Fields.DueDate))
		if d.Fields.TotalAmount != nil {
			write(8, *d.Fields.TotalAmount)
		}
		write(9, d.ChunkCount)
		write(10, truncate(str(d.Fields.Warning), 140))
		if !d.CreatedAt.IsZero() {
			write(11, d.CreatedAt.UTC().Format(time.RFC3339))
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 38) // id
	_ = f.SetColWidth(SheetName, "B", "B", 28)
	_ = f.SetColWidth(SheetName, "C", "C", 16)
	_ = f.SetColWidth(SheetName, "D", "E", 28) // parties
	_ = f.SetColWidth(SheetName, "F", "G", 14) // dates
	_ = f.SetColWidth(SheetName, "H", "I", 14)
	_ = f.SetColWidth(SheetName, "J", "J", 48)
	_ = f.SetColWidth(SheetName, "K", "K", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
