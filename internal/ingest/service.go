package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/async"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
)

// Service stores incoming invoice files, records them and queues them for processing.
type Service struct {
	docs      DocumentStore
	queue     async.Queue
	uploadDir string
	logger    *slog.Logger
	now       func() time.Time
}

var _ Ingestor = (*Service)(nil)

// NewService creates a new ingest service. A nil queue records documents without processing them.
func NewService(docs DocumentStore, q async.Queue, uploadDir string, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(uploadDir) == "" {
		return nil, common.InvalidInputf("upload dir is required")
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Service{docs: docs, queue: q, uploadDir: uploadDir, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// IngestUpload accepts a file by content type, falling back to the file name's extension.
func (s *Service) IngestUpload(ctx context.Context, up Upload) (IngestionResult, error) {
	ext, ok := constants.ExtForContentType(up.ContentType)
	if !ok {
		ext = constants.NormalizeExt(filepath.Ext(up.FileName))
	}
	if !AllowedExt(ext) {
		s.logger.Warn("upload rejected", "file_name", up.FileName, "content_type", up.ContentType)
		return IngestionResult{}, common.InvalidInputf("unsupported file type %q", up.ContentType)
	}
	return s.store(ctx, up.FileName, ext, up.Body)
}

// IngestPath copies a file from the local filesystem into the upload directory.
func (s *Service) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return IngestionResult{}, common.InvalidInputf("unsupported or missing extension: %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return IngestionResult{}, common.InvalidInputf("open %s: %v", abs, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			s.logger.Warn("close file error", "path", abs, "error", err)
		}
	}(f)

	res, err := s.store(ctx, filepath.Base(abs), ext, f)
	res.SourcePath = abs
	return res, err
}

// IngestDirectory walks root, skips hidden entries if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (s *Service) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInputf("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := s.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	s.logger.Info("directory ingest completed", "root", root, "scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}

// store writes body to UPLOAD_DIR/<id>.<ext> while hashing it. A file whose
// hash is already recorded returns the existing invoice and is not queued again.
func (s *Service) store(ctx context.Context, name, ext string, body io.Reader) (IngestionResult, error) {
	tmp, err := os.CreateTemp(s.uploadDir, ".upload-*")
	if err != nil {
		return IngestionResult{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return IngestionResult{}, fmt.Errorf("write upload: %w", err)
	}
	if n == 0 {
		return IngestionResult{}, common.InvalidInputf("file %q is empty", name)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	existing, err := s.docs.GetBySHA256(ctx, sum)
	switch {
	case err == nil:
		s.logger.Info("skipping ingest (duplicate)", "document_id", existing.ID, "file_name", name)
		return IngestionResult{
			DocumentID:   existing.ID,
			Deduplicated: true,
			SHA256:       sum,
			FileExt:      constants.NormalizeExt(filepath.Ext(existing.FilePath)),
			UploadedAt:   existing.CreatedAt,
		}, nil
	case !errors.Is(err, common.ErrNotFound):
		return IngestionResult{}, err
	}

	id := uuid.New()
	dst := filepath.Join(s.uploadDir, id.String()+"."+ext)
	if err := os.Rename(tmpName, dst); err != nil {
		return IngestionResult{}, fmt.Errorf("move upload: %w", err)
	}

	doc := &entity.Document{
		ID:          id,
		FileName:    name,
		ContentType: constants.ContentTypeForExt(ext),
		FilePath:    dst,
		SHA256:      sum,
		Status:      constants.StatusUploaded,
		CreatedAt:   s.now(),
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		_ = os.Remove(dst)
		return IngestionResult{}, err
	}
	res := IngestionResult{DocumentID: id, SHA256: sum, FileExt: ext, UploadedAt: doc.CreatedAt}
	s.logger.Info("invoice stored", "document_id", id, "file_name", name, "bytes", n)

	if s.queue == nil {
		return res, nil
	}
	if err := s.queue.Enqueue(ctx, async.Job{
		DocumentID:  id,
		SubmittedAt: time.Now(),
		TraceID:     common.RequestIDFromContext(ctx),
	}); err != nil {
		s.logger.Error("enqueue failed for invoice", "document_id", id, "error", err)
		return res, fmt.Errorf("enqueue: %w", err)
	}
	res.Queued = true
	return res, nil
}

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
