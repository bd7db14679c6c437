package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

const pageBreak = "\n\f\n"

// TextLayer returns the embedded text of a PDF, at most maxPages pages (0 = all).
func TextLayer(path string, maxPages int) (text string, pages int, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages = r.NumPage()
	limit := pages
	if maxPages > 0 && limit > maxPages {
		limit = maxPages
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			return "", pages, fmt.Errorf("page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteString(pageBreak)
		}
		b.WriteString(txt)
	}
	return b.String(), pages, nil
}

// rasterize renders PDF pages to PNG files with pdftoppm. Call cleanup when done.
func (s *Selector) rasterize(ctx context.Context, path string) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "invoice-pp-*")
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			s.logger.Warn("ocr.rasterize.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-f 1 -l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(s.cfg.DPI), "-png"}
	if s.cfg.MaxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(s.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := s.runner.Run(ctx, s.cfg.Pdftoppm, s.logger, args...); err != nil {
		return nil, cleanup, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if s.cfg.MaxPages > 0 && len(matches) > s.cfg.MaxPages {
		matches = matches[:s.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, cleanup, fmt.Errorf("pdftoppm produced no pages")
	}
	return matches, cleanup, nil
}
