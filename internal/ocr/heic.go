package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// convertHEIC renders a HEIC/HEIF photo to a temporary PNG the image decoder can read.
// The returned cleanup is never nil.
func (s *Selector) convertHEIC(ctx context.Context, in string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "invoice-heic-*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	var args []string
	switch s.cfg.HEICConverter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", cleanup, fmt.Errorf("unsupported heic converter %q (want heif-convert, magick or sips)", s.cfg.HEICConverter)
	}

	if _, errb, err := s.runner.Run(ctx, s.cfg.HEICConverter, s.logger, args...); err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", cleanup, fmt.Errorf("%s failed: %w: %s", s.cfg.HEICConverter, err, msg)
		}
		return "", cleanup, fmt.Errorf("%s failed: %w", s.cfg.HEICConverter, err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", cleanup, fmt.Errorf("heic conversion produced no output: %w", err)
	}
	s.logger.Debug("ocr.heic.converted", "path", in, "converter", s.cfg.HEICConverter)
	return out, cleanup, nil
}
