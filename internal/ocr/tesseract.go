package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/zainab-noor-25/invoice-api/internal/common"
)

// Recognizer turns one PNG-encoded page rendering into plain text.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// TesseractConfig configures the tesseract command line engine.
type TesseractConfig struct {
	Binary      string // default "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // 0 keeps the engine default
}

// TesseractCLI shells out to the tesseract binary through a Runner.
type TesseractCLI struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractCLI(cfg TesseractConfig, runner Runner, logger *slog.Logger) *TesseractCLI {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &TesseractCLI{cfg: cfg, runner: runner, logger: logger}
}

func (t *TesseractCLI) Recognize(ctx context.Context, png []byte) (string, error) {
	f, err := os.CreateTemp("", "invoice-page-*.png")
	if err != nil {
		return "", fmt.Errorf("temp page: %w", err)
	}
	defer func() {
		if err := os.Remove(f.Name()); err != nil {
			t.logger.Warn("ocr.tesseract.cleanup_failed", "path", f.Name(), "error", err)
		}
	}()
	if _, err := f.Write(png); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write page: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close page: %w", err)
	}

	// tesseract <file> stdout -l <lang>
	args := []string{f.Name(), "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, t.logger, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", common.TransportError("tesseract", ctx.Err())
		}
		return "", common.RecognitionError("tesseract: "+strings.TrimSpace(truncate(string(errb), 512)), err)
	}
	return string(out), nil
}
