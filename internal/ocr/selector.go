package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/imaging"
)

type Config struct {
	Pdftoppm          string // binary name or absolute path; if empty -> "pdftoppm"
	HEICConverter     string // "magick" (default), "heif-convert" or "sips"
	DPI               int    // rasterization DPI for scanned PDFs, default 300
	MaxPages          int    // 0 = no limit
	MinTextLayerChars int    // embedded PDF text at least this long skips recognition, default 50
}

// Candidate is one rendering's recognized text and its score.
type Candidate struct {
	Variant constants.Variant `json:"variant"`
	Text    string            `json:"text"`
	Score   float64           `json:"score"`
}

type Result struct {
	Text       string            // cleaned text of the selected candidate
	RawText    string            // uncleaned text of the raw rendering (or the text layer)
	Variant    constants.Variant // empty when Source is the text layer
	Source     string            // constants.SourceTextLayer | constants.SourceOCR
	Candidates []Candidate
	Pages      int
	Duration   time.Duration
}

type Selector struct {
	cfg        Config
	normalizer *imaging.Normalizer
	recognizer Recognizer
	runner     Runner
	logger     *slog.Logger
}

type Option func(*Selector)

// WithRunner replaces the command runner used for PDF rasterization.
func WithRunner(r Runner) Option {
	return func(s *Selector) {
		if r != nil {
			s.runner = r
		}
	}
}

func NewSelector(cfg Config, normalizer *imaging.Normalizer, recognizer Recognizer, logger *slog.Logger, opts ...Option) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	if normalizer == nil {
		normalizer = imaging.NewNormalizer(imaging.Config{})
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.HEICConverter == "" {
		cfg.HEICConverter = "magick"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextLayerChars <= 0 {
		cfg.MinTextLayerChars = 50
	}
	s := &Selector{cfg: cfg, normalizer: normalizer, recognizer: recognizer, runner: ExecRunner{}, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Recognize produces the canonical text for the file at path.
// PDFs with a usable text layer skip image recognition entirely.
func (s *Selector) Recognize(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		return Result{}, common.RecognitionError("source file unreadable", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	var pages []image.Image
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		text, n, err := TextLayer(path, s.cfg.MaxPages)
		if err != nil {
			s.logger.Warn("ocr.text_layer.failed", "path", path, "error", err)
		} else if countNonSpace(text) >= s.cfg.MinTextLayerChars {
			s.logger.Info("ocr.text_layer.used", "path", path, "pages", n, "chars", len(text))
			return Result{
				Text:     CleanText(text),
				RawText:  text,
				Source:   constants.SourceTextLayer,
				Pages:    n,
				Duration: time.Since(start),
			}, nil
		}

		files, cleanup, err := s.rasterize(ctx, path)
		defer cleanup()
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, common.TransportError("pdftoppm", ctx.Err())
			}
			return Result{}, common.RecognitionError("rasterize pdf", err)
		}
		for _, f := range files {
			img, err := imaging.DecodeFile(f)
			if err != nil {
				return Result{}, common.RecognitionError("decode rendered page", err)
			}
			pages = append(pages, img)
		}
	case constants.IMAGE:
		src := path
		if constants.IsHEICExt(ext) {
			converted, cleanup, err := s.convertHEIC(ctx, path)
			defer cleanup()
			if err != nil {
				if ctx.Err() != nil {
					return Result{}, common.TransportError(s.cfg.HEICConverter, ctx.Err())
				}
				return Result{}, common.RecognitionError("convert heic", err)
			}
			src = converted
		}
		img, err := imaging.DecodeFile(src)
		if err != nil {
			return Result{}, common.RecognitionError("source image unreadable", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
		}
		pages = append(pages, img)
	default:
		return Result{}, common.RecognitionError("unsupported file type", common.InvalidInputf("extension %q", ext))
	}

	res, err := s.recognizePages(ctx, pages)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	s.logger.Info("ocr.candidates.selected",
		"path", path,
		"pages", res.Pages,
		"variant", res.Variant,
		"candidates", len(res.Candidates),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// recognizePages runs every rendering of every page through the recognizer.
// A variant that fails on any page is dropped as a whole.
func (s *Selector) recognizePages(ctx context.Context, pages []image.Image) (Result, error) {
	order := []constants.Variant{constants.VariantRaw, constants.VariantMild, constants.VariantStrong}
	texts := make(map[constants.Variant][]string, len(order))
	failed := make(map[constants.Variant]bool, len(order))
	var errs []error

	for pi, page := range pages {
		for _, r := range s.normalizer.Variants(page) {
			if failed[r.Variant] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return Result{}, common.TransportError("ocr", err)
			}
			png, err := imaging.EncodePNG(r.Image)
			if err == nil {
				var txt string
				txt, err = s.recognizer.Recognize(ctx, png)
				if err == nil {
					texts[r.Variant] = append(texts[r.Variant], txt)
					continue
				}
			}
			if errors.Is(err, common.ErrTransport) {
				return Result{}, err
			}
			s.logger.Warn("ocr.variant.failed", "page", pi+1, "variant", r.Variant, "error", err)
			failed[r.Variant] = true
			errs = append(errs, err)
		}
	}

	var cands []Candidate
	for _, v := range order {
		if failed[v] {
			continue
		}
		pageTexts, ok := texts[v]
		if !ok {
			continue
		}
		text := strings.Join(pageTexts, pageBreak)
		cands = append(cands, Candidate{Variant: v, Text: text, Score: Score(text)})
	}
	if len(cands) == 0 {
		return Result{}, common.RecognitionError("no rendering could be recognized", errors.Join(errs...))
	}

	best := cands[SelectBest(cands)]
	res := Result{
		Text:       CleanText(best.Text),
		Variant:    best.Variant,
		Source:     constants.SourceOCR,
		Candidates: cands,
		Pages:      len(pages),
	}
	for _, c := range cands {
		if c.Variant == constants.VariantRaw {
			res.RawText = c.Text
		}
	}
	return res, nil
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
