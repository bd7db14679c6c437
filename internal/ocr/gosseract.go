//go:build gosseract

package ocr

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/zainab-noor-25/invoice-api/internal/common"
)

// Gosseract recognizes pages in-process through libtesseract.
type Gosseract struct {
	langs         []string
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

// NewGosseract is only functional in binaries built with -tags gosseract.
func NewGosseract(lang string, logger *slog.Logger) (Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	langs := strings.Split(lang, "+")
	return &Gosseract{langs: langs, clientFactory: gosseract.NewClient, logger: logger}, nil
}

func (g *Gosseract) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", common.TransportError("gosseract", err)
	}
	c := g.clientFactory()
	defer func() {
		if err := c.Close(); err != nil {
			g.logger.Warn("ocr.gosseract.close_failed", "error", err)
		}
	}()
	if err := c.SetLanguage(g.langs...); err != nil {
		return "", common.RecognitionError("gosseract: set language", err)
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return "", common.RecognitionError("gosseract: set image", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", common.RecognitionError("gosseract: recognize", err)
	}
	return text, nil
}
