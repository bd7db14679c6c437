//go:build !gosseract

package ocr

import (
	"log/slog"

	"github.com/zainab-noor-25/invoice-api/internal/common"
)

// NewGosseract reports that this binary was built without libtesseract support.
func NewGosseract(_ string, _ *slog.Logger) (Recognizer, error) {
	return nil, common.InvalidInputf("OCR_ENGINE=gosseract requires building with -tags gosseract")
}
