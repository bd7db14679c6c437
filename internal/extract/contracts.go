package extract

import (
	"github.com/zainab-noor-25/invoice-api/internal/grounding"
	"github.com/zainab-noor-25/invoice-api/internal/quality"
)

// Input is the recognized text of one document.
type Input struct {
	Text    string // cleaned canonical text
	RawText string // uncleaned text, preferred when present
}

// Report describes how the fields were produced.
type Report struct {
	Verdict     quality.Verdict       `json:"verdict"`
	ModelCalled bool                  `json:"model_called"`
	ModelFailed bool                  `json:"model_failed"` // completion could not be parsed
	Filled      []string              `json:"filled,omitempty"`
	Rejections  []grounding.Rejection `json:"rejections,omitempty"`
}
