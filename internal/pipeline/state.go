package pipeline

import (
	"github.com/google/uuid"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
	"github.com/zainab-noor-25/invoice-api/internal/extract"
	"github.com/zainab-noor-25/invoice-api/internal/ocr"
)

// State is the accumulator for one run. Every stage receives it by value and
// returns the updated copy; once Err is set later stages pass it through untouched.
type State struct {
	DocumentID uuid.UUID
	FilePath   string
	Stage      constants.Stage
	FailedAt   constants.Stage // stage that set Err

	OCR    ocr.Result
	Fields entity.ExtractedFields
	Report extract.Report
	Chunks int

	Err error
}

func (s State) Failed() bool { return s.Err != nil }

func (s State) fail(stage constants.Stage, err error) State {
	s.Err = err
	s.FailedAt = stage
	s.Stage = constants.StageFailed
	return s
}

// Result is what gets persisted for the run.
func (s State) Result() entity.ProcessResult {
	if s.Err != nil {
		msg := s.Err.Error()
		return entity.ProcessResult{Status: constants.StatusError, Error: &msg}
	}
	return entity.ProcessResult{
		Status:     constants.StatusFieldsExtracted,
		OCRText:    s.OCR.Text,
		OCRRawText: s.OCR.RawText,
		OCRVariant: string(s.OCR.Variant),
		Fields:     s.Fields,
		ChunkCount: s.Chunks,
	}
}
