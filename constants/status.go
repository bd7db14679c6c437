package constants

// DocumentStatus is the lifecycle status stored on an invoice record.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	StatusUploaded        DocumentStatus = "uploaded"         // file stored, not processed yet
	StatusProcessing      DocumentStatus = "processing"       // picked up by a worker
	StatusFieldsExtracted DocumentStatus = "fields_extracted" // pipeline reached done
	StatusError           DocumentStatus = "error"            // terminal failure, message kept on the record
)

// Stage names the pipeline controller states.
type Stage string

const (
	StageStart      Stage = "start"
	StageOCR        Stage = "ocr"
	StageExtract    Stage = "extract"
	StageChunkEmbed Stage = "chunk_embed"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Variant tags an image rendering fed to the recognition engine.
type Variant string

const (
	VariantRaw    Variant = "raw"
	VariantMild   Variant = "mild"
	VariantStrong Variant = "strong"
)

// Text sources recorded on an OCR result.
const (
	SourceTextLayer = "text_layer"
	SourceOCR       = "ocr"
)
