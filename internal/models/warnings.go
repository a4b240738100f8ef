package models

// WarningStage names the pipeline stage that produced a warning.
type WarningStage string

const (
	StageNormalize WarningStage = "normalize"
	StageExtract   WarningStage = "extract"
	StageMap       WarningStage = "map"
	StageDetect    WarningStage = "detect"
	StageAggregate WarningStage = "aggregate"
)

// Warning is a non-fatal data-quality or availability note attached to
// an analysis run. Per-document and per-concept failures surface here
// instead of aborting the run.
type Warning struct {
	Stage    WarningStage `json:"stage"`
	Document string       `json:"document,omitempty"`
	Concept  string       `json:"concept,omitempty"`
	Message  string       `json:"message"`
}
