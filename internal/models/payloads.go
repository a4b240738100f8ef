package models

// These structs define the JSON payloads exchanged with the UI and the
// GCS-triggered ingestion flow.

// DocumentUpload is one file in an analyze request. Data is base64 in
// transit (encoding/json handles []byte as base64 transparently).
type DocumentUpload struct {
	Category DocumentCategory `json:"category"`
	Filename string           `json:"filename"`
	MIMEType string           `json:"mimeType"`
	Data     []byte           `json:"data"`
}

// AnalyzeRequest is the input of the analyzer-api function.
type AnalyzeRequest struct {
	ModelID   string           `json:"modelId"`
	Documents []DocumentUpload `json:"documents"`
}

// AnalyzeResponse is the output of the analyzer-api function.
type AnalyzeResponse struct {
	RunID    string         `json:"runId"`
	Ledger   AnalysisLedger `json:"ledger"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

// ManifestDocument names one GCS object belonging to a run manifest.
type ManifestDocument struct {
	Category DocumentCategory `json:"category"`
	Bucket   string           `json:"bucket"`
	Object   string           `json:"object"`
	MIMEType string           `json:"mimeType"`
}

// RunManifest is the JSON object uploaded to the intake bucket that
// triggers the run-ingestor function.
type RunManifest struct {
	RunID     string             `json:"runId"`
	ModelID   string             `json:"modelId"`
	Documents []ManifestDocument `json:"documents"`
}
