package models

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat marks an upload whose type could not be
// classified as image or paged document. Per-document, non-fatal.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// CorruptDocumentError marks an upload that raised a decode error
// during normalization. Per-document, non-fatal: siblings proceed.
type CorruptDocumentError struct {
	DocumentID string
	Err        error
}

func (e *CorruptDocumentError) Error() string {
	return fmt.Sprintf("corrupt document %s: %v", e.DocumentID, e.Err)
}

func (e *CorruptDocumentError) Unwrap() error { return e.Err }

// MalformedResponseError marks a model response that could not be
// parsed into the expected structure. Transient: the call is retried.
type MalformedResponseError struct {
	Stage string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Stage, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// EvaluationIncompleteError marks a detection response that covered
// fewer questions than the concept's mapped set. Non-fatal: partial
// results are kept and the gap is surfaced as a warning.
type EvaluationIncompleteError struct {
	Concept string
	Missing []QuestionRef
}

func (e *EvaluationIncompleteError) Error() string {
	return fmt.Sprintf("evaluation incomplete for %q: %d question(s) unjudged", e.Concept, len(e.Missing))
}

// AnalysisUnavailableError marks a model call whose retry budget is
// exhausted. It carries the last underlying error; the affected concept
// or stage is recorded as failed and the run continues.
type AnalysisUnavailableError struct {
	Stage string
	Err   error
}

func (e *AnalysisUnavailableError) Error() string {
	return fmt.Sprintf("%s analysis unavailable: %v", e.Stage, e.Err)
}

func (e *AnalysisUnavailableError) Unwrap() error { return e.Err }

// QuotaOrAuthError marks an authentication or quota failure. Fatal: no
// subsequent call can succeed, so the whole run aborts immediately
// without consuming retry budget.
type QuotaOrAuthError struct {
	Err error
}

func (e *QuotaOrAuthError) Error() string {
	return fmt.Sprintf("quota or auth failure: %v", e.Err)
}

func (e *QuotaOrAuthError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort the entire run.
func IsFatal(err error) bool {
	var qa *QuotaOrAuthError
	return errors.As(err, &qa)
}
