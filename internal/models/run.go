package models

import "time"

// AnalysisRun is the Firestore record tracking one analysis run through
// the ingestion flow.
type AnalysisRun struct {
	RunID        string    `firestore:"runId,omitempty"`
	ModelID      string    `firestore:"modelId,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	ConceptCount int       `firestore:"conceptCount,omitempty"`
	MistakeTotal int       `firestore:"mistakeTotal,omitempty"`
	WarningCount int       `firestore:"warningCount,omitempty"`
	LedgerGCSUri string    `firestore:"ledgerGcsUri,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
	CompletedAt  time.Time `firestore:"completedAt,omitempty"`
}
