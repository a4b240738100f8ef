package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// RunStore tracks analysis runs in a Firestore collection.
type RunStore struct {
	client     *firestore.Client
	collection string
}

// NewRunStore creates a RunStore over the given collection.
func NewRunStore(client *firestore.Client, collection string) *RunStore {
	return &RunStore{client: client, collection: collection}
}

// CreateRun records a new run in PROCESSING state.
func (s *RunStore) CreateRun(ctx context.Context, runID, modelID string) (*firestore.DocumentRef, error) {
	docRef := s.client.Collection(s.collection).Doc(runID)
	_, err := docRef.Set(ctx, models.AnalysisRun{
		RunID:     runID,
		ModelID:   modelID,
		Status:    "PROCESSING",
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}
	return docRef, nil
}

// CompleteRun marks a run COMPLETED with its result summary.
func (s *RunStore) CompleteRun(ctx context.Context, docRef *firestore.DocumentRef, ledger models.AnalysisLedger, warningCount int, ledgerURI string) error {
	mistakeTotal := 0
	for _, e := range ledger.Entries {
		mistakeTotal += e.MistakeCount
	}
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "status", Value: "COMPLETED"},
		{Path: "conceptCount", Value: len(ledger.Entries)},
		{Path: "mistakeTotal", Value: mistakeTotal},
		{Path: "warningCount", Value: warningCount},
		{Path: "ledgerGcsUri", Value: ledgerURI},
		{Path: "completedAt", Value: time.Now()},
	})
	return err
}

// FailRun marks a run FAILED with the error details.
func (s *RunStore) FailRun(ctx context.Context, docRef *firestore.DocumentRef, details string) error {
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "status", Value: "FAILED"},
		{Path: "errorDetails", Value: details},
		{Path: "completedAt", Value: time.Now()},
	})
	return err
}
