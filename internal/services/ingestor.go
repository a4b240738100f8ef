package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/Geethss/Student-perfomance-Analyser/internal/gcp"
	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// IngestorConfig holds configuration for the run-ingestor service.
type IngestorConfig struct {
	ProjectID      string
	ResultsBucket  string
	CollectionName string
}

// IngestorFunction runs an analysis whenever a run manifest lands in
// the intake bucket, and persists the resulting ledger.
type IngestorFunction struct {
	storageClient *storage.Client
	runs          *gcp.RunStore
	analyzer      *Analyzer
	config        IngestorConfig
}

// GCSEvent is the minimal shape of the storage notification payload.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// NewIngestor creates a new IngestorFunction instance.
func NewIngestor(ctx context.Context) (*IngestorFunction, error) {
	analyzeConfig, err := loadAnalyzeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config := IngestorConfig{
		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		ResultsBucket:  gcp.GetEnv("RESULTS_BUCKET", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "analysis-runs"),
	}
	if config.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if config.ResultsBucket == "" {
		return nil, fmt.Errorf("RESULTS_BUCKET environment variable must be set")
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	f := &IngestorFunction{
		storageClient: storageClient,
		runs:          gcp.NewRunStore(firestoreClient, config.CollectionName),
		analyzer:      NewAnalyzer(EngineFactory(*analyzeConfig), pipelineConfig()),
		config:        config,
	}
	slog.Info("Run ingestor initialized.", "resultsBucket", config.ResultsBucket)
	return f, nil
}

// Process handles one manifest upload end to end: download documents,
// run the pipeline, persist the ledger, track the run in Firestore.
func (f *IngestorFunction) Process(ctx context.Context, e GCSEvent) error {
	if !strings.HasSuffix(e.Name, ".json") {
		slog.Info("Ignoring non-manifest object.", "gcsBucket", e.Bucket, "gcsObject", e.Name)
		return nil
	}
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing run manifest.")

	manifestData, err := gcp.ReadGCSObject(ctx, f.storageClient, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download manifest", "error", err)
		return err
	}
	var manifest models.RunManifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		logCtx.Error("Failed to unmarshal manifest", "error", err)
		return fmt.Errorf("invalid run manifest %s: %w", e.Name, err)
	}
	if manifest.RunID == "" {
		manifest.RunID = uuid.NewString()
	}
	logCtx = logCtx.With("runId", manifest.RunID)

	docRef, err := f.runs.CreateRun(ctx, manifest.RunID, manifest.ModelID)
	if err != nil {
		logCtx.Error("Failed to create run record", "error", err)
		return err
	}

	docsByCategory, err := f.downloadDocuments(ctx, manifest)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to download run documents", err)
	}

	ledger, warnings, err := f.analyzer.Analyze(ctx, docsByCategory, manifest.ModelID)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "analysis failed", err)
	}

	result, err := json.Marshal(models.AnalyzeResponse{
		RunID:    manifest.RunID,
		Ledger:   ledger,
		Warnings: warnings,
	})
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal ledger", err)
	}

	objectName := fmt.Sprintf("%s/ledger.json", manifest.RunID)
	bucketHandle := f.storageClient.Bucket(f.config.ResultsBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucketHandle, objectName, result); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to save ledger", err)
	}

	ledgerURI := fmt.Sprintf("gs://%s/%s", f.config.ResultsBucket, objectName)
	if err := f.runs.CompleteRun(ctx, docRef, ledger, len(warnings), ledgerURI); err != nil {
		logCtx.Error("Failed to mark run complete", "error", err)
		return err
	}

	logCtx.Info("Run complete.", "ledgerUri", ledgerURI, "concepts", len(ledger.Entries), "warnings", len(warnings))
	return nil
}

func (f *IngestorFunction) downloadDocuments(ctx context.Context, manifest models.RunManifest) (map[models.DocumentCategory][]models.RawDocument, error) {
	docsByCategory := make(map[models.DocumentCategory][]models.RawDocument)
	for _, doc := range manifest.Documents {
		data, err := gcp.ReadGCSObject(ctx, f.storageClient, doc.Bucket, doc.Object)
		if err != nil {
			return nil, err
		}
		docsByCategory[doc.Category] = append(docsByCategory[doc.Category], models.RawDocument{
			ID:       doc.Object,
			Category: doc.Category,
			Filename: doc.Object,
			MIMEType: doc.MIMEType,
			Data:     data,
		})
	}
	return docsByCategory, nil
}

func (f *IngestorFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.runs.FailRun(ctx, docRef, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update run status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}
