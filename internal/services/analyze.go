package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Geethss/Student-perfomance-Analyser/internal/gcp"
	"github.com/Geethss/Student-perfomance-Analyser/internal/llm"
	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// AnalyzeConfig holds configuration for the analyzer-api service.
type AnalyzeConfig struct {
	ProjectID      string
	VertexAIRegion string
	GeminiAPIKey   string
	DefaultModelID string
}

// AnalyzeFunction holds the dependencies for the HTTP analyze surface.
type AnalyzeFunction struct {
	analyzer *Analyzer
	config   AnalyzeConfig
}

// loadAnalyzeConfig loads and validates the environment for this service.
func loadAnalyzeConfig() (*AnalyzeConfig, error) {
	config := &AnalyzeConfig{
		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		GeminiAPIKey:   gcp.GetEnv("GEMINI_API_KEY", ""),
		DefaultModelID: gcp.GetEnv("GEMINI_MODEL", "gemini-2.5-pro"),
	}
	if config.ProjectID == "" && config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("either PROJECT_ID or GEMINI_API_KEY must be set")
	}
	return config, nil
}

// EngineFactory builds the per-run model client. The API-key engine is
// preferred when a key is configured, otherwise Vertex AI is used.
func EngineFactory(config AnalyzeConfig) ClientFactory {
	return func(ctx context.Context, modelID string) (llm.Client, error) {
		if modelID == "" {
			modelID = config.DefaultModelID
		}
		if config.GeminiAPIKey != "" {
			return llm.NewGeminiEngine(ctx, config.GeminiAPIKey, modelID)
		}
		return llm.NewVertexEngine(ctx, config.ProjectID, config.VertexAIRegion, modelID)
	}
}

// pipelineConfig reads the explicit pipeline parameters from the
// environment once, at the service edge.
func pipelineConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Retry: RetryConfig{
			MaxAttempts:    envInt("ANALYSIS_RETRY_ATTEMPTS", defaultMaxAttempts),
			InitialBackoff: time.Duration(envInt("ANALYSIS_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
		},
		Normalizer: NormalizerConfig{
			MaxImageDimension: envInt("MAX_IMAGE_DIMENSION", defaultMaxImageDimension),
		},
		MaxConcurrentDetections: envInt("MAX_CONCURRENT_DETECTIONS", defaultMaxConcurrentDetections),
	}
}

func envInt(key string, fallback int) int {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("Ignoring invalid integer environment value.", "key", key, "value", raw)
		return fallback
	}
	return v
}

// NewAnalyzeFunction creates a new AnalyzeFunction instance.
func NewAnalyzeFunction() (*AnalyzeFunction, error) {
	config, err := loadAnalyzeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &AnalyzeFunction{
		analyzer: NewAnalyzer(EngineFactory(*config), pipelineConfig()),
		config:   *config,
	}, nil
}

// Process runs one analysis for the UI: categorized uploads in, ledger
// plus warnings out.
func (f *AnalyzeFunction) Process(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	runID := uuid.NewString()
	logCtx := slog.With("runId", runID, "modelId", req.ModelID)
	logCtx.Info("Starting analysis run.", "documents", len(req.Documents))

	docsByCategory := make(map[models.DocumentCategory][]models.RawDocument)
	for i, upload := range req.Documents {
		docsByCategory[upload.Category] = append(docsByCategory[upload.Category], models.RawDocument{
			ID:       fmt.Sprintf("%s/%d", runID, i+1),
			Category: upload.Category,
			Filename: upload.Filename,
			MIMEType: upload.MIMEType,
			Data:     upload.Data,
		})
	}

	ledger, warnings, err := f.analyzer.Analyze(ctx, docsByCategory, req.ModelID)
	if err != nil {
		logCtx.Error("Analysis run failed.", "error", err)
		return nil, err
	}

	logCtx.Info("Analysis run complete.", "concepts", len(ledger.Entries), "warnings", len(warnings))
	return &models.AnalyzeResponse{
		RunID:    runID,
		Ledger:   ledger,
		Warnings: warnings,
	}, nil
}
