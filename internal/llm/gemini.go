package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// GeminiEngine talks to Gemini through the public API-key endpoint.
// It is the engine used when no GCP project is configured.
type GeminiEngine struct {
	stageModels map[Stage]*genai.GenerativeModel
	baseClient  *genai.Client
}

// NewGeminiEngine creates an API-key-backed engine for the given model id.
func NewGeminiEngine(ctx context.Context, apiKey, modelID string) (*GeminiEngine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("NewGeminiEngine: apiKey cannot be empty")
	}
	if modelID == "" {
		return nil, fmt.Errorf("NewGeminiEngine: modelID cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(apiKey)))
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	stageModels := make(map[Stage]*genai.GenerativeModel, 3)
	for stage, system := range map[Stage]string{
		StageExtractor: ExtractorSystemPrompt,
		StageMapper:    MapperSystemPrompt,
		StageDetector:  DetectorSystemPrompt,
	} {
		m := baseClient.GenerativeModel(modelID)
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
		m.ResponseMIMEType = "application/json"
		m.SetTemperature(0.2)
		m.SetTopP(0.8)
		m.SetMaxOutputTokens(8192)
		stageModels[stage] = m
	}

	return &GeminiEngine{
		stageModels: stageModels,
		baseClient:  baseClient,
	}, nil
}

// Generate submits the frames and instruction to the stage's model and
// returns the raw structured text of the response.
func (e *GeminiEngine) Generate(ctx context.Context, stage Stage, req Request) (string, error) {
	model, ok := e.stageModels[stage]
	if !ok {
		return "", fmt.Errorf("gemini engine: unknown stage %q", stage)
	}

	parts := make([]genai.Part, 0, len(req.Frames)+1)
	parts = append(parts, genai.Text(req.Instruction))
	for _, f := range req.Frames {
		parts = append(parts, genai.Blob{MIMEType: f.MIMEType, Data: f.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classify(err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &models.MalformedResponseError{
			Stage: string(stage),
			Err:   fmt.Errorf("empty model response"),
		}
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out += string(txt)
		}
	}
	text := stripFences(out)
	if text == "" {
		return "", &models.MalformedResponseError{
			Stage: string(stage),
			Err:   fmt.Errorf("empty model response"),
		}
	}
	return text, nil
}

func (e *GeminiEngine) Close() error {
	if e.baseClient != nil {
		return e.baseClient.Close()
	}
	return nil
}
