package llm

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// VertexEngine talks to Gemini through Vertex AI. It holds one
// pre-configured generative model per pipeline stage.
type VertexEngine struct {
	stageModels map[Stage]*genai.GenerativeModel
	baseClient  *genai.Client
}

// NewVertexEngine creates a Vertex-backed engine for the given model id.
func NewVertexEngine(ctx context.Context, projectID, region, modelID string) (*VertexEngine, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexEngine: projectID and region cannot be empty")
	}
	if modelID == "" {
		return nil, fmt.Errorf("NewVertexEngine: modelID cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
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
		m.GenerationConfig = genai.GenerationConfig{
			// Force JSON output; every stage parses a structured response.
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.2),
			TopP:             genai.Ptr[float32](0.8),
			MaxOutputTokens:  genai.Ptr[int32](8192),
		}
		m.SafetySettings = []*genai.SafetySetting{
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		}
		stageModels[stage] = m
	}

	return &VertexEngine{
		stageModels: stageModels,
		baseClient:  baseClient,
	}, nil
}

// Generate submits the frames and instruction to the stage's model and
// returns the raw structured text of the response.
func (e *VertexEngine) Generate(ctx context.Context, stage Stage, req Request) (string, error) {
	model, ok := e.stageModels[stage]
	if !ok {
		return "", fmt.Errorf("vertex engine: unknown stage %q", stage)
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

	text := extractText(resp)
	if text == "" {
		return "", &models.MalformedResponseError{
			Stage: string(stage),
			Err:   fmt.Errorf("empty model response"),
		}
	}
	return text, nil
}

func (e *VertexEngine) Close() error {
	if e.baseClient != nil {
		return e.baseClient.Close()
	}
	return nil
}

// extractText robustly gets the text content from the model response,
// concatenating multiple text parts if present.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out += string(txt)
		}
	}
	return stripFences(out)
}
