package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Geethss/Student-perfomance-Analyser/internal/llm"
	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// ConceptExtractor turns analysis-sheet frames into an ordered,
// deduplicated concept list with a single model call.
type ConceptExtractor struct {
	client llm.Client
	retry  RetryConfig
}

// NewConceptExtractor creates a ConceptExtractor.
func NewConceptExtractor(client llm.Client, retry RetryConfig) *ConceptExtractor {
	return &ConceptExtractor{client: client, retry: retry}
}

// ExtractConcepts issues one request with all frames attached and parses
// the structured response. An empty list is a valid zero-concept run and
// is surfaced as a warning, not an error.
func (x *ConceptExtractor) ExtractConcepts(ctx context.Context, frames []models.Frame) ([]models.Concept, []models.Warning, error) {
	names, err := withRetry(ctx, x.retry, string(llm.StageExtractor), func(ctx context.Context) ([]string, error) {
		text, err := x.client.Generate(ctx, llm.StageExtractor, llm.Request{
			Frames:      frames,
			Instruction: llm.ExtractorUserPrompt,
		})
		if err != nil {
			return nil, err
		}
		var names []string
		if err := json.Unmarshal([]byte(text), &names); err != nil {
			return nil, &models.MalformedResponseError{Stage: string(llm.StageExtractor), Err: err}
		}
		return names, nil
	})
	if err != nil {
		return nil, nil, err
	}

	concepts := dedupeConcepts(names)
	var warnings []models.Warning
	if len(concepts) == 0 {
		slog.Warn("Analysis sheet yielded no concepts.")
		warnings = append(warnings, models.Warning{
			Stage:   models.StageExtract,
			Message: "no concepts found on the analysis sheet",
		})
	}
	return concepts, warnings, nil
}

// dedupeConcepts collapses names that normalize to the same key,
// keeping the order of first appearance. Blank names are dropped.
func dedupeConcepts(names []string) []models.Concept {
	seen := make(map[string]struct{}, len(names))
	concepts := make([]models.Concept, 0, len(names))
	for _, name := range names {
		c := models.Concept{Name: name}
		key := c.Key()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		concepts = append(concepts, c)
	}
	return concepts
}
