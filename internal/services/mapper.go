package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Geethss/Student-perfomance-Analyser/internal/llm"
	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// QuestionMapper turns question-paper frames and a concept list into a
// concept-to-questions mapping with a single model call.
type QuestionMapper struct {
	client llm.Client
	retry  RetryConfig
}

// NewQuestionMapper creates a QuestionMapper.
func NewQuestionMapper(client llm.Client, retry RetryConfig) *QuestionMapper {
	return &QuestionMapper{client: client, retry: retry}
}

// MapQuestions classifies every identified question against the concept
// set. Question labels are preserved verbatim; an empty set for a
// concept is valid (the concept was simply not tested).
func (m *QuestionMapper) MapQuestions(ctx context.Context, frames []models.Frame, concepts []models.Concept) (models.ConceptMapping, []models.Warning, error) {
	if len(concepts) == 0 {
		return models.ConceptMapping{}, nil, nil
	}

	raw, err := withRetry(ctx, m.retry, string(llm.StageMapper), func(ctx context.Context) (map[string][]models.QuestionRef, error) {
		text, err := m.client.Generate(ctx, llm.StageMapper, llm.Request{
			Frames:      frames,
			Instruction: llm.MapperInstruction(concepts),
		})
		if err != nil {
			return nil, err
		}
		return parseMapping(text)
	})
	if err != nil {
		return nil, nil, err
	}

	// Reconcile the model's keys against the extracted concept set.
	// Keys that normalize to an unknown concept are dropped with a
	// warning; they indicate the model invented a concept.
	known := make(map[string]struct{}, len(concepts))
	for _, c := range concepts {
		known[c.Key()] = struct{}{}
	}

	mapping := make(models.ConceptMapping, len(concepts))
	var warnings []models.Warning
	for name, refs := range raw {
		key := models.NormalizeConceptKey(name)
		if _, ok := known[key]; !ok {
			slog.Warn("Mapper reported an unknown concept, dropping it.", "concept", name)
			warnings = append(warnings, models.Warning{
				Stage:   models.StageMap,
				Concept: name,
				Message: "mapper reported a concept absent from the analysis sheet",
			})
			continue
		}
		mapping[key] = dedupeRefs(append(mapping[key], refs...))
	}
	return mapping, warnings, nil
}

// parseMapping decodes the model's concept→labels object. Labels may
// come back as JSON strings or bare numbers; both are preserved
// verbatim as opaque refs.
func parseMapping(text string) (map[string][]models.QuestionRef, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var raw map[string][]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &models.MalformedResponseError{Stage: string(llm.StageMapper), Err: err}
	}

	out := make(map[string][]models.QuestionRef, len(raw))
	for name, labels := range raw {
		refs := make([]models.QuestionRef, 0, len(labels))
		for _, label := range labels {
			switch v := label.(type) {
			case string:
				refs = append(refs, models.QuestionRef(v))
			case json.Number:
				refs = append(refs, models.QuestionRef(v.String()))
			default:
				return nil, &models.MalformedResponseError{
					Stage: string(llm.StageMapper),
					Err:   fmt.Errorf("question label for %q is %T, expected string or number", name, label),
				}
			}
		}
		out[name] = refs
	}
	return out, nil
}

// dedupeRefs drops repeated labels, keeping first-appearance order.
func dedupeRefs(refs []models.QuestionRef) []models.QuestionRef {
	seen := make(map[models.QuestionRef]struct{}, len(refs))
	out := make([]models.QuestionRef, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
