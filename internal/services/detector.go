package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Geethss/Student-perfomance-Analyser/internal/llm"
	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// MistakeDetector judges, for one concept, which of its mapped
// questions the student answered incorrectly.
type MistakeDetector struct {
	client llm.Client
	retry  RetryConfig
}

// NewMistakeDetector creates a MistakeDetector.
func NewMistakeDetector(client llm.Client, retry RetryConfig) *MistakeDetector {
	return &MistakeDetector{client: client, retry: retry}
}

// judgement is the per-question verdict shape expected from the model.
type judgement struct {
	Correct bool   `json:"correct"`
	Mistake string `json:"mistake"`
}

// DetectMistakes asks the model to judge each mapped question for the
// concept. A question absent from the response is "not evaluable": it is
// excluded from the mistake list and surfaced as a data-quality warning,
// never silently counted as correct. Partial coverage keeps its partial
// results.
func (d *MistakeDetector) DetectMistakes(ctx context.Context, frames []models.Frame, concept models.Concept, refs []models.QuestionRef) ([]models.Mistake, []models.Warning, error) {
	if len(refs) == 0 {
		return nil, nil, nil
	}

	judged, err := withRetry(ctx, d.retry, string(llm.StageDetector), func(ctx context.Context) (map[string]judgement, error) {
		text, err := d.client.Generate(ctx, llm.StageDetector, llm.Request{
			Frames:      frames,
			Instruction: llm.DetectorInstruction(concept, refs),
		})
		if err != nil {
			return nil, err
		}
		var judged map[string]judgement
		if err := json.Unmarshal([]byte(text), &judged); err != nil {
			return nil, &models.MalformedResponseError{Stage: string(llm.StageDetector), Err: err}
		}
		return judged, nil
	})
	if err != nil {
		return nil, nil, err
	}

	var mistakes []models.Mistake
	var missing []models.QuestionRef
	inSet := make(map[models.QuestionRef]struct{}, len(refs))
	for _, ref := range refs {
		inSet[ref] = struct{}{}
		verdict, ok := judged[string(ref)]
		if !ok {
			missing = append(missing, ref)
			continue
		}
		if verdict.Correct {
			continue
		}
		description := verdict.Mistake
		if description == "" {
			description = "Error not specified"
		}
		mistakes = append(mistakes, models.Mistake{Question: ref, Description: description})
	}

	// Verdicts for questions outside the mapped set are passed through;
	// the aggregator clamps them against the mapping and warns.
	var extra []string
	for label := range judged {
		if _, ok := inSet[models.QuestionRef(label)]; !ok {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	for _, label := range extra {
		verdict := judged[label]
		if verdict.Correct {
			continue
		}
		description := verdict.Mistake
		if description == "" {
			description = "Error not specified"
		}
		mistakes = append(mistakes, models.Mistake{Question: models.QuestionRef(label), Description: description})
	}

	var warnings []models.Warning
	if len(missing) > 0 {
		incomplete := &models.EvaluationIncompleteError{Concept: concept.Name, Missing: missing}
		slog.Warn("Detection covered fewer questions than mapped.",
			"concept", concept.Name, "missing", len(missing))
		warnings = append(warnings, models.Warning{
			Stage:   models.StageDetect,
			Concept: concept.Name,
			Message: fmt.Sprintf("%v (unjudged: %s)", incomplete, joinRefs(missing)),
		})
	}
	return mistakes, warnings, nil
}

func joinRefs(refs []models.QuestionRef) string {
	out := ""
	for i, r := range refs {
		if i > 0 {
			out += ", "
		}
		out += string(r)
	}
	return out
}
