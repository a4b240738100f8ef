package services

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// DetectionResult is the per-concept detection outcome handed to
// BuildLedger. Err is set when the detection stage failed for the
// concept after retries (or never completed before cancellation).
type DetectionResult struct {
	Mistakes []models.Mistake
	Err      error
}

// BuildLedger combines extractor, mapper and detector outputs into one
// ledger entry per concept, in extraction order. The function is pure:
// identical inputs yield a byte-identical ledger.
func BuildLedger(concepts []models.Concept, mapping models.ConceptMapping, results map[string]DetectionResult) (models.AnalysisLedger, []models.Warning) {
	entries := make([]models.LedgerEntry, 0, len(concepts))
	var warnings []models.Warning

	for _, concept := range concepts {
		refs := mapping.QuestionsFor(concept)
		result := results[concept.Key()]

		if result.Err != nil {
			entries = append(entries, unavailableEntry(concept, refs, result.Err))
			continue
		}

		mistakes, dropped := clampMistakes(concept, refs, result.Mistakes)
		warnings = append(warnings, dropped...)

		entries = append(entries, models.LedgerEntry{
			Concept:      concept.Name,
			TestedCount:  len(refs),
			MistakeCount: len(mistakes),
			Mistakes:     mistakes,
			Summary:      summaryLine(len(refs), mistakes),
			Detail:       detailLines(mistakes),
		})
	}
	return models.AnalysisLedger{Entries: entries}, warnings
}

// clampMistakes drops any mistake referencing a question outside the
// concept's mapped set (a cross-concept leak from the model) and any
// repeated reference, warning on each drop.
func clampMistakes(concept models.Concept, refs []models.QuestionRef, mistakes []models.Mistake) ([]models.Mistake, []models.Warning) {
	inSet := make(map[models.QuestionRef]struct{}, len(refs))
	for _, r := range refs {
		inSet[r] = struct{}{}
	}

	var warnings []models.Warning
	seen := make(map[models.QuestionRef]struct{}, len(mistakes))
	kept := make([]models.Mistake, 0, len(mistakes))
	for _, m := range mistakes {
		if _, ok := inSet[m.Question]; !ok {
			slog.Warn("Dropping mistake outside the concept's mapped question set.",
				"concept", concept.Name, "question", m.Question)
			warnings = append(warnings, models.Warning{
				Stage:   models.StageAggregate,
				Concept: concept.Name,
				Message: fmt.Sprintf("dropped mistake for question %q not mapped to this concept", m.Question),
			})
			continue
		}
		if _, ok := seen[m.Question]; ok {
			continue
		}
		seen[m.Question] = struct{}{}
		kept = append(kept, m)
	}
	return kept, warnings
}

func unavailableEntry(concept models.Concept, refs []models.QuestionRef, err error) models.LedgerEntry {
	summary := "Analysis unavailable"
	if len(refs) > 0 {
		summary = fmt.Sprintf("Tested %d times - Analysis unavailable", len(refs))
	}
	return models.LedgerEntry{
		Concept:           concept.Name,
		TestedCount:       len(refs),
		Unavailable:       true,
		UnavailableReason: err.Error(),
		Summary:           summary,
		Detail:            "Analysis unavailable",
	}
}

// summaryLine renders the one-line per-concept summary.
func summaryLine(tested int, mistakes []models.Mistake) string {
	if tested == 0 {
		return "Not tested in this paper"
	}
	if len(mistakes) == 0 {
		return fmt.Sprintf("Tested %d times - No mistakes", tested)
	}
	labels := make([]string, len(mistakes))
	for i, m := range mistakes {
		labels[i] = string(m.Question)
	}
	return fmt.Sprintf("Tested %d times - Mistakes %d times (Q.No %s)", tested, len(mistakes), strings.Join(labels, ", "))
}

// detailLines renders the multi-line mistake breakdown, one line per
// mistake in detection order.
func detailLines(mistakes []models.Mistake) string {
	if len(mistakes) == 0 {
		return "No detailed analysis needed (no mistakes)"
	}
	lines := make([]string, len(mistakes))
	for i, m := range mistakes {
		lines[i] = fmt.Sprintf("%s: %s", m.Question, m.Description)
	}
	return strings.Join(lines, "\n")
}
