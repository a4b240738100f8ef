package models

import "strings"

// Concept is a pedagogical skill tracked by the analysis sheet. Name is
// the label as the model reported it; extraction order is carried by the
// position in the extracted slice.
type Concept struct {
	Name string `json:"name"`
}

// Key returns the case/whitespace-insensitive identity of a concept.
// Two names with the same key are the same concept.
func (c Concept) Key() string {
	return NormalizeConceptKey(c.Name)
}

// NormalizeConceptKey lowercases a concept name and collapses all
// interior whitespace runs to single spaces.
func NormalizeConceptKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// QuestionRef is an opaque question label reported by the model, scoped
// to one analysis run. Labels are preserved verbatim; they are echoed
// back to the user in mistake summaries.
type QuestionRef string

// ConceptMapping associates a concept (by normalized key) with the
// ordered set of questions that exercise it. A concept mapped to zero
// questions is a valid terminal state.
type ConceptMapping map[string][]QuestionRef

// QuestionsFor returns the mapped question set for a concept, in the
// order the model reported them.
func (m ConceptMapping) QuestionsFor(c Concept) []QuestionRef {
	return m[c.Key()]
}

// Mistake records one incorrectly answered question and a short
// diagnostic description of the error.
type Mistake struct {
	Question    QuestionRef `json:"question"`
	Description string      `json:"description"`
}

// LedgerEntry is the per-concept row of the final report. When the
// detection stage failed for the concept, Unavailable is set, Mistakes
// is empty and TestedCount is still populated from the mapping.
type LedgerEntry struct {
	Concept           string    `json:"concept"`
	TestedCount       int       `json:"testedCount"`
	MistakeCount      int       `json:"mistakeCount"`
	Mistakes          []Mistake `json:"mistakes,omitempty"`
	Unavailable       bool      `json:"unavailable,omitempty"`
	UnavailableReason string    `json:"unavailableReason,omitempty"`
	Summary           string    `json:"summary"`
	Detail            string    `json:"detail"`
}

// AnalysisLedger is the sole artifact handed to the reporting layer:
// one entry per extracted concept, in extraction order.
type AnalysisLedger struct {
	Entries []LedgerEntry `json:"entries"`
}
