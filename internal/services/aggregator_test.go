package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

func scenarioInputs() ([]models.Concept, models.ConceptMapping, map[string]DetectionResult) {
	concepts := conceptList("Integration by Substitution", "Chain Rule")
	mapping := models.ConceptMapping{
		concepts[0].Key(): refs("2", "4", "9", "10"),
		concepts[1].Key(): refs("10"),
	}
	results := map[string]DetectionResult{
		concepts[0].Key(): {Mistakes: []models.Mistake{
			{Question: "2", Description: "Wrong substitution variable"},
			{Question: "4", Description: "Integration constant dropped"},
			{Question: "9", Description: "Bounds not transformed"},
			{Question: "10", Description: "Back-substitution skipped"},
		}},
		concepts[1].Key(): {Mistakes: []models.Mistake{
			{Question: "10", Description: "Inner derivative forgotten"},
		}},
	}
	return concepts, mapping, results
}

// TestBuildLedgerSummaryFormat checks the full two-concept scenario:
// tested/mistake counts and the formatted one-line summaries.
func TestBuildLedgerSummaryFormat(t *testing.T) {
	ledger, warnings := BuildLedger(scenarioInputs())
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(ledger.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(ledger.Entries))
	}

	first := ledger.Entries[0]
	if first.TestedCount != 4 || first.MistakeCount != 4 {
		t.Fatalf("unexpected counts: %+v", first)
	}
	if first.Summary != "Tested 4 times - Mistakes 4 times (Q.No 2, 4, 9, 10)" {
		t.Fatalf("unexpected summary: %q", first.Summary)
	}

	second := ledger.Entries[1]
	if second.Summary != "Tested 1 times - Mistakes 1 times (Q.No 10)" {
		t.Fatalf("unexpected summary: %q", second.Summary)
	}
}

// TestBuildLedgerDetailFormat checks the multi-line per-mistake view.
func TestBuildLedgerDetailFormat(t *testing.T) {
	ledger, _ := BuildLedger(scenarioInputs())
	want := "2: Wrong substitution variable\n4: Integration constant dropped\n9: Bounds not transformed\n10: Back-substitution skipped"
	if ledger.Entries[0].Detail != want {
		t.Fatalf("unexpected detail:\n%q\nwant\n%q", ledger.Entries[0].Detail, want)
	}
}

// TestBuildLedgerCountInvariants verifies mistake_count == len(mistakes)
// and mistake_count <= tested_count for every entry, with every mistake
// ref inside the mapped set.
func TestBuildLedgerCountInvariants(t *testing.T) {
	concepts, mapping, results := scenarioInputs()
	ledger, _ := BuildLedger(concepts, mapping, results)
	for _, e := range ledger.Entries {
		if e.MistakeCount != len(e.Mistakes) {
			t.Fatalf("entry %q: mistakeCount %d != len(mistakes) %d", e.Concept, e.MistakeCount, len(e.Mistakes))
		}
		if e.MistakeCount > e.TestedCount {
			t.Fatalf("entry %q: mistakeCount %d > testedCount %d", e.Concept, e.MistakeCount, e.TestedCount)
		}
		mapped := map[models.QuestionRef]bool{}
		for _, r := range mapping[models.NormalizeConceptKey(e.Concept)] {
			mapped[r] = true
		}
		for _, m := range e.Mistakes {
			if !mapped[m.Question] {
				t.Fatalf("entry %q: mistake ref %q outside mapped set", e.Concept, m.Question)
			}
		}
	}
}

// TestBuildLedgerClampsLeakedRefs covers the cross-concept leak: a
// mistake referencing a question outside the concept's mapped set is
// dropped with a warning and the entry is otherwise unaffected.
func TestBuildLedgerClampsLeakedRefs(t *testing.T) {
	concepts := conceptList("Chain Rule")
	mapping := models.ConceptMapping{concepts[0].Key(): refs("10")}
	results := map[string]DetectionResult{
		concepts[0].Key(): {Mistakes: []models.Mistake{
			{Question: "10", Description: "Inner derivative forgotten"},
			{Question: "99", Description: "Leak from another concept"},
		}},
	}

	ledger, warnings := BuildLedger(concepts, mapping, results)
	entry := ledger.Entries[0]
	if entry.MistakeCount != 1 || entry.Mistakes[0].Question != "10" {
		t.Fatalf("expected leaked ref to be dropped, got %+v", entry)
	}
	if len(warnings) != 1 || warnings[0].Stage != models.StageAggregate {
		t.Fatalf("expected one aggregate warning, got %v", warnings)
	}
}

// TestBuildLedgerZeroMappedConceptIsNotUnavailable ensures untested
// concepts produce a plain zero row, never an unavailability marker.
func TestBuildLedgerZeroMappedConceptIsNotUnavailable(t *testing.T) {
	concepts := conceptList("Basic Formulas")
	ledger, warnings := BuildLedger(concepts, models.ConceptMapping{}, map[string]DetectionResult{})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	entry := ledger.Entries[0]
	if entry.TestedCount != 0 || entry.MistakeCount != 0 || entry.Unavailable {
		t.Fatalf("unexpected zero-mapped entry: %+v", entry)
	}
	if entry.Summary != "Not tested in this paper" {
		t.Fatalf("unexpected summary: %q", entry.Summary)
	}
}

// TestBuildLedgerNoMistakesSummary covers the tested-but-clean row.
func TestBuildLedgerNoMistakesSummary(t *testing.T) {
	concepts := conceptList("Basic Formulas")
	mapping := models.ConceptMapping{concepts[0].Key(): refs("1", "3")}
	ledger, _ := BuildLedger(concepts, mapping, map[string]DetectionResult{})
	entry := ledger.Entries[0]
	if entry.Summary != "Tested 2 times - No mistakes" {
		t.Fatalf("unexpected summary: %q", entry.Summary)
	}
	if entry.Detail != "No detailed analysis needed (no mistakes)" {
		t.Fatalf("unexpected detail: %q", entry.Detail)
	}
}

// TestBuildLedgerUnavailableEntryKeepsTestedCount ensures a failed
// detection still produces a row with tested_count populated from the
// mapping and an explicit unavailability marker.
func TestBuildLedgerUnavailableEntryKeepsTestedCount(t *testing.T) {
	concepts := conceptList("Chain Rule")
	mapping := models.ConceptMapping{concepts[0].Key(): refs("2", "4")}
	results := map[string]DetectionResult{
		concepts[0].Key(): {Err: &models.AnalysisUnavailableError{Stage: "detector", Err: errors.New("rate limited")}},
	}

	ledger, _ := BuildLedger(concepts, mapping, results)
	entry := ledger.Entries[0]
	if !entry.Unavailable {
		t.Fatalf("expected unavailable marker, got %+v", entry)
	}
	if entry.TestedCount != 2 {
		t.Fatalf("expected tested count 2, got %d", entry.TestedCount)
	}
	if len(entry.Mistakes) != 0 || entry.MistakeCount != 0 {
		t.Fatalf("unavailable entry must not carry mistakes: %+v", entry)
	}
	if entry.Summary != "Tested 2 times - Analysis unavailable" {
		t.Fatalf("unexpected summary: %q", entry.Summary)
	}
}

// TestBuildLedgerIsIdempotent ensures re-running with identical inputs
// yields a byte-identical ledger.
func TestBuildLedgerIsIdempotent(t *testing.T) {
	first, _ := BuildLedger(scenarioInputs())
	second, _ := BuildLedger(scenarioInputs())

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("ledger is not deterministic:\n%s\n%s", a, b)
	}
}
