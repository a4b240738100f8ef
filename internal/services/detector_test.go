package services

import (
	"context"
	"strings"
	"testing"

	"github.com/Geethss/Student-perfomance-Analyser/internal/llm"
	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

func refs(labels ...string) []models.QuestionRef {
	out := make([]models.QuestionRef, len(labels))
	for i, l := range labels {
		out[i] = models.QuestionRef(l)
	}
	return out
}

// TestDetectMistakesReportsIncorrectQuestions ensures incorrect
// judgements become mistakes in mapped-question order and correct ones
// are skipped.
func TestDetectMistakesReportsIncorrectQuestions(t *testing.T) {
	client := &fakeClient{generateFn: func(_ context.Context, _ llm.Stage, _ llm.Request) (string, error) {
		return `{
			"2": {"correct": false, "mistake": "Wrong integration of tan^2 x"},
			"4": {"correct": true},
			"9": {"correct": false, "mistake": "Used wrong power rule"}
		}`, nil
	}}

	mistakes, warnings, err := NewMistakeDetector(client, fastRetry).DetectMistakes(
		context.Background(),
		[]models.Frame{{MIMEType: "image/png"}},
		models.Concept{Name: "Integration by Substitution"},
		refs("2", "4", "9"),
	)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(mistakes) != 2 {
		t.Fatalf("expected 2 mistakes, got %v", mistakes)
	}
	if mistakes[0].Question != "2" || mistakes[1].Question != "9" {
		t.Fatalf("unexpected mistake order: %v", mistakes)
	}
	for _, m := range mistakes {
		if m.Description == "" {
			t.Fatalf("mistake %q has empty description", m.Question)
		}
	}
}

// TestDetectMistakesUnjudgedQuestionIsExcludedWithWarning covers the
// case where the response omits a mapped question entirely: it must be
// excluded from the mistakes, not counted as correct, and flagged.
func TestDetectMistakesUnjudgedQuestionIsExcludedWithWarning(t *testing.T) {
	client := &fakeClient{generateFn: func(_ context.Context, _ llm.Stage, _ llm.Request) (string, error) {
		return `{"2": {"correct": false, "mistake": "Sign error"}}`, nil
	}}

	mistakes, warnings, err := NewMistakeDetector(client, fastRetry).DetectMistakes(
		context.Background(),
		[]models.Frame{{MIMEType: "image/png"}},
		models.Concept{Name: "Chain Rule"},
		refs("2", "15"),
	)
	if err != nil {
		t.Fatalf("expected partial results, got error %v", err)
	}
	if len(mistakes) != 1 || mistakes[0].Question != "2" {
		t.Fatalf("expected only the judged mistake, got %v", mistakes)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one incomplete-evaluation warning, got %v", warnings)
	}
	if !strings.Contains(warnings[0].Message, "15") {
		t.Fatalf("warning should name the unjudged question, got %q", warnings[0].Message)
	}
}

// TestDetectMistakesMissingDescriptionGetsPlaceholder ensures the
// diagnostic text is never empty.
func TestDetectMistakesMissingDescriptionGetsPlaceholder(t *testing.T) {
	client := &fakeClient{generateFn: func(_ context.Context, _ llm.Stage, _ llm.Request) (string, error) {
		return `{"7": {"correct": false}}`, nil
	}}

	mistakes, _, err := NewMistakeDetector(client, fastRetry).DetectMistakes(
		context.Background(),
		nil,
		models.Concept{Name: "Chain Rule"},
		refs("7"),
	)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(mistakes) != 1 || mistakes[0].Description != "Error not specified" {
		t.Fatalf("expected placeholder description, got %v", mistakes)
	}
}

// TestDetectMistakesPassesThroughLeakedRefs ensures verdicts outside
// the mapped set survive to the aggregator, which owns the clamp.
func TestDetectMistakesPassesThroughLeakedRefs(t *testing.T) {
	client := &fakeClient{generateFn: func(_ context.Context, _ llm.Stage, _ llm.Request) (string, error) {
		return `{
			"2": {"correct": false, "mistake": "Sign error"},
			"99": {"correct": false, "mistake": "Leak from another concept"}
		}`, nil
	}}

	mistakes, _, err := NewMistakeDetector(client, fastRetry).DetectMistakes(
		context.Background(),
		nil,
		models.Concept{Name: "Chain Rule"},
		refs("2"),
	)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(mistakes) != 2 {
		t.Fatalf("expected leaked ref to pass through, got %v", mistakes)
	}
	if mistakes[1].Question != "99" {
		t.Fatalf("expected leaked ref after in-set mistakes, got %v", mistakes)
	}
}

// TestDetectMistakesNoQuestionsSkipsCall ensures concepts with nothing
// mapped never reach the model.
func TestDetectMistakesNoQuestionsSkipsCall(t *testing.T) {
	client := &fakeClient{generateFn: func(_ context.Context, _ llm.Stage, _ llm.Request) (string, error) {
		t.Fatal("model should not be called without questions")
		return "", nil
	}}

	mistakes, warnings, err := NewMistakeDetector(client, fastRetry).DetectMistakes(
		context.Background(), nil, models.Concept{Name: "Chain Rule"}, nil)
	if err != nil || mistakes != nil || warnings != nil {
		t.Fatalf("expected empty result, got %v %v %v", mistakes, warnings, err)
	}
}

// TestDetectMistakesSendsConceptInstruction ensures the detector
// instruction names the concept and its question set.
func TestDetectMistakesSendsConceptInstruction(t *testing.T) {
	var instruction string
	client := &fakeClient{generateFn: func(_ context.Context, stage llm.Stage, req llm.Request) (string, error) {
		if stage != llm.StageDetector {
			t.Fatalf("expected detector stage, got %q", stage)
		}
		instruction = req.Instruction
		return `{}`, nil
	}}

	_, _, err := NewMistakeDetector(client, fastRetry).DetectMistakes(
		context.Background(), nil, models.Concept{Name: "Chain Rule"}, refs("2", "4"))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !strings.Contains(instruction, "Chain Rule") || !strings.Contains(instruction, "2, 4") {
		t.Fatalf("instruction missing concept or questions: %q", instruction)
	}
}
