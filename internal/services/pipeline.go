package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Geethss/Student-perfomance-Analyser/internal/llm"
	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// ClientFactory creates a model client for the requested model id. The
// model id is a per-run parameter, never process-wide state.
type ClientFactory func(ctx context.Context, modelID string) (llm.Client, error)

// AnalyzerConfig carries the explicit pipeline parameters.
type AnalyzerConfig struct {
	Retry      RetryConfig
	Normalizer NormalizerConfig
	// MaxConcurrentDetections bounds the per-concept detection fan-out
	// to respect external API quotas.
	MaxConcurrentDetections int
}

const defaultMaxConcurrentDetections = 4

// Analyzer is the multi-stage analysis pipeline: normalize uploads,
// extract concepts, map questions to concepts, detect per-concept
// mistakes concurrently, and aggregate everything into one ledger.
type Analyzer struct {
	newClient ClientFactory
	config    AnalyzerConfig
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(newClient ClientFactory, config AnalyzerConfig) *Analyzer {
	if config.MaxConcurrentDetections <= 0 {
		config.MaxConcurrentDetections = defaultMaxConcurrentDetections
	}
	return &Analyzer{newClient: newClient, config: config}
}

// Analyze runs the full pipeline over the categorized uploads. The
// caller always receives either a complete ledger (possibly with
// "analysis unavailable" entries and warnings) or a single error;
// auth/quota failures abort immediately.
func (a *Analyzer) Analyze(ctx context.Context, docsByCategory map[models.DocumentCategory][]models.RawDocument, modelID string) (models.AnalysisLedger, []models.Warning, error) {
	client, err := a.newClient(ctx, modelID)
	if err != nil {
		return models.AnalysisLedger{}, nil, fmt.Errorf("failed to create model client: %w", err)
	}
	defer client.Close()

	normalizer := NewNormalizer(a.config.Normalizer)
	extractor := NewConceptExtractor(client, a.config.Retry)
	mapper := NewQuestionMapper(client, a.config.Retry)
	detector := NewMistakeDetector(client, a.config.Retry)

	// --- 1. Normalize every category, best effort per document ---
	var warnings []models.Warning
	framesByCategory := make(map[models.DocumentCategory][]models.Frame, len(models.Categories))
	for _, category := range models.Categories {
		frames, normWarnings := normalizer.Normalize(docsByCategory[category])
		warnings = append(warnings, normWarnings...)
		framesByCategory[category] = frames
		slog.Info("Category normalized.",
			"category", category,
			"documents", len(docsByCategory[category]),
			"frames", len(frames),
		)
	}

	analysisFrames := framesByCategory[models.CategoryAnalysisSheet]
	questionFrames := framesByCategory[models.CategoryQuestionPaper]
	answerFrames := framesByCategory[models.CategoryAnswerSheet]

	if len(analysisFrames) == 0 {
		warnings = append(warnings, models.Warning{
			Stage:   models.StageNormalize,
			Message: "no usable analysis-sheet documents; nothing to analyze",
		})
		return models.AnalysisLedger{}, warnings, nil
	}

	// --- 2. Extract concepts ---
	concepts, extractWarnings, err := extractor.ExtractConcepts(ctx, analysisFrames)
	if err != nil {
		return models.AnalysisLedger{}, warnings, err
	}
	warnings = append(warnings, extractWarnings...)
	if len(concepts) == 0 {
		return models.AnalysisLedger{}, warnings, nil
	}
	slog.Info("Concepts extracted.", "count", len(concepts))

	// --- 3. Map questions to concepts ---
	mapping, results, mapWarnings, err := a.mapStage(ctx, mapper, questionFrames, concepts)
	if err != nil {
		return models.AnalysisLedger{}, warnings, err
	}
	warnings = append(warnings, mapWarnings...)

	// --- 4. Detect mistakes per concept, bounded fan-out ---
	if results == nil {
		detectFrames := append(append([]models.Frame{}, questionFrames...), answerFrames...)
		var detectWarnings []models.Warning
		results, detectWarnings, err = a.detectStage(ctx, detector, detectFrames, concepts, mapping, len(answerFrames) > 0)
		if err != nil {
			return models.AnalysisLedger{}, warnings, err
		}
		warnings = append(warnings, detectWarnings...)
	}

	if ctx.Err() != nil {
		warnings = append(warnings, models.Warning{
			Stage:   models.StageDetect,
			Message: "run cancelled; concepts without a completed detection are marked unavailable",
		})
	}

	// --- 5. Aggregate ---
	ledger, aggWarnings := BuildLedger(concepts, mapping, results)
	warnings = append(warnings, aggWarnings...)
	slog.Info("Ledger built.", "entries", len(ledger.Entries), "warnings", len(warnings))
	return ledger, warnings, nil
}

// mapStage runs the mapper. Exhausted retries fail the stage, not the
// run: every concept is handed to the aggregator as unavailable so the
// ledger still has one row per concept. The second return is non-nil
// only in that stage-failed case.
func (a *Analyzer) mapStage(ctx context.Context, mapper *QuestionMapper, questionFrames []models.Frame, concepts []models.Concept) (models.ConceptMapping, map[string]DetectionResult, []models.Warning, error) {
	if len(questionFrames) == 0 {
		return models.ConceptMapping{}, nil, []models.Warning{{
			Stage:   models.StageMap,
			Message: "no usable question-paper documents; all concepts treated as untested",
		}}, nil
	}

	mapping, mapWarnings, err := mapper.MapQuestions(ctx, questionFrames, concepts)
	if err == nil {
		return mapping, nil, mapWarnings, nil
	}
	if models.IsFatal(err) {
		return nil, nil, nil, err
	}

	var unavailable *models.AnalysisUnavailableError
	if !errors.As(err, &unavailable) {
		return nil, nil, nil, err
	}
	slog.Error("Mapping stage failed; recording every concept as unavailable.", "error", err)
	results := make(map[string]DetectionResult, len(concepts))
	for _, c := range concepts {
		results[c.Key()] = DetectionResult{Err: err}
	}
	warnings := []models.Warning{{
		Stage:   models.StageMap,
		Message: err.Error(),
	}}
	return models.ConceptMapping{}, results, warnings, nil
}

// detectStage fans detection out across concepts with a bounded worker
// limit. Results are reconciled by concept slot, so no ordering between
// concurrent calls matters and no locking is needed.
func (a *Analyzer) detectStage(ctx context.Context, detector *MistakeDetector, frames []models.Frame, concepts []models.Concept, mapping models.ConceptMapping, haveAnswers bool) (map[string]DetectionResult, []models.Warning, error) {
	slots := make([]DetectionResult, len(concepts))
	slotWarnings := make([][]models.Warning, len(concepts))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.config.MaxConcurrentDetections)

	for i, concept := range concepts {
		refs := mapping.QuestionsFor(concept)
		if len(refs) == 0 {
			// Valid terminal state: tested 0 times, nothing to detect.
			continue
		}
		if !haveAnswers {
			slots[i] = DetectionResult{Err: &models.AnalysisUnavailableError{
				Stage: string(llm.StageDetector),
				Err:   errors.New("no usable answer-sheet documents"),
			}}
			continue
		}

		eg.Go(func() error {
			mistakes, detWarnings, err := detector.DetectMistakes(gctx, frames, concept, refs)
			if err != nil {
				if models.IsFatal(err) {
					return err
				}
				slots[i] = DetectionResult{Err: err}
				return nil
			}
			slots[i] = DetectionResult{Mistakes: mistakes}
			slotWarnings[i] = detWarnings
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	results := make(map[string]DetectionResult, len(concepts))
	var warnings []models.Warning
	for i, concept := range concepts {
		key := concept.Key()
		if len(mapping.QuestionsFor(concept)) == 0 {
			continue
		}
		results[key] = slots[i]
		warnings = append(warnings, slotWarnings[i]...)
		if slots[i].Err != nil {
			warnings = append(warnings, models.Warning{
				Stage:   models.StageDetect,
				Concept: concept.Name,
				Message: slots[i].Err.Error(),
			})
		}
	}
	return results, warnings, nil
}
