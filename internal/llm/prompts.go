package llm

import (
	"fmt"
	"strings"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// --- Concept Extractor Prompts ---
const ExtractorSystemPrompt = "You are a document analysis tool for scanned exam material. Your task is to read a student's concept analysis sheet and extract the list of pedagogical concepts it tracks. You must output your response as a valid JSON array of strings."
const ExtractorUserPrompt = `Analyze the attached analysis sheet and extract ALL concepts listed in the "Concept (With Explanation)" column.

Follow these rules precisely:
1. Return ONLY a JSON array of concept names, like this:
   ["Basic Formulas", "Application of Formulae", "Basic Trigonometric Ratios Integration"]
2. Preserve the order in which the concepts appear on the sheet.
3. Do not repeat a concept that appears more than once.
4. Extract every single concept from the sheet. Be thorough and precise.

The final output MUST be a single, valid JSON array of strings. Do not include any text before or after the JSON array.`

// --- Question-Concept Mapper Prompts ---
const MapperSystemPrompt = "You are a specialist exam analysis tool. Your task is to classify each question of an exam paper against a fixed list of pedagogical concepts. You must output your response as a valid JSON object."
const mapperUserPromptTemplate = `Analyze the attached question paper and identify which questions test which concepts.

Here are the concepts to look for:
%s

For each concept, identify ALL question labels that test or require that concept. A single question may test multiple concepts, or none.

Follow these rules precisely:
1. Return a JSON object whose keys are the concept names exactly as listed above and whose values are arrays of question labels, for example:
   {"Basic Formulas": ["1", "3", "5"], "Application of Formulae": ["2", "4b"]}
2. Report question labels exactly as they appear on the paper. Do not renumber them.
3. Include ALL concepts from the list, even if no questions test them (use an empty array []).
4. Be thorough - analyze every question carefully.

The final output MUST be a single, valid JSON object. Do not include any text before or after it.`

// --- Mistake Detector Prompts ---
const DetectorSystemPrompt = "You are a specialist exam grading assistant. Your task is to compare a student's handwritten answers against the exam questions for one specific concept and report which questions were answered incorrectly. You must output your response as a valid JSON object."
const detectorUserPromptTemplate = `Analyze the student's performance for the concept: %q

Questions that test this concept: %s

Compare the student's answers (in the answer sheet) with the correct approach for each of these questions, focusing on how the student applied (or failed to apply) the concept %q.

Follow these rules precisely:
1. Return a JSON object mapping each question label to a judgement object:
   {"2": {"correct": false, "mistake": "Wrong integration of tan^2 x - forgot to use substitution"}, "5": {"correct": true}}
2. Judge every question in the list above. If the student's work for a question cannot be found or read, omit that question from the object rather than guessing.
3. For incorrect answers, "mistake" must be a short, specific description of the error.
4. Report question labels exactly as given above.

The final output MUST be a single, valid JSON object. Do not include any text before or after it.`

// MapperInstruction renders the mapper user prompt for a concept list.
func MapperInstruction(concepts []models.Concept) string {
	var list strings.Builder
	for i, c := range concepts {
		fmt.Fprintf(&list, "%d. %s\n", i+1, c.Name)
	}
	return fmt.Sprintf(mapperUserPromptTemplate, strings.TrimRight(list.String(), "\n"))
}

// DetectorInstruction renders the detector user prompt for one concept
// and its mapped question set.
func DetectorInstruction(concept models.Concept, refs []models.QuestionRef) string {
	labels := make([]string, len(refs))
	for i, r := range refs {
		labels[i] = string(r)
	}
	return fmt.Sprintf(detectorUserPromptTemplate, concept.Name, strings.Join(labels, ", "), concept.Name)
}
