package llm

import (
	"context"
	"strings"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// Stage selects one of the pre-configured generative models. Each stage
// carries its own system instruction and generation settings.
type Stage string

const (
	StageExtractor Stage = "extractor"
	StageMapper    Stage = "mapper"
	StageDetector  Stage = "detector"
)

// Request is one call to the external vision model: an ordered frame
// list plus the natural-language instruction for this invocation.
type Request struct {
	Frames      []models.Frame
	Instruction string
}

// Client is the external model capability. Generate returns the raw
// structured text of the response (code fences already stripped) or an
// error; auth/quota failures come back as *models.QuotaOrAuthError, all
// other transport errors are treated as transient by the caller.
type Client interface {
	Generate(ctx context.Context, stage Stage, req Request) (string, error)
	Close() error
}

// stripFences removes a surrounding markdown code fence from a model
// response. Models occasionally fence JSON output even when instructed
// not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
