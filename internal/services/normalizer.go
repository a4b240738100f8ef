package services

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"

	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

// NormalizerConfig bounds the frames produced for the external model.
type NormalizerConfig struct {
	// MaxImageDimension is the pixel bound for raster frames; larger
	// images are downscaled preserving aspect ratio.
	MaxImageDimension int
	// MaxFrameBytes caps a single frame's payload size.
	MaxFrameBytes int
}

const (
	defaultMaxImageDimension = 1568
	defaultMaxFrameBytes     = 8 << 20
)

// Normalizer converts heterogeneous uploads into an ordered sequence of
// bounded frames. Per-document failures are skipped with a warning so
// sibling documents in the same category still normalize.
type Normalizer struct {
	config NormalizerConfig
}

// NewNormalizer creates a Normalizer, applying defaults for unset bounds.
func NewNormalizer(config NormalizerConfig) *Normalizer {
	if config.MaxImageDimension <= 0 {
		config.MaxImageDimension = defaultMaxImageDimension
	}
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = defaultMaxFrameBytes
	}
	return &Normalizer{config: config}
}

// Normalize produces frames for an ordered list of uploads. Page order
// is preserved within a document and upload order across documents.
func (n *Normalizer) Normalize(docs []models.RawDocument) ([]models.Frame, []models.Warning) {
	var frames []models.Frame
	var warnings []models.Warning

	for _, doc := range docs {
		docFrames, err := n.normalizeDocument(doc)
		if err != nil {
			slog.Warn("Skipping document that failed to normalize.",
				"document", doc.Filename, "category", doc.Category, "error", err)
			warnings = append(warnings, models.Warning{
				Stage:    models.StageNormalize,
				Document: doc.Filename,
				Message:  err.Error(),
			})
			continue
		}
		for _, f := range docFrames {
			if len(f.Data) > n.config.MaxFrameBytes {
				warnings = append(warnings, models.Warning{
					Stage:    models.StageNormalize,
					Document: doc.Filename,
					Message:  fmt.Sprintf("page %d exceeds frame size limit (%d bytes), skipped", f.PageIndex, len(f.Data)),
				})
				continue
			}
			frames = append(frames, f)
		}
	}
	return frames, warnings
}

func (n *Normalizer) normalizeDocument(doc models.RawDocument) ([]models.Frame, error) {
	switch classifyMIME(doc) {
	case "image":
		return n.normalizeImage(doc)
	case "pdf":
		return n.normalizePDF(doc)
	default:
		return nil, fmt.Errorf("%w: %s (%s)", models.ErrUnsupportedFormat, doc.MIMEType, doc.Filename)
	}
}

// classifyMIME trusts the declared MIME type and falls back to content
// sniffing when the declaration is missing or generic.
func classifyMIME(doc models.RawDocument) string {
	mime := strings.ToLower(strings.TrimSpace(doc.MIMEType))
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(doc.Data)
	}
	switch {
	case mime == "application/pdf":
		return "pdf"
	case strings.HasPrefix(mime, "image/"):
		switch mime {
		case "image/png", "image/jpeg", "image/jpg", "image/webp":
			return "image"
		}
	}
	return ""
}

// normalizeImage decodes a raster upload, downscales it if either
// dimension exceeds the bound, and re-encodes it as PNG so every raster
// frame has a single encoding.
func (n *Normalizer) normalizeImage(doc models.RawDocument) ([]models.Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, &models.CorruptDocumentError{DocumentID: doc.ID, Err: err}
	}

	img = n.downscale(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &models.CorruptDocumentError{DocumentID: doc.ID, Err: fmt.Errorf("png encode: %w", err)}
	}

	return []models.Frame{{
		DocumentID: doc.ID,
		Category:   doc.Category,
		PageIndex:  1,
		MIMEType:   "image/png",
		Data:       buf.Bytes(),
	}}, nil
}

func (n *Normalizer) downscale(img image.Image) image.Image {
	max := n.config.MaxImageDimension
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	scale := float64(max) / float64(w)
	if h > w {
		scale = float64(max) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// normalizePDF validates and optimizes the upload, then splits it into
// single-page documents, one frame per page in page order. The model
// rasterizes page frames at its own fixed resolution; payload size is
// bounded by the caller's frame cap.
func (n *Normalizer) normalizePDF(doc models.RawDocument) ([]models.Frame, error) {
	tempDir, err := os.MkdirTemp("", "doc-normalizer-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, doc.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage source PDF: %w", err)
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, optimizedPath); err != nil {
		return nil, &models.CorruptDocumentError{DocumentID: doc.ID, Err: err}
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, &models.CorruptDocumentError{DocumentID: doc.ID, Err: err}
	}
	if err := api.SplitFile(optimizedPath, tempDir, 1, nil); err != nil {
		return nil, &models.CorruptDocumentError{DocumentID: doc.ID, Err: err}
	}

	splitBase := strings.TrimSuffix(optimizedPath, filepath.Ext(optimizedPath))
	frames := make([]models.Frame, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		data, err := os.ReadFile(fmt.Sprintf("%s_%d.pdf", splitBase, page))
		if err != nil {
			return nil, &models.CorruptDocumentError{DocumentID: doc.ID, Err: fmt.Errorf("page %d: %w", page, err)}
		}
		frames = append(frames, models.Frame{
			DocumentID: doc.ID,
			Category:   doc.Category,
			PageIndex:  page,
			MIMEType:   "application/pdf",
			Data:       data,
		})
	}
	return frames, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}
