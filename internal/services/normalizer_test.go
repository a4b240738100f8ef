package services

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func imageDoc(t *testing.T, id string, w, h int) models.RawDocument {
	t.Helper()
	return models.RawDocument{
		ID:       id,
		Category: models.CategoryAnswerSheet,
		Filename: id + ".png",
		MIMEType: "image/png",
		Data:     pngBytes(t, w, h),
	}
}

// TestNormalizeImagePassesBoundedImage ensures an in-bounds image
// yields exactly one PNG frame.
func TestNormalizeImagePassesBoundedImage(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MaxImageDimension: 64})
	frames, warnings := n.Normalize([]models.RawDocument{imageDoc(t, "a", 32, 16)})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	f := frames[0]
	if f.MIMEType != "image/png" || f.DocumentID != "a" || f.PageIndex != 1 {
		t.Fatalf("unexpected frame metadata: %+v", f)
	}
}

// TestNormalizeImageDownscalesOversized ensures an image exceeding the
// bound is downscaled with the aspect ratio preserved.
func TestNormalizeImageDownscalesOversized(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MaxImageDimension: 64})
	frames, warnings := n.Normalize([]models.RawDocument{imageDoc(t, "big", 128, 64)})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	img, err := png.Decode(bytes.NewReader(frames[0].Data))
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 64 || b.Dy() != 32 {
		t.Fatalf("expected 64x32 after downscale, got %dx%d", b.Dx(), b.Dy())
	}
}

// TestNormalizeSkipsUnsupportedFormat ensures an unclassifiable upload
// is skipped with a warning while siblings proceed.
func TestNormalizeSkipsUnsupportedFormat(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})
	docs := []models.RawDocument{
		imageDoc(t, "good1", 10, 10),
		{ID: "bad", Filename: "notes.txt", MIMEType: "text/plain", Data: []byte("hello")},
		imageDoc(t, "good2", 10, 10),
	}

	frames, warnings := n.Normalize(docs)
	if len(frames) != 2 {
		t.Fatalf("expected two frames from sibling documents, got %d", len(frames))
	}
	if frames[0].DocumentID != "good1" || frames[1].DocumentID != "good2" {
		t.Fatalf("upload order not preserved: %+v", frames)
	}
	if len(warnings) != 1 || warnings[0].Document != "notes.txt" {
		t.Fatalf("expected one warning for the skipped document, got %v", warnings)
	}
	if !strings.Contains(warnings[0].Message, "unsupported") {
		t.Fatalf("warning should mention the unsupported format, got %q", warnings[0].Message)
	}
}

// TestNormalizeSkipsCorruptDocument covers the corrupt-upload case: a
// declared image that fails to decode is skipped with a per-document
// warning and the run continues.
func TestNormalizeSkipsCorruptDocument(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})
	docs := []models.RawDocument{
		imageDoc(t, "good1", 10, 10),
		{ID: "corrupt", Filename: "broken.png", MIMEType: "image/png", Data: []byte("not a png at all")},
		imageDoc(t, "good2", 10, 10),
	}

	frames, warnings := n.Normalize(docs)
	if len(frames) != 2 {
		t.Fatalf("expected the two good documents to normalize, got %d frames", len(frames))
	}
	if len(warnings) != 1 || warnings[0].Document != "broken.png" {
		t.Fatalf("expected one warning for the corrupt document, got %v", warnings)
	}
}

// TestNormalizeEnforcesFrameByteCap ensures an oversize frame payload
// is dropped with a warning.
func TestNormalizeEnforcesFrameByteCap(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MaxFrameBytes: 16})
	frames, warnings := n.Normalize([]models.RawDocument{imageDoc(t, "a", 100, 100)})
	if len(frames) != 0 {
		t.Fatalf("expected no frames under a tiny byte cap, got %d", len(frames))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "size limit") {
		t.Fatalf("expected a size-limit warning, got %v", warnings)
	}
}

// TestNormalizePreservesUploadOrder ensures frames across multiple
// uploads keep upload order.
func TestNormalizePreservesUploadOrder(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})
	var docs []models.RawDocument
	for i := 0; i < 4; i++ {
		docs = append(docs, imageDoc(t, fmt.Sprintf("doc-%d", i), 8, 8))
	}
	frames, _ := n.Normalize(docs)
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.DocumentID != fmt.Sprintf("doc-%d", i) {
			t.Fatalf("frame %d out of order: %+v", i, f)
		}
	}
}
