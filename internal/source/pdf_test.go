package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foliochat/folio/internal/catalog"
)

// stubOCR returns fixed text for any PDF.
type stubOCR struct {
	text string
	err  error
}

func (o *stubOCR) Recognize(_ context.Context, _ []byte) (string, error) {
	return o.text, o.err
}

// writeResumeFixture drops dummy bytes where the loader expects the PDF.
// Tests that exercise the OCR path never reach the text-layer parser.
func writeResumeFixture(t *testing.T) (dir, name string) {
	t.Helper()
	dir = t.TempDir()
	name = "resume.pdf"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4 not a real pdf"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return dir, name
}

var resumeText = strings.Repeat("Seasoned Go engineer with distributed systems experience. ", 5)

func TestLoadResumeViaOCR(t *testing.T) {
	dir, name := writeResumeFixture(t)
	l := NewLoader(nil, &stubOCR{text: resumeText}, dir)

	doc, err := l.Load(context.Background(), catalog.Resource{
		ID: "resume", Type: catalog.TypeResumePDF, Location: name, Title: "My Resume",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !strings.Contains(doc.Text, "Seasoned Go engineer") {
		t.Errorf("document text missing OCR output:\n%s", doc.Text)
	}
	if doc.Title != "My Resume" {
		t.Errorf("expected catalog title, got %q", doc.Title)
	}
	if doc.SourceType != "resume_pdf" {
		t.Errorf("expected source type resume_pdf, got %q", doc.SourceType)
	}
}

func TestLoadResumeOCRFailureFallsThrough(t *testing.T) {
	// OCR errors and the fixture has no text layer, so extraction fails
	// with a per-resource error instead of a panic or silent success.
	dir, name := writeResumeFixture(t)
	l := NewLoader(nil, &stubOCR{err: errors.New("ocr binary crashed")}, dir)

	_, err := l.Load(context.Background(), catalog.Resource{
		ID: "resume", Type: catalog.TypeResumePDF, Location: name,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("error should be ErrExtraction, got: %v", err)
	}
}

func TestLoadResumeShortOCROutputRejected(t *testing.T) {
	dir, name := writeResumeFixture(t)
	l := NewLoader(nil, &stubOCR{text: "too short"}, dir)

	_, err := l.Load(context.Background(), catalog.Resource{
		ID: "resume", Type: catalog.TypeResumePDF, Location: name,
	})
	if err == nil {
		t.Fatal("expected error for unusable OCR output")
	}
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("error should be ErrExtraction, got: %v", err)
	}
}

func TestLoadResumeMissingFile(t *testing.T) {
	l := NewLoader(nil, &stubOCR{text: resumeText}, t.TempDir())

	_, err := l.Load(context.Background(), catalog.Resource{
		ID: "resume", Type: catalog.TypeResumePDF, Location: "missing.pdf",
	})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("error should be ErrExtraction, got: %v", err)
	}
}

func TestNewCommandOCR(t *testing.T) {
	if NewCommandOCR("") != nil {
		t.Error("empty command should disable OCR")
	}
	if NewCommandOCR("   ") != nil {
		t.Error("blank command should disable OCR")
	}

	ocr := NewCommandOCR("ocrmypdf --sidecar - - -")
	if ocr == nil {
		t.Fatal("expected non-nil OCR for configured command")
	}
}

func TestCommandOCRRecognize(t *testing.T) {
	// cat echoes stdin, standing in for a real OCR pipeline.
	ocr := NewCommandOCR("cat")

	out, err := ocr.Recognize(context.Background(), []byte("extracted text"))
	if err != nil {
		t.Fatalf("Recognize returned error: %v", err)
	}
	if out != "extracted text" {
		t.Errorf("expected stdin echoed, got %q", out)
	}
}

func TestCommandOCRFailure(t *testing.T) {
	ocr := NewCommandOCR("false")

	_, err := ocr.Recognize(context.Background(), []byte("pdf"))
	if err == nil {
		t.Fatal("expected error for failing command")
	}
}
