package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/foliochat/folio/internal/catalog"
)

// loadResume extracts résumé text. OCR is tried first when an engine is
// configured; if it yields no usable text the PDF's embedded text layer
// is used instead. Only when both strategies fail is the resource
// reported as failed.
func (l *Loader) loadResume(ctx context.Context, res catalog.Resource) (Document, error) {
	path := res.Location
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.resourcesDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, extractionErr(res.ID, "reading PDF: %v", err)
	}

	var text string
	var ocrErr error
	if l.ocr != nil {
		text, ocrErr = l.ocr.Recognize(ctx, data)
		if ocrErr == nil {
			text = cleanText(text)
		}
	}

	if len(text) < minExtractedChars {
		layerText, layerErr := extractTextLayer(data)
		if layerErr != nil {
			return Document{}, extractionErr(res.ID, "OCR unusable (%v) and text layer failed: %v", ocrErr, layerErr)
		}
		text = cleanText(layerText)
	}

	if len(text) < minExtractedChars {
		return Document{}, extractionErr(res.ID, "extracted only %d characters from %s", len(text), path)
	}

	title := res.Title
	if title == "" {
		title = "Resume"
	}

	return Document{
		ResourceID: res.ID,
		Text:       text,
		SourceType: string(res.Type),
		Source:     path,
		Title:      title,
	}, nil
}

// extractTextLayer pulls the embedded text layer out of a PDF.
// Pages that cannot be decoded are skipped rather than failing the file.
func extractTextLayer(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("PDF has no extractable text layer")
	}
	return b.String(), nil
}

// CommandOCR shells out to an external OCR pipeline. The configured
// command receives the PDF on stdin and must write plain text to stdout.
// OCR engine internals stay outside this codebase.
type CommandOCR struct {
	command []string
}

// NewCommandOCR parses a space-separated command line into an OCR engine.
// Returns nil for an empty command so callers can wire "no OCR" directly.
func NewCommandOCR(command string) *CommandOCR {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil
	}
	return &CommandOCR{command: argv}
}

// Recognize runs the OCR command, bounded by ctx.
func (c *CommandOCR) Recognize(ctx context.Context, pdfData []byte) (string, error) {
	cmd := exec.CommandContext(ctx, c.command[0], c.command[1:]...)
	cmd.Stdin = bytes.NewReader(pdfData)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running OCR command %q: %w (stderr: %s)",
			c.command[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
