// Package source loads raw catalog resources and normalizes each into a
// plain-text document with provenance metadata.
//
// One extraction strategy exists per catalog.Type, selected through a
// closed switch in Loader.Load. Failures are isolated per resource: a
// dead URL or unreadable PDF wraps ErrExtraction and never aborts the
// surrounding ingestion run.
package source

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/foliochat/folio/internal/catalog"
)

// ErrExtraction indicates a single resource's text could not be obtained.
// Callers record it and continue with the next resource.
var ErrExtraction = errors.New("resource extraction failed")

// Document is the loader's normalized output, produced and consumed
// within one ingestion pass.
type Document struct {
	ResourceID string
	Text       string
	SourceType string
	Source     string // URL or local path
	Title      string
}

// Fetcher retrieves the raw bytes of a remote resource. Implemented by
// the colly-backed fetcher; tests substitute httptest-backed fakes.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// OCR extracts text from a rendered PDF. The engine itself is an
// external collaborator (e.g. a tesseract wrapper); only the capability
// is modeled here.
type OCR interface {
	Recognize(ctx context.Context, pdf []byte) (string, error)
}

// minExtractedChars is the threshold below which extracted text is
// considered unusable and the next extraction strategy is tried.
const minExtractedChars = 100

// maxSummaryBytes bounds how much fetched markup body text is kept for
// remote resources. Profiles, READMEs and abstracts are summaries, not
// full mirrors.
const maxSummaryBytes = 2000

// Loader dispatches each resource to its type-specific extraction
// strategy.
type Loader struct {
	fetcher      Fetcher
	ocr          OCR // nil disables OCR; the text layer is used directly
	resourcesDir string
}

// NewLoader creates a Loader. ocr may be nil.
func NewLoader(fetcher Fetcher, ocr OCR, resourcesDir string) *Loader {
	return &Loader{
		fetcher:      fetcher,
		ocr:          ocr,
		resourcesDir: resourcesDir,
	}
}

// Load extracts a normalized document from res. Every error wraps
// ErrExtraction so callers can treat extraction failures uniformly.
func (l *Loader) Load(ctx context.Context, res catalog.Resource) (Document, error) {
	switch res.Type {
	case catalog.TypeResumePDF:
		return l.loadResume(ctx, res)
	case catalog.TypeSocialProfile:
		return l.loadProfile(ctx, res)
	case catalog.TypeRepository:
		return l.loadRepository(ctx, res)
	case catalog.TypeArticle:
		return l.loadArticle(ctx, res)
	case catalog.TypePaper:
		return l.loadPaper(ctx, res)
	default:
		// Unreachable for catalogs that passed validation.
		return Document{}, extractionErr(res.ID, "unhandled resource type %q", res.Type)
	}
}

// cleanText collapses whitespace and strips non-printable characters.
func cleanText(text string) string {
	fields := strings.FieldsFunc(text, unicode.IsSpace)
	joined := strings.Join(fields, " ")

	var b strings.Builder
	b.Grow(len(joined))
	for _, r := range joined {
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// truncate bounds s to at most n bytes without splitting the last word,
// and never cuts inside a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}
