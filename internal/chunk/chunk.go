// Package chunk splits normalized documents into bounded, overlapping
// token windows sized for embedding.
//
// Tokenization is whitespace word splitting. It is deliberately simple:
// the only requirement is consistent token counting within a single
// ingestion run, and the same counter is reused by the context assembler
// so context budgets and chunk sizes line up.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/foliochat/folio/internal/source"
)

// ErrInvalidChunking indicates chunk size/overlap parameters that cannot
// produce a terminating window sequence.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Chunk is a bounded contiguous slice of a document's text.
type Chunk struct {
	ID         string
	ResourceID string
	Text       string
	TokenCount int
	Index      int

	// Citation metadata carried from the parent document.
	SourceType string
	Source     string
	Title      string
}

// Tokenize splits text into tokens. Exported so the context assembler
// counts tokens the same way the chunker does.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// CountTokens returns the token count of text under the chunker's tokenizer.
func CountTokens(text string) int {
	return len(Tokenize(text))
}

// Split cuts doc into ordered chunks of at most size tokens, with overlap
// tokens of each chunk's tail repeated at the head of the next. A document
// shorter than size produces exactly one chunk.
func Split(doc source.Document, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d",
			ErrInvalidChunking, overlap, size)
	}

	tokens := Tokenize(doc.Text)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]Chunk, 0, (len(tokens)+step-1)/step)

	for start, idx := 0, 0; start < len(tokens); start, idx = start+step, idx+1 {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}

		window := tokens[start:end]
		text := strings.Join(window, " ")

		chunks = append(chunks, Chunk{
			ID:         chunkID(doc.ResourceID, idx, text),
			ResourceID: doc.ResourceID,
			Text:       text,
			TokenCount: len(window),
			Index:      idx,
			SourceType: doc.SourceType,
			Source:     doc.Source,
			Title:      doc.Title,
		})

		if end == len(tokens) {
			break
		}
	}

	return chunks, nil
}

// chunkID derives a deterministic chunk identifier so repeated rebuilds
// of an unchanged resource produce identical ID sets.
func chunkID(resourceID string, index int, text string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", resourceID, index, text)))
	return resourceID + "_" + hex.EncodeToString(h[:8])
}
