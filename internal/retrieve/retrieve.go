// Package retrieve answers similarity queries against the vector index
// and assembles retrieved chunks into a bounded context block for the
// completion model.
package retrieve

import (
	"context"
	"fmt"

	"github.com/foliochat/folio/internal/embed"
	"github.com/foliochat/folio/internal/index"
	"github.com/foliochat/folio/internal/log"
)

// Searcher is the read side of the vector index consumed by the retriever.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, k int) ([]index.Match, error)
}

// Result is one retrieved chunk with its similarity score.
type Result struct {
	Text       string
	Similarity float32
	SourceType string
	Source     string
	Title      string
}

// Retriever embeds a query and searches the index, applying the
// similarity floor. An empty result set is a valid outcome, not an error.
type Retriever struct {
	embedder      embed.Embedder
	searcher      Searcher
	minSimilarity float32
	logger        log.Logger
}

// NewRetriever creates a Retriever. minSimilarity is the inclusive floor
// below which matches are discarded.
func NewRetriever(embedder embed.Embedder, searcher Searcher, minSimilarity float32, logger log.Logger) *Retriever {
	return &Retriever{
		embedder:      embedder,
		searcher:      searcher,
		minSimilarity: minSimilarity,
		logger:        logger,
	}
}

// Retrieve returns at most k results ordered by similarity descending.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.searcher.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < r.minSimilarity {
			continue
		}
		results = append(results, Result{
			Text:       m.Text,
			Similarity: m.Similarity,
			SourceType: m.SourceType,
			Source:     m.Source,
			Title:      m.Title,
		})
	}

	r.logger.Debug("retrieval complete",
		"query_len", len(query),
		"matches", len(matches),
		"above_floor", len(results),
	)
	return results, nil
}
