package retrieve

import (
	"strings"

	"github.com/foliochat/folio/internal/chunk"
)

// Citation names one distinct source that contributed to a context block.
type Citation struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Context is an assembled, token-bounded context block plus the
// citations of the sources it draws from.
type Context struct {
	Text      string
	Citations []Citation
}

// Assemble packs results into a context block of at most maxTokens
// tokens. Results are consumed in the given order (highest similarity
// first); a chunk is included whole or not at all, and assembly stops at
// the first chunk that would overflow the budget. Citations list each
// distinct source once, in first-appearance order.
func Assemble(results []Result, maxTokens int) Context {
	var (
		blocks    []string
		citations []Citation
		seen      = make(map[string]bool)
		used      int
	)

	for _, res := range results {
		block := "[Source: " + res.Title + "]\n" + res.Text
		cost := chunk.CountTokens(block)
		if used+cost > maxTokens {
			break
		}
		used += cost
		blocks = append(blocks, block)

		if !seen[res.Source] {
			seen[res.Source] = true
			citations = append(citations, Citation{Title: res.Title, Source: res.Source})
		}
	}

	return Context{
		Text:      strings.Join(blocks, "\n\n"),
		Citations: citations,
	}
}
