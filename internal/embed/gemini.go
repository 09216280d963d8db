package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini embeds text through the Gemini embedding API. The output
// dimensionality is fixed at construction and must match the vector
// column in the index schema.
type Gemini struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGemini creates a Gemini embedder. The client reads GEMINI_API_KEY
// from the environment when cc.APIKey is unset.
func NewGemini(ctx context.Context, model string, dimension int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Gemini{client: client, model: model, dimension: dimension}, nil
}

// NewGeminiWithClient wires an existing genai client, shared with the
// chat generator.
func NewGeminiWithClient(client *genai.Client, model string, dimension int) *Gemini {
	return &Gemini{client: client, model: model, dimension: dimension}
}

// Embed returns the embedding vector for text. Failures wrap
// ErrUnavailable so callers can distinguish "provider down" from
// "no relevant context".
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := int32(g.dimension) // #nosec G115 -- dimension validated in config ((0, 4096])

	resp, err := g.client.Models.EmbedContent(ctx, g.model,
		genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrUnavailable)
	}

	vec := resp.Embeddings[0].Values
	if len(vec) != g.dimension {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(vec), g.dimension)
	}
	return vec, nil
}

// Dimension returns the fixed output dimensionality.
func (g *Gemini) Dimension() int {
	return g.dimension
}
