package chat

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Generator produces a completion for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini generates completions through the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewGemini wraps an existing genai client, which is shared with the
// embedder so both use one API key and HTTP client.
func NewGemini(client *genai.Client, model string, temperature float32, maxTokens int) *Gemini {
	return &Gemini{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate sends the prompt and returns the model's text response.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generating completion: empty response from model %q", g.model)
	}
	return text, nil
}
