// Package chat answers visitor questions by grounding a completion model
// in retrieved portfolio content.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/foliochat/folio/internal/log"
	"github.com/foliochat/folio/internal/retrieve"
)

// Retriever is the retrieval capability consumed by the chat service.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieve.Result, error)
}

// Answer is the service's reply to one question.
type Answer struct {
	Response  string              `json:"response"`
	Citations []retrieve.Citation `json:"citations"`
	// Grounded is false when retrieval failed or returned nothing and the
	// reply was generated without portfolio context.
	Grounded bool `json:"grounded"`
}

// Config carries chat service parameters.
type Config struct {
	TopK             int
	MaxContextTokens int
}

// Service wires retrieval, context assembly and generation together.
type Service struct {
	retriever Retriever
	generator Generator
	cfg       Config
	logger    log.Logger
}

// New creates a chat Service.
func New(retriever Retriever, generator Generator, cfg Config, logger log.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ask answers one question. Retrieval failures degrade to an ungrounded
// reply rather than an error; only generation failures are returned.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	results, err := s.retriever.Retrieve(ctx, question, s.cfg.TopK)
	if err != nil {
		s.logger.Warn("retrieval failed, answering without context", "error", err)
		return s.ungrounded(ctx, question)
	}

	assembled := retrieve.Assemble(results, s.cfg.MaxContextTokens)
	if assembled.Text == "" {
		return s.ungrounded(ctx, question)
	}

	response, err := s.generator.Generate(ctx, groundedPrompt(question, assembled.Text))
	if err != nil {
		return nil, err
	}

	return &Answer{
		Response:  response,
		Citations: assembled.Citations,
		Grounded:  true,
	}, nil
}

func (s *Service) ungrounded(ctx context.Context, question string) (*Answer, error) {
	response, err := s.generator.Generate(ctx, ungroundedPrompt(question))
	if err != nil {
		return nil, err
	}
	return &Answer{Response: response, Citations: []retrieve.Citation{}, Grounded: false}, nil
}

func groundedPrompt(question, context string) string {
	var b strings.Builder
	b.WriteString("You are the assistant for a personal portfolio website. ")
	b.WriteString("Answer the visitor's question about the portfolio owner's background, ")
	b.WriteString("projects, publications, and skills using only the context below. ")
	b.WriteString("If the context does not contain the answer, say so.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func ungroundedPrompt(question string) string {
	var b strings.Builder
	b.WriteString("You are the assistant for a personal portfolio website. ")
	b.WriteString("No portfolio content is available for this question. ")
	b.WriteString("Answer briefly and note that you could not consult the portfolio.\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
