package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/foliochat/folio/internal/log"
	"github.com/foliochat/folio/internal/retrieve"
)

// stubRetriever returns canned results or an error.
type stubRetriever struct {
	results []retrieve.Result
	err     error
	gotK    int
}

func (r *stubRetriever) Retrieve(_ context.Context, _ string, k int) ([]retrieve.Result, error) {
	r.gotK = k
	return r.results, r.err
}

// stubGenerator records the prompt and returns canned text.
type stubGenerator struct {
	response string
	err      error
	prompt   string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.response, g.err
}

func skillsResults() []retrieve.Result {
	return []retrieve.Result{
		{
			Text:       "Go, PostgreSQL, Kubernetes, distributed systems.",
			Similarity: 0.91,
			SourceType: "social_profile",
			Source:     "https://github.com/example",
			Title:      "GitHub Profile",
		},
		{
			Text:       "Author of an embedded vector database.",
			Similarity: 0.84,
			SourceType: "repository",
			Source:     "https://github.com/example/vectordb",
			Title:      "Repository: vectordb",
		},
	}
}

func newService(r Retriever, g Generator) *Service {
	return New(r, g, Config{TopK: 5, MaxContextTokens: 1500}, log.NewNop())
}

func TestAskGrounded(t *testing.T) {
	retriever := &stubRetriever{results: skillsResults()}
	generator := &stubGenerator{response: "They work mainly in Go and PostgreSQL."}
	svc := newService(retriever, generator)

	answer, err := svc.Ask(context.Background(), "What skills do they have?")
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}

	if !answer.Grounded {
		t.Error("answer should be grounded")
	}
	if answer.Response != "They work mainly in Go and PostgreSQL." {
		t.Errorf("unexpected response: %q", answer.Response)
	}
	if retriever.gotK != 5 {
		t.Errorf("expected top_k=5 passed to retriever, got %d", retriever.gotK)
	}

	// The prompt must carry both retrieved chunks and the question.
	for _, want := range []string{
		"[Source: GitHub Profile]",
		"Go, PostgreSQL, Kubernetes",
		"[Source: Repository: vectordb]",
		"What skills do they have?",
	} {
		if !strings.Contains(generator.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, generator.prompt)
		}
	}

	if len(answer.Citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(answer.Citations))
	}
	if answer.Citations[0].Source != "https://github.com/example" {
		t.Errorf("citations out of order: %v", answer.Citations)
	}
}

func TestAskUngroundedOnEmptyRetrieval(t *testing.T) {
	retriever := &stubRetriever{results: nil}
	generator := &stubGenerator{response: "I could not consult the portfolio."}
	svc := newService(retriever, generator)

	answer, err := svc.Ask(context.Background(), "What is their favorite color?")
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}

	if answer.Grounded {
		t.Error("answer should not be grounded with no retrieved context")
	}
	if len(answer.Citations) != 0 {
		t.Errorf("ungrounded answer should have no citations, got %v", answer.Citations)
	}
	if strings.Contains(generator.prompt, "Context:") {
		t.Errorf("ungrounded prompt should carry no context block:\n%s", generator.prompt)
	}
}

func TestAskUngroundedOnRetrievalFailure(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("index unavailable")}
	generator := &stubGenerator{response: "Sorry, I answered without the portfolio."}
	svc := newService(retriever, generator)

	answer, err := svc.Ask(context.Background(), "What projects exist?")
	if err != nil {
		t.Fatalf("retrieval failure should degrade, not error: %v", err)
	}
	if answer.Grounded {
		t.Error("answer should not be grounded after retrieval failure")
	}
}

func TestAskGenerationFailure(t *testing.T) {
	retriever := &stubRetriever{results: skillsResults()}
	generator := &stubGenerator{err: errors.New("model overloaded")}
	svc := newService(retriever, generator)

	_, err := svc.Ask(context.Background(), "What skills do they have?")
	if err == nil {
		t.Fatal("expected error when generation fails")
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	svc := newService(&stubRetriever{}, &stubGenerator{})

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Ask(context.Background(), q); err == nil {
			t.Errorf("expected error for question %q", q)
		}
	}
}
