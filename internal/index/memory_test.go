package index

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func entry(chunkID, resourceID, sourceType string, embedding []float32) Entry {
	return Entry{
		ChunkID:    chunkID,
		ResourceID: resourceID,
		Text:       "text of " + chunkID,
		Embedding:  embedding,
		SourceType: sourceType,
		Source:     "https://example.com/" + resourceID,
		Title:      resourceID,
	}
}

func TestMemoryUpsertReplacesResource(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	err := m.Upsert(ctx, "a", []Entry{
		entry("a_1", "a", "article", []float32{1, 0, 0}),
		entry("a_2", "a", "article", []float32{0, 1, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	err = m.Upsert(ctx, "b", []Entry{
		entry("b_1", "b", "paper", []float32{0, 0, 1}),
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	// Re-upserting a replaces its entries but leaves b untouched.
	err = m.Upsert(ctx, "a", []Entry{
		entry("a_3", "a", "article", []float32{1, 1, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	count, err := m.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", count)
	}

	matches, err := m.Search(ctx, []float32{0, 0, 1}, 10)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	for _, match := range matches {
		if match.ChunkID == "a_1" || match.ChunkID == "a_2" {
			t.Errorf("replaced entry %q still searchable", match.ChunkID)
		}
	}
}

func TestMemorySearchOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	err := m.Upsert(ctx, "r", []Entry{
		entry("exact", "r", "article", []float32{1, 0}),
		entry("diagonal", "r", "article", []float32{1, 1}),
		entry("orthogonal", "r", "article", []float32{0, 1}),
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	matches, err := m.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}

	wantOrder := []string{"exact", "diagonal", "orthogonal"}
	for i, want := range wantOrder {
		if matches[i].ChunkID != want {
			t.Errorf("match %d: expected %q, got %q", i, want, matches[i].ChunkID)
		}
	}

	if matches[0].Similarity <= matches[1].Similarity || matches[1].Similarity <= matches[2].Similarity {
		t.Errorf("similarities not strictly decreasing: %v, %v, %v",
			matches[0].Similarity, matches[1].Similarity, matches[2].Similarity)
	}
}

func TestMemorySearchTieBreak(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	// Identical vectors tie on similarity; insertion order must decide.
	err := m.Upsert(ctx, "r", []Entry{
		entry("first", "r", "article", []float32{1, 0}),
		entry("second", "r", "article", []float32{1, 0}),
		entry("third", "r", "article", []float32{1, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	matches, err := m.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if matches[i].ChunkID != want {
			t.Errorf("match %d: expected %q, got %q", i, want, matches[i].ChunkID)
		}
	}
}

func TestMemorySearchLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	var entries []Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, entry(fmt.Sprintf("c%d", i), "r", "article", []float32{1, float32(i)}))
	}
	if err := m.Upsert(ctx, "r", entries); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	matches, err := m.Search(ctx, []float32{1, 0}, 4)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(matches) != 4 {
		t.Errorf("expected 4 matches, got %d", len(matches))
	}

	matches, err = m.Search(ctx, []float32{1, 0}, 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches for k=0, got %d", len(matches))
	}
}

func TestMemoryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	err := m.Upsert(ctx, "r", []Entry{entry("c", "r", "article", []float32{1, 0})})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Upsert error should be ErrDimensionMismatch, got: %v", err)
	}

	_, err = m.Search(ctx, []float32{1, 0}, 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search error should be ErrDimensionMismatch, got: %v", err)
	}
}

func TestMemoryClearAndStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	err := m.Upsert(ctx, "a", []Entry{
		entry("a_1", "a", "article", []float32{1, 0}),
		entry("a_2", "a", "article", []float32{0, 1}),
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	err = m.Upsert(ctx, "b", []Entry{
		entry("b_1", "b", "paper", []float32{1, 1}),
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	counts, err := m.CountBySourceType(ctx)
	if err != nil {
		t.Fatalf("CountBySourceType returned error: %v", err)
	}
	if counts["article"] != 2 || counts["paper"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	count, err := m.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty index after Clear, got %d entries", count)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
