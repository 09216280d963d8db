package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is an in-memory index with the same semantics as Store. Tests
// and single-process setups substitute it through the consumer
// interfaces in ingest and retrieve.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	entries   []memoryEntry
	nextSeq   int64
}

type memoryEntry struct {
	seq   int64
	entry Entry
}

// NewMemory creates an empty in-memory index for vectors of the given
// dimension.
func NewMemory(dimension int) *Memory {
	return &Memory{dimension: dimension}
}

// Upsert replaces all entries for resourceID under one lock acquisition,
// mirroring the transactional replace of the pgvector store.
func (m *Memory) Upsert(_ context.Context, resourceID string, entries []Entry) error {
	for _, e := range entries {
		if len(e.Embedding) != m.dimension {
			return fmt.Errorf("%w: entry %q has %d dimensions, index expects %d",
				ErrDimensionMismatch, e.ChunkID, len(e.Embedding), m.dimension)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, me := range m.entries {
		if me.entry.ResourceID != resourceID {
			kept = append(kept, me)
		}
	}
	m.entries = kept

	for _, e := range entries {
		m.nextSeq++
		m.entries = append(m.entries, memoryEntry{seq: m.nextSeq, entry: e})
	}
	return nil
}

// Search ranks all entries by cosine similarity to vector and returns
// the top k. Ties rank the earlier-inserted entry first.
func (m *Memory) Search(_ context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			ErrDimensionMismatch, len(vector), m.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		seq        int64
		entry      Entry
		similarity float32
	}
	results := make([]scored, 0, len(m.entries))
	for _, me := range m.entries {
		results = append(results, scored{
			seq:        me.seq,
			entry:      me.entry,
			similarity: cosineSimilarity(vector, me.entry.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].similarity != results[j].similarity {
			return results[i].similarity > results[j].similarity
		}
		return results[i].seq < results[j].seq
	})

	if len(results) > k {
		results = results[:k]
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{Entry: r.entry, Similarity: r.similarity})
	}
	return matches, nil
}

// Clear removes all entries.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// Count returns the total number of entries.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// CountBySourceType returns entry counts grouped by source type.
func (m *Memory) CountBySourceType(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, me := range m.entries {
		counts[me.entry.SourceType]++
	}
	return counts, nil
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Zero vectors yield similarity 0.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
