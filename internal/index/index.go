// Package index persists embedded chunks and serves nearest-neighbor
// similarity search over them.
//
// Two implementations share the same semantics: Store, backed by
// PostgreSQL + pgvector, and Memory, a map-backed store used in tests
// and anywhere a database is unwanted. Both guarantee:
//
//   - Upsert replaces a resource's entries atomically; readers never see
//     a resource partially replaced.
//   - Search ranks by cosine similarity, breaking ties by insertion
//     order (earlier entry first) so results are deterministic.
package index

import "errors"

// ErrUnavailable indicates the index cannot be opened, read or written.
// Fatal to the current ingestion run or retrieval request.
var ErrUnavailable = errors.New("vector index unavailable")

// ErrDimensionMismatch indicates an entry or query vector whose length
// does not match the index's configured dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is a persisted (vector, chunk text, metadata) tuple. Entries are
// never mutated in place; Upsert replaces them wholesale per resource.
type Entry struct {
	ChunkID    string
	ResourceID string
	ChunkIndex int
	Text       string
	Embedding  []float32

	// Citation metadata.
	SourceType string
	Source     string
	Title      string
}

// Match is an Entry returned by Search together with its cosine
// similarity to the query vector.
type Match struct {
	Entry
	Similarity float32
}
