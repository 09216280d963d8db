// Package testutil provides shared testing utilities for the folio
// project: a deterministic fake embedder and a pgvector-enabled
// PostgreSQL test container.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Embedder is a deterministic in-process embedder for tests. Texts with
// an entry in Vectors get that exact vector; every other text gets a
// unit vector derived from its hash, so identical texts always embed
// identically and distinct texts almost never collide.
type Embedder struct {
	Dim     int
	Vectors map[string][]float32
	Err     error
}

// NewEmbedder creates a fake embedder of the given dimension.
func NewEmbedder(dim int) *Embedder {
	return &Embedder{Dim: dim, Vectors: make(map[string][]float32)}
}

// Set pins the vector returned for an exact text. The vector is
// normalized so cosine similarity behaves like the real embedder.
func (e *Embedder) Set(text string, vector []float32) {
	e.Vectors[text] = normalize(vector)
}

// Embed returns the pinned or hash-derived vector for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	return hashVector(text, e.Dim), nil
}

// Dimension returns the embedder's vector dimension.
func (e *Embedder) Dimension() int {
	return e.Dim
}

// hashVector expands the SHA-256 of text into a unit vector.
func hashVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))
	buf := seed[:]
	for i := range vector {
		if len(buf) < 4 {
			next := sha256.Sum256(buf)
			buf = next[:]
		}
		bits := binary.BigEndian.Uint32(buf[:4])
		buf = buf[4:]
		// Map to [-1, 1).
		vector[i] = float32(int32(bits)) / float32(math.MaxInt32)
	}
	return normalize(vector)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
