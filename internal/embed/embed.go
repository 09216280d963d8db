// Package embed maps text to fixed-dimension dense vectors.
//
// The same provider instance is used at ingestion and query time so
// stored vectors and query vectors live in one comparable space.
package embed

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the embedding provider could not produce a
// vector (network failure, model failure). During ingestion the affected
// resource is skipped; at query time it is fatal to that request.
var ErrUnavailable = errors.New("embedding provider unavailable")

// ErrDimensionMismatch indicates a vector of unexpected length; mixing
// dimensionalities is a fatal configuration error.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder produces a fixed-length vector for a text span. Deterministic
// for identical input and model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
