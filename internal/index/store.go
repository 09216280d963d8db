package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/foliochat/folio/internal/log"
)

// Store is the pgvector-backed index. Safe for concurrent readers; the
// ingestion pipeline serializes writers.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	logger    log.Logger
}

// NewStore creates a Store over an open pool. dimension must match the
// vector column in db/migrations.
func NewStore(pool *pgxpool.Pool, dimension int, logger log.Logger) *Store {
	return &Store{pool: pool, dimension: dimension, logger: logger}
}

// Upsert atomically replaces all entries previously associated with
// resourceID. Delete and insert run in one transaction, so readers see
// the old set or the new set, never a mix.
func (s *Store) Upsert(ctx context.Context, resourceID string, entries []Entry) error {
	for _, e := range entries {
		if len(e.Embedding) != s.dimension {
			return fmt.Errorf("%w: entry %q has %d dimensions, index expects %d",
				ErrDimensionMismatch, e.ChunkID, len(e.Embedding), s.dimension)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning upsert transaction: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE resource_id = $1`, resourceID); err != nil {
		return fmt.Errorf("%w: deleting stale entries for %q: %v", ErrUnavailable, resourceID, err)
	}

	const insert = `
		INSERT INTO chunks (id, resource_id, chunk_index, content, embedding, source_type, source, title)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, e := range entries {
		vec := pgvector.NewVector(e.Embedding)
		if _, err := tx.Exec(ctx, insert,
			e.ChunkID, e.ResourceID, e.ChunkIndex, e.Text, vec, e.SourceType, e.Source, e.Title,
		); err != nil {
			return fmt.Errorf("%w: inserting entry %q: %v", ErrUnavailable, e.ChunkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing upsert for %q: %v", ErrUnavailable, resourceID, err)
	}

	s.logger.Debug("upserted resource entries", "resource_id", resourceID, "entries", len(entries))
	return nil
}

// Search returns up to k nearest entries by cosine similarity, ties
// broken by insertion sequence.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	const query = `
		SELECT id, resource_id, chunk_index, content, embedding, source_type, source, title,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks
		ORDER BY embedding <=> $1, seq
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var vec pgvector.Vector
		if err := rows.Scan(&m.ChunkID, &m.ResourceID, &m.ChunkIndex, &m.Text, &vec,
			&m.SourceType, &m.Source, &m.Title, &m.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning search row: %v", ErrUnavailable, err)
		}
		m.Embedding = vec.Slice()
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading search rows: %v", ErrUnavailable, err)
	}

	return matches, nil
}

// Clear removes all entries. Used by full-rebuild ingestion.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("%w: clearing index: %v", ErrUnavailable, err)
	}
	return nil
}

// Count returns the total number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting entries: %v", ErrUnavailable, err)
	}
	return int(count), nil
}

// CountBySourceType returns entry counts grouped by source type, used by
// the statistics endpoint.
func (s *Store) CountBySourceType(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT source_type, count(*) FROM chunks GROUP BY source_type`)
	if err != nil {
		return nil, fmt.Errorf("%w: counting by source type: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sourceType string
		var count int64
		if err := rows.Scan(&sourceType, &count); err != nil {
			return nil, fmt.Errorf("%w: scanning count row: %v", ErrUnavailable, err)
		}
		counts[sourceType] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading count rows: %v", ErrUnavailable, err)
	}

	return counts, nil
}
