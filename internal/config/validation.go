package config

import (
	"fmt"
	"os"
)

// Validate checks the configuration for invalid values. Called by Load
// before the config is handed to the application (fail-fast).
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must satisfy 0 <= overlap < chunk_size, got overlap=%d size=%d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.EmbeddingDimension <= 0 || c.EmbeddingDimension > 4096 {
		return fmt.Errorf("%w: embedding_dimension must be in (0, 4096], got %d",
			ErrInvalidDimension, c.EmbeddingDimension)
	}

	if c.TopK <= 0 || c.TopK > 100 {
		return fmt.Errorf("%w: top_k must be in [1, 100], got %d", ErrInvalidRetrieval, c.TopK)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity must be in [0, 1], got %v", ErrInvalidRetrieval, c.MinSimilarity)
	}
	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("%w: max_context_tokens must be positive, got %d",
			ErrInvalidRetrieval, c.MaxContextTokens)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port must be in [1, 65535], got %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgres)
	}

	return nil
}

// ValidateServe checks settings that only matter when running the HTTP
// server and talking to the hosted model.
func (c *Config) ValidateServe() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is not set", ErrMissingAPIKey)
	}
	return nil
}
