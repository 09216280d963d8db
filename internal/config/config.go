// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (FOLIO_* and DATABASE_URL)
//  2. Config file (config.yaml in the working directory or ~/.folio/)
//  3. Default values
//
// Sensitive fields (PostgresPassword) are masked in MarshalJSON and
// String so the config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is.
var (
	// ErrMissingAPIKey indicates the Gemini API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidChunking indicates chunk_size/chunk_overlap are out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidPostgres indicates the PostgreSQL settings are invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidRetrieval indicates top_k or min_similarity are out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the pgvector schema uses 768.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultChatModel is the default Gemini generation model.
	DefaultChatModel = "gemini-2.5-flash"

	// DefaultEmbeddingDimension matches the vector(768) column in db/migrations.
	DefaultEmbeddingDimension = 768
)

// ScraperConfig holds fetch behavior for remote resources.
type ScraperConfig struct {
	// Parallelism is max concurrent requests per domain (default: 2)
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is delay between requests in milliseconds (default: 1000)
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// UserAgent is sent on outbound fetches.
	UserAgent string `mapstructure:"user_agent" json:"user_agent"`
}

// Config stores application configuration.
type Config struct {
	// Resource catalog
	CatalogPath  string `mapstructure:"catalog_path" json:"catalog_path"`
	ResourcesDir string `mapstructure:"resources_dir" json:"resources_dir"`

	// Chunking
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Embedding
	EmbedderModel      string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension" json:"embedding_dimension"`

	// Retrieval
	TopK             int     `mapstructure:"top_k" json:"top_k"`
	MinSimilarity    float32 `mapstructure:"min_similarity" json:"min_similarity"`
	MaxContextTokens int     `mapstructure:"max_context_tokens" json:"max_context_tokens"`

	// Chat generation
	ChatModel   string  `mapstructure:"chat_model" json:"chat_model"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Ingestion
	LockPath   string `mapstructure:"lock_path" json:"lock_path"`
	OCRCommand string `mapstructure:"ocr_command" json:"ocr_command"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Fetching
	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".folio"))
	}

	setDefaults(v)

	v.SetEnvPrefix("FOLIO")
	// Nested keys like scraper.parallelism map to FOLIO_SCRAPER_PARALLELISM.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog_path", "resources/resources.yaml")
	v.SetDefault("resources_dir", "resources")

	v.SetDefault("chunk_size", 500)
	v.SetDefault("chunk_overlap", 50)

	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedding_dimension", DefaultEmbeddingDimension)

	v.SetDefault("top_k", 5)
	v.SetDefault("min_similarity", 0.25)
	v.SetDefault("max_context_tokens", 1500)

	v.SetDefault("chat_model", DefaultChatModel)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2048)

	v.SetDefault("lock_path", filepath.Join(os.TempDir(), "folio-ingest.lock"))
	v.SetDefault("ocr_command", "")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "folio")
	v.SetDefault("postgres_password", "folio_dev_password")
	v.SetDefault("postgres_db_name", "folio")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_burst", 60)

	v.SetDefault("scraper.parallelism", 2)
	v.SetDefault("scraper.delay_ms", 1000)
	v.SetDefault("scraper.timeout_ms", 30000)
	v.SetDefault("scraper.user_agent", "folio-rag/1.0 (+https://github.com/foliochat/folio)")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars
// or fewer are fully masked to prevent substring matching; longer ones
// keep the first and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
