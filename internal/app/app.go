// Package app wires configuration, storage, and services into a running
// application container.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/foliochat/folio/db"
	"github.com/foliochat/folio/internal/chat"
	"github.com/foliochat/folio/internal/config"
	"github.com/foliochat/folio/internal/database"
	"github.com/foliochat/folio/internal/embed"
	"github.com/foliochat/folio/internal/index"
	"github.com/foliochat/folio/internal/ingest"
	"github.com/foliochat/folio/internal/log"
	"github.com/foliochat/folio/internal/retrieve"
	"github.com/foliochat/folio/internal/source"
)

// App is the application container. Setup builds every component from
// configuration; Close releases them.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Pool     *pgxpool.Pool
	Index    *index.Store
	Pipeline *ingest.Pipeline
	Chat     *chat.Service
}

// Setup initializes the application: database pool (with migrations),
// Gemini client shared by embedder and generator, document loader,
// ingestion pipeline, retriever, and chat service.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	embedder := embed.NewGeminiWithClient(client, cfg.EmbedderModel, cfg.EmbeddingDimension)
	generator := chat.NewGemini(client, cfg.ChatModel, cfg.Temperature, cfg.MaxTokens)

	store := index.NewStore(pool, cfg.EmbeddingDimension, logger)

	fetcher, err := source.NewWebFetcher(cfg.Scraper, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating web fetcher: %w", err)
	}
	var ocr source.OCR
	if engine := source.NewCommandOCR(cfg.OCRCommand); engine != nil {
		ocr = engine
	}
	loader := source.NewLoader(fetcher, ocr, cfg.ResourcesDir)

	pipeline := ingest.New(ingest.Config{
		CatalogPath:  cfg.CatalogPath,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		LockPath:     cfg.LockPath,
	}, loader, embedder, store, logger)

	retriever := retrieve.NewRetriever(embedder, store, cfg.MinSimilarity, logger)
	chatService := chat.New(retriever, generator, chat.Config{
		TopK:             cfg.TopK,
		MaxContextTokens: cfg.MaxContextTokens,
	}, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Index:    store,
		Pipeline: pipeline,
		Chat:     chatService,
	}, nil
}

// Close releases application resources.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
