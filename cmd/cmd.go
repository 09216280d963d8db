// Package cmd provides CLI commands for folio.
//
// Commands:
//   - serve:  HTTP API server (chat, ingest, stats)
//   - ingest: run the ingestion pipeline once and print the report
//   - stats:  print vector index statistics
//
// Signal handling and graceful shutdown are implemented for all commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/foliochat/folio/internal/log"
)

// Execute is the main entry point for the folio CLI application.
func Execute() error {
	logger := log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("FOLIO_LOG_JSON") != "",
	})

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ingest":
		return runIngest(logger)
	case "stats":
		return runStats(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("folio - portfolio chat backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  folio serve              Start the HTTP API server")
	fmt.Println("  folio ingest [mode]      Run ingestion (mode: full|incremental, default full)")
	fmt.Println("  folio stats              Show vector index statistics")
	fmt.Println("  folio --version          Show version information")
	fmt.Println("  folio --help             Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY           Required: Gemini API key")
	fmt.Println("  DATABASE_URL             Optional: overrides postgres_* config values")
	fmt.Println("  FOLIO_*                  Optional: override any config.yaml key")
	fmt.Println("  DEBUG                    Optional: enable debug logging")
}
