package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foliochat/folio/internal/app"
	"github.com/foliochat/folio/internal/config"
	"github.com/foliochat/folio/internal/ingest"
	"github.com/foliochat/folio/internal/log"
)

// runIngest runs one ingestion pass and prints the report.
func runIngest(logger log.Logger) error {
	modeArg := ""
	if len(os.Args) > 2 {
		modeArg = os.Args[2]
	}
	mode, err := ingest.ParseMode(modeArg)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	report, err := a.Pipeline.Run(ctx, mode)
	if report != nil {
		printReport(report)
	}
	return err
}

func printReport(r *ingest.Report) {
	fmt.Printf("Ingestion (%s) finished in %s\n", r.Mode, r.Duration.Round(time.Millisecond))
	fmt.Printf("  Succeeded: %d resources\n", len(r.Succeeded))
	fmt.Printf("  Chunks:    %d\n", r.TotalChunks)
	fmt.Printf("  Entries:   %d\n", r.TotalEntries)
	if len(r.Failed) > 0 {
		fmt.Printf("  Failed:    %d resources\n", len(r.Failed))
		for _, f := range r.Failed {
			fmt.Printf("    - %s: %s\n", f.ResourceID, f.Reason)
		}
	}
}
