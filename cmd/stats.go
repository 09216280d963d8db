package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/foliochat/folio/internal/app"
	"github.com/foliochat/folio/internal/config"
	"github.com/foliochat/folio/internal/log"
)

// runStats prints vector index statistics.
func runStats(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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

	total, err := a.Index.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting index entries: %w", err)
	}
	byType, err := a.Index.CountBySourceType(ctx)
	if err != nil {
		return fmt.Errorf("counting index entries by source type: %w", err)
	}

	fmt.Printf("Vector index: %d entries\n", total)
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-16s %d\n", t, byType[t])
	}
	return nil
}
