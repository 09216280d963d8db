// Package ingest orchestrates the ingestion pipeline:
// catalog → loader → chunker → embedder → vector index.
//
// A run processes resources in catalog order. Per-resource failures
// (extraction, embedding) are recorded in the report and never abort the
// run; catalog and index failures are fatal. Runs are single-writer,
// serialized by an in-process mutex plus a file lock so a CLI ingest and
// a server-triggered ingest cannot interleave.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/foliochat/folio/internal/catalog"
	"github.com/foliochat/folio/internal/chunk"
	"github.com/foliochat/folio/internal/embed"
	"github.com/foliochat/folio/internal/index"
	"github.com/foliochat/folio/internal/log"
	"github.com/foliochat/folio/internal/source"
)

// ErrRunInProgress indicates another ingestion run holds the run lock.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Mode selects how a run updates the index.
type Mode string

const (
	// ModeFullRebuild clears the index before processing, so afterwards it
	// contains exactly the chunks of every resource that did not fail.
	ModeFullRebuild Mode = "full_rebuild"

	// ModeIncremental upserts per resource without clearing. Resources
	// removed from the catalog since the last run are not purged; a
	// periodic full rebuild is the remedy for that staleness gap.
	ModeIncremental Mode = "incremental"
)

// ParseMode maps the short mode names used by the CLI and the ingest
// endpoint onto Mode values.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "full", string(ModeFullRebuild):
		return ModeFullRebuild, nil
	case "incremental", "inc":
		return ModeIncremental, nil
	default:
		return "", fmt.Errorf("unknown ingestion mode %q", s)
	}
}

// Failure records one resource that could not be ingested.
type Failure struct {
	ResourceID string `json:"resource_id"`
	Reason     string `json:"reason"`
}

// Report summarizes an ingestion run. Operators inspect it to see which
// sources are stale.
type Report struct {
	Mode         Mode          `json:"mode"`
	Succeeded    []string      `json:"succeeded"`
	Failed       []Failure     `json:"failed"`
	TotalChunks  int           `json:"total_chunks"`
	TotalEntries int           `json:"total_entries"`
	Duration     time.Duration `json:"-"`
}

// MarshalJSON reports the run duration in whole milliseconds rather
// than time.Duration's nanosecond integer encoding.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain: plain(r), DurationMS: r.Duration.Milliseconds()})
}

// Loader is the document-loading capability consumed by the pipeline.
type Loader interface {
	Load(ctx context.Context, res catalog.Resource) (source.Document, error)
}

// Index is the write side of the vector index consumed by the pipeline.
type Index interface {
	Upsert(ctx context.Context, resourceID string, entries []index.Entry) error
	Clear(ctx context.Context) error
}

// Config carries pipeline parameters.
type Config struct {
	CatalogPath  string
	ChunkSize    int
	ChunkOverlap int
	LockPath     string
}

// Pipeline runs ingestion end to end.
type Pipeline struct {
	cfg      Config
	loader   Loader
	embedder embed.Embedder
	idx      Index
	logger   log.Logger

	mu   sync.Mutex
	lock *flock.Flock
}

// New creates a Pipeline.
func New(cfg Config, loader Loader, embedder embed.Embedder, idx Index, logger log.Logger) *Pipeline {
	var lock *flock.Flock
	if cfg.LockPath != "" {
		lock = flock.New(cfg.LockPath)
	}
	return &Pipeline{
		cfg:      cfg,
		loader:   loader,
		embedder: embedder,
		idx:      idx,
		logger:   logger,
		lock:     lock,
	}
}

// Run executes one ingestion run. Per-resource failures are collected in
// the report; the returned error is non-nil only for run-fatal
// conditions (invalid catalog, unavailable index, cancellation, lock
// contention). On cancellation the report covers the resources completed
// so far and the index retains every completed upsert.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (*Report, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	if p.lock != nil {
		locked, err := p.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquiring run lock: %w", err)
		}
		if !locked {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := p.lock.Unlock(); err != nil {
				p.logger.Warn("releasing run lock failed", "error", err)
			}
		}()
	}

	start := time.Now()
	report := &Report{Mode: mode, Succeeded: []string{}, Failed: []Failure{}}

	resources, err := catalog.Load(p.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	if mode == ModeFullRebuild {
		if err := p.idx.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing index for full rebuild: %w", err)
		}
	}

	for _, res := range resources {
		// Cancellation is honored between resources only; a completed
		// upsert is never rolled back.
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("ingestion canceled after %d resources: %w",
				len(report.Succeeded)+len(report.Failed), err)
		}

		entries, chunkCount, err := p.processResource(ctx, res)
		if err != nil {
			if errors.Is(err, index.ErrUnavailable) || errors.Is(err, index.ErrDimensionMismatch) {
				report.Duration = time.Since(start)
				return report, err
			}
			p.logger.Warn("resource ingestion failed", "resource_id", res.ID, "error", err)
			report.Failed = append(report.Failed, Failure{ResourceID: res.ID, Reason: err.Error()})
			continue
		}

		report.Succeeded = append(report.Succeeded, res.ID)
		report.TotalChunks += chunkCount
		report.TotalEntries += len(entries)
	}

	report.Duration = time.Since(start)
	p.logger.Info("ingestion run complete",
		"mode", mode,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"entries", report.TotalEntries,
		"duration", report.Duration,
	)
	return report, nil
}

// processResource loads, chunks, embeds and upserts one resource.
func (p *Pipeline) processResource(ctx context.Context, res catalog.Resource) ([]index.Entry, int, error) {
	doc, err := p.loader.Load(ctx, res)
	if err != nil {
		return nil, 0, err
	}

	chunks, err := chunk.Split(doc, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		// Invalid chunking parameters fail every resource identically;
		// still reported per resource so the report shows the cause.
		return nil, 0, err
	}
	if len(chunks) == 0 {
		return nil, 0, fmt.Errorf("%w: resource %q produced no chunks", source.ErrExtraction, res.ID)
	}

	entries := make([]index.Entry, 0, len(chunks))
	for _, c := range chunks {
		vector, err := p.embedder.Embed(ctx, c.Text)
		if err != nil {
			return nil, 0, fmt.Errorf("embedding chunk %d of %q: %w", c.Index, res.ID, err)
		}
		entries = append(entries, index.Entry{
			ChunkID:    c.ID,
			ResourceID: c.ResourceID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Embedding:  vector,
			SourceType: c.SourceType,
			Source:     c.Source,
			Title:      c.Title,
		})
	}

	if err := p.idx.Upsert(ctx, res.ID, entries); err != nil {
		return nil, 0, err
	}
	return entries, len(chunks), nil
}
