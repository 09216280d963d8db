package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/foliochat/folio/internal/config"
	"github.com/foliochat/folio/internal/log"
)

// maxResponseBytes caps fetched response bodies. Profile pages and
// READMEs should never come close; this guards against serving mishaps.
const maxResponseBytes = 5 * 1024 * 1024

// WebFetcher retrieves remote resources through a rate-limited colly
// collector. Per-domain parallelism and delay come from ScraperConfig so
// ingestion stays polite toward the sites it summarizes.
type WebFetcher struct {
	base    *colly.Collector
	timeout time.Duration
	logger  log.Logger
}

// NewWebFetcher builds a fetcher from scraper configuration.
func NewWebFetcher(cfg config.ScraperConfig, logger log.Logger) (*WebFetcher, error) {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.MaxBodySize(maxResponseBytes),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)

	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 2
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       time.Duration(cfg.DelayMs) * time.Millisecond,
	}); err != nil {
		return nil, fmt.Errorf("configuring fetch limits: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.SetRequestTimeout(timeout)

	return &WebFetcher{base: c, timeout: timeout, logger: logger}, nil
}

// Get fetches url and returns the response body. A timeout is reported
// as an ordinary fetch failure; the caller treats it like any other
// per-resource error.
func (f *WebFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch canceled: %w", err)
	}

	// Clone per call: OnResponse/OnError callbacks are request-scoped
	// state, and the clone shares the parent's limit rules.
	c := f.base.Clone()
	c.Context = ctx

	var (
		body     []byte
		status   int
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	start := time.Now()
	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, fetchErr)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, status)
	}
	if len(body) == 0 {
		return nil, errors.New("fetching " + url + ": empty response body")
	}

	f.logger.Debug("fetched resource", "url", url, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}
