// Package collect orchestrates scrape runs: it walks the configured
// targets sequentially, hands rendered blocks to the field extractor,
// stamps provenance onto each record, and keeps a per-target ledger.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/reviewkart/reviewkart/internal/config"
	"github.com/reviewkart/reviewkart/internal/types"
)

// Navigator is the browser-facing surface the collector depends on.
type Navigator interface {
	ResolveReviewsURL(ctx context.Context, target types.ScrapeTarget) (string, error)
	CollectBlocks(ctx context.Context, target, reviewsURL string) ([]types.RawBlock, error)
}

// Extractor turns one raw block into a structured record.
type Extractor interface {
	Extract(block types.RawBlock) types.ReviewRecord
}

// DefaultCategory is stamped on records whose target carries none.
const DefaultCategory = "Electronics"

// Collector runs targets one at a time with a randomized pause between
// them. Only a dead browser aborts the whole run; every other failure
// is confined to its target and recorded in the ledger.
type Collector struct {
	nav       Navigator
	extractor Extractor
	cfg       *config.Scraper
	logger    *slog.Logger
	metrics   *Metrics
	rng       *rand.Rand

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Collector.
type Option func(*Collector)

// WithMetrics attaches a metrics bundle to the collector.
func WithMetrics(m *Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// New creates a Collector.
func New(nav Navigator, extractor Extractor, cfg *config.Scraper, logger *slog.Logger, opts ...Option) *Collector {
	c := &Collector{
		nav:       nav,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger.With("component", "collector"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stop requests a graceful shutdown. The target currently being
// processed finishes; no further targets are started. Safe to call
// from any goroutine, any number of times.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Run processes the targets in order and returns the run result. The
// returned error is non-nil only for run-aborting failures (dead
// browser, canceled context); the partial result is still returned.
func (c *Collector) Run(ctx context.Context, targets []types.ScrapeTarget) (*types.RunResult, error) {
	result := &types.RunResult{
		Meta: types.RunMeta{
			Source:    sourceName(c.cfg.BaseURL),
			Timestamp: time.Now().Format(types.TimeFormat),
		},
	}

	c.logger.Info("run starting", "targets", len(targets))

	var fatal error
loop:
	for i, target := range targets {
		select {
		case <-c.stop:
			c.logger.Info("stop requested, ending run early", "completed", i, "remaining", len(targets)-i)
			break loop
		case <-ctx.Done():
			fatal = ctx.Err()
			break loop
		default:
		}

		records, outcome, err := c.processTarget(ctx, target)
		result.Outcomes = append(result.Outcomes, outcome)
		result.Reviews = append(result.Reviews, records...)
		if err != nil {
			fatal = err
			break loop
		}

		if i < len(targets)-1 {
			if err := c.pause(ctx); err != nil {
				if errors.Is(err, types.ErrStopped) {
					c.logger.Info("stop requested during pause", "completed", i+1)
					break loop
				}
				fatal = err
				break loop
			}
		}
	}

	result.Meta.ReviewsCount = len(result.Reviews)
	result.Meta.Failures = result.FailedTargets()
	if len(result.Outcomes) == 1 {
		result.Meta.URL = result.Outcomes[0].URL
	}

	if fatal != nil {
		result.Meta.Success = false
		result.Meta.Error = fatal.Error()
		c.logger.Error("run aborted", "error", fatal, "reviews", len(result.Reviews))
		return result, fatal
	}

	result.Meta.Success = true
	if n := len(result.Outcomes); n > 0 && len(result.Meta.Failures) == n {
		result.Meta.Success = false
		result.Meta.Error = result.Outcomes[0].Error
	}

	c.logger.Info("run finished",
		"success", result.Meta.Success,
		"reviews", len(result.Reviews),
		"failed_targets", len(result.Meta.Failures))
	return result, nil
}

// RunKeyword scrapes a single ad-hoc target by search keyword.
func (c *Collector) RunKeyword(ctx context.Context, keyword, category string) (*types.RunResult, error) {
	target := types.ScrapeTarget{Name: keyword, Category: category}
	result, err := c.Run(ctx, []types.ScrapeTarget{target})
	result.Meta.Keyword = keyword
	return result, err
}

// processTarget handles one target end to end. The returned error is
// non-nil only when the failure is fatal for the whole run.
func (c *Collector) processTarget(ctx context.Context, target types.ScrapeTarget) ([]types.ReviewRecord, types.TargetOutcome, error) {
	start := time.Now()
	defer func() { c.metrics.ObserveTarget(time.Since(start)) }()

	outcome := types.TargetOutcome{Target: target.Name}
	log := c.logger.With("target", target.Name)
	log.Info("processing target", "category", target.Category)

	reviewsURL, err := c.nav.ResolveReviewsURL(ctx, target)
	if err != nil {
		outcome.Error = err.Error()
		if isFatal(err) {
			c.metrics.IncTarget("fatal")
			return nil, outcome, err
		}
		c.metrics.IncTarget("failed")
		log.Warn("could not resolve reviews page", "error", err)
		return nil, outcome, nil
	}
	outcome.URL = reviewsURL

	blocks, err := c.nav.CollectBlocks(ctx, target.Name, reviewsURL)
	if err != nil {
		if isFatal(err) {
			outcome.Error = err.Error()
			c.metrics.IncTarget("fatal")
			return nil, outcome, err
		}
		if errors.Is(err, types.ErrNoReviewsFound) {
			// A product with no reviews is a valid outcome, not a failure.
			c.metrics.IncTarget("empty")
			log.Info("no reviews on page", "url", reviewsURL)
			return nil, outcome, nil
		}
		outcome.Error = err.Error()
		c.metrics.IncTarget("failed")
		log.Warn("block collection failed", "error", err)
		return nil, outcome, nil
	}
	c.metrics.AddBlocks(len(blocks))

	records, extractErr := c.extractBlocks(target, reviewsURL, blocks)
	outcome.Reviews = len(records)
	if extractErr != "" {
		// Partial results are kept; the ledger records the truncation.
		outcome.Error = extractErr
		c.metrics.IncTarget("failed")
		log.Warn("extraction truncated", "error", extractErr, "kept", len(records))
	} else {
		c.metrics.IncTarget("ok")
	}
	c.metrics.AddReviews(len(records))

	log.Info("target done", "reviews", len(records), "url", reviewsURL)
	return records, outcome, nil
}

// extractBlocks converts blocks into stamped records. A panic inside
// extraction is confined to the target: records produced so far are
// kept and the failure is reported as a ledger error.
func (c *Collector) extractBlocks(target types.ScrapeTarget, reviewsURL string, blocks []types.RawBlock) (records []types.ReviewRecord, extractErr string) {
	defer func() {
		if r := recover(); r != nil {
			extractErr = fmt.Sprintf("extraction failed after %d records: %v", len(records), r)
		}
	}()

	category := target.Category
	if category == "" {
		category = DefaultCategory
	}
	productURL := target.URL
	if productURL == "" {
		productURL = reviewsURL
	}
	scrapedAt := time.Now().Format(types.TimeFormat)

	for i, block := range blocks {
		rec := c.extractor.Extract(block)
		rec.Category = category
		rec.ProductName = target.Name
		rec.ProductURL = productURL
		rec.ScrapedDate = scrapedAt
		rec.ProvisionalID = types.NewProvisionalID(target.Name, i)
		records = append(records, rec)
	}
	return records, ""
}

// pause sleeps a randomized duration between DelayMin and DelayMax.
func (c *Collector) pause(ctx context.Context) error {
	d := c.cfg.DelayMin
	if span := c.cfg.DelayMax - c.cfg.DelayMin; span > 0 {
		d += time.Duration(c.rng.Int63n(int64(span)))
	}
	if d <= 0 {
		return nil
	}
	c.logger.Debug("pausing between targets", "delay", d)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stop:
		return types.ErrStopped
	case <-timer.C:
		return nil
	}
}

// isFatal reports whether the error means the browser session is gone.
func isFatal(err error) bool {
	var navErr *types.NavigationError
	if errors.As(err, &navErr) {
		return navErr.Fatal()
	}
	return errors.Is(err, types.ErrDriverFatal)
}

// sourceName derives the short storefront name from the base URL,
// e.g. "https://www.flipkart.com" -> "flipkart".
func sourceName(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	return host
}
