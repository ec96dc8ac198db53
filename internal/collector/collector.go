// Package collector scrapes every configured source and turns the results
// into candidates. Each source is its own failure domain.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/content-curator/internal/metrics"
	"github.com/jonathan/content-curator/internal/scrape"
	"github.com/jonathan/content-curator/internal/types"
)

// Options configures a Collector.
type Options struct {
	// MaxRetries bounds extra attempts per source. The default of zero
	// means one attempt; the next scheduled run is the retry.
	MaxRetries  int
	Concurrency int
	Hint        string
	Identity    types.IdentityStrategy
	RetryDelay  time.Duration
}

// Collector fans scrape calls out over the configured sources.
type Collector struct {
	scraper scrape.Scraper
	schema  scrape.Schema
	opts    Options
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// New returns a Collector. m may be nil.
func New(s scrape.Scraper, opts Options, logger *logrus.Logger, m *metrics.Metrics) *Collector {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Identity == "" {
		opts.Identity = types.IdentityLink
	}
	return &Collector{
		scraper: s,
		schema:  scrape.ArticleSchema(),
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// Collect scrapes each URL and returns at most one candidate per source,
// in the order the sources were given. Failed sources are logged and
// skipped; when two sources yield the same identity the first one wins.
func (c *Collector) Collect(ctx context.Context, urls []string) []types.Candidate {
	slots := make([]*types.Candidate, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			cand, err := c.collectOne(gctx, u)
			if err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{"url": u, "stage": "collect"}).
					Warn("Skipping source")
				return nil
			}
			slots[i] = &cand
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[types.Identity]bool, len(slots))
	out := make([]types.Candidate, 0, len(slots))
	for _, cand := range slots {
		if cand == nil || seen[cand.Identity] {
			continue
		}
		seen[cand.Identity] = true
		out = append(out, *cand)
	}
	return out
}

func (c *Collector) collectOne(ctx context.Context, sourceURL string) (types.Candidate, error) {
	start := time.Now()

	policy := retrypolicy.NewBuilder[scrape.Record]().
		WithMaxRetries(c.opts.MaxRetries).
		WithBackoff(c.opts.RetryDelay, 4*c.opts.RetryDelay).
		HandleIf(func(_ scrape.Record, err error) bool {
			// a schema mismatch will not fix itself on retry
			var schemaErr *scrape.SchemaError
			return err != nil && !errors.As(err, &schemaErr) && ctx.Err() == nil
		}).
		ReturnLastFailure().
		Build()

	rec, err := failsafe.With(policy).WithContext(ctx).Get(func() (scrape.Record, error) {
		return c.scraper.Extract(ctx, sourceURL, c.schema, c.opts.Hint)
	})
	if err != nil {
		c.metrics.SourceScraped(false, time.Since(start))
		return types.Candidate{}, err
	}

	cand := types.NewCandidate(sourceURL, rec.Title, rec.Link, rec.Author, rec.Date, rec.Description, c.opts.Identity)
	if err := cand.Validate(); err != nil {
		c.metrics.SourceScraped(false, time.Since(start))
		return types.Candidate{}, &scrape.SchemaError{URL: sourceURL, Schema: c.schema.Name, Cause: err}
	}
	c.metrics.SourceScraped(true, time.Since(start))
	return cand, nil
}
