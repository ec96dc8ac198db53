// Package enrich replaces the selected candidate's summary with its full text.
package enrich

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/types"
)

// TextSource fetches the readable body of an article. scrape.Scraper
// satisfies it.
type TextSource interface {
	FullText(ctx context.Context, url string) (string, error)
}

// Enricher fetches full text for exactly one candidate per run.
type Enricher struct {
	source TextSource
	logger *logrus.Logger
}

// New returns an Enricher.
func New(source TextSource, logger *logrus.Logger) *Enricher {
	return &Enricher{source: source, logger: logger}
}

// Enrich returns the candidate with its summary replaced by the fetched
// text, capped at types.MaxContentLength characters. On any failure the
// candidate comes back unchanged as a Fallback.
func (e *Enricher) Enrich(ctx context.Context, c types.Candidate) types.Outcome[types.Candidate] {
	text, err := e.source.FullText(ctx, c.Link)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty full text")
	}
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{"stage": "enrich", "url": c.Link}).
			Warn("Keeping short-form summary")
		return types.Fallback(c, err)
	}

	c.Summary = types.TruncateRunes(strings.TrimSpace(text), types.MaxContentLength)
	return types.Ok(c)
}
