package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/fetch"
	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/types"
)

const (
	maxListingText  = 12000
	maxListingLinks = 150
)

// LocalScraper implements Scraper without a hosted crawler. Listing pages
// are reduced to text and links with goquery and handed to the LLM, which
// fills the schema. Full text comes from the readability pipeline.
type LocalScraper struct {
	client   llm.Client
	fetchOpt *fetch.Options
	renderer fetch.Renderer
	full     *fetch.CachedFetcher
	tier     llm.ModelTier
	recorder CallRecorder
	logger   *logrus.Logger
}

// LocalOptions configures a LocalScraper.
type LocalOptions struct {
	Client llm.Client
	Fetch  *fetch.Options
	// Renderer, when set, re-renders pages whose HTTP text looks like a
	// JavaScript shell.
	Renderer  fetch.Renderer
	PageCache fetch.PageCache
	Tier      llm.ModelTier
	Recorder  CallRecorder
	Logger    *logrus.Logger
}

// NewLocalScraper returns a LocalScraper.
func NewLocalScraper(opts LocalOptions) (*LocalScraper, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("local scraper requires an LLM client")
	}
	if opts.Fetch == nil {
		opts.Fetch = fetch.DefaultOptions()
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierLite
	}
	return &LocalScraper{
		client:   opts.Client,
		fetchOpt: opts.Fetch,
		renderer: opts.Renderer,
		full: fetch.NewCachedFetcher(opts.PageCache, &fetch.CachedFetcherConfig{
			Options:  opts.Fetch,
			Renderer: opts.Renderer,
			Logger:   opts.Logger,
		}),
		tier:     opts.Tier,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}, nil
}

// Extract implements Scraper.
func (s *LocalScraper) Extract(ctx context.Context, url string, schema Schema, hint string) (Record, error) {
	if strings.TrimSpace(hint) == "" {
		hint = DefaultHint
	}
	if s.recorder != nil {
		s.recorder.RecordScrape(ctx, "extract", 1)
	}

	page, err := s.listingPage(ctx, url)
	if err != nil {
		return Record{}, err
	}

	extraction := llm.ArticleExtractionSchema(hint)
	extraction.Name = schema.Name
	if len(schema.Fields) > 0 {
		extraction.Fields = schema.Fields
	}
	prompt := llm.BuildExtractionPrompt(extraction, page)

	raw, err := s.client.GenerateJSON(ctx, prompt, s.tier)
	if err != nil {
		return Record{}, &SourceError{URL: url, Message: "extraction call failed", Cause: err}
	}
	span, err := llm.Extract(raw, "title", "link")
	if err != nil {
		return Record{}, &SchemaError{URL: url, Schema: schema.Name, Cause: err}
	}
	return decodeRecord(url, schema, span)
}

// FullText implements Scraper.
func (s *LocalScraper) FullText(ctx context.Context, url string) (string, error) {
	if s.recorder != nil {
		s.recorder.RecordScrape(ctx, "scrape", 1)
	}
	text, err := s.full.FullText(ctx, url)
	if err != nil {
		return "", &SourceError{URL: url, Message: "full text fetch failed", Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &SourceError{URL: url, Message: "no readable text"}
	}
	return text, nil
}

// listingPage renders a source page as prompt input: visible text followed
// by its links, both capped.
func (s *LocalScraper) listingPage(ctx context.Context, url string) (string, error) {
	res, err := fetch.URL(ctx, url, s.fetchOpt)
	if err != nil {
		return "", &SourceError{URL: url, Message: "fetch failed", Cause: err}
	}
	html := res.HTML

	text, err := fetch.ExtractMainText(html, []string{"main", "[role='main']"}, fetch.ListingNoiseSelectors()...)
	if err != nil {
		return "", &SourceError{URL: url, Message: "unparseable HTML", Cause: err}
	}

	if fetch.ShouldUseBrowser(text) && s.renderer != nil {
		if rendered, rerr := s.renderer.Render(ctx, url); rerr == nil {
			if t, terr := fetch.ExtractMainText(rendered, []string{"main", "[role='main']"}, fetch.ListingNoiseSelectors()...); terr == nil && len(t) > len(text) {
				html, text = rendered, t
			}
		} else if s.logger != nil {
			s.logger.WithError(rerr).WithField("url", url).Warn("Browser render failed, using HTTP content")
		}
	}

	links, err := fetch.ExtractLinks(html, url)
	if err != nil {
		return "", &SourceError{URL: url, Message: "unparseable HTML", Cause: err}
	}
	if strings.TrimSpace(text) == "" && len(links) == 0 {
		return "", &SourceError{URL: url, Message: "page has no content"}
	}

	var sb strings.Builder
	sb.WriteString("Page URL: ")
	sb.WriteString(url)
	sb.WriteString("\n\nPage text:\n")
	sb.WriteString(types.TruncateRunes(text, maxListingText))
	sb.WriteString("\n\nLinks on the page:\n")
	for i, l := range links {
		if i >= maxListingLinks {
			break
		}
		label := l.Text
		if label == "" {
			label = "(no text)"
		}
		fmt.Fprintf(&sb, "- %s -> %s\n", label, l.Href)
	}
	return sb.String(), nil
}
