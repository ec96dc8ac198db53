package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-curator/internal/collector"
	"github.com/jonathan/content-curator/internal/ledger"
	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/observability"
	"github.com/jonathan/content-curator/internal/scrape"
	"github.com/jonathan/content-curator/internal/types"
)

var previewSources []string

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Scrape sources and list candidates without selecting or writing anything",
	Long: `Scrape the configured sources and show which articles a run would consider,
split into everything scraped and what is new to the ledger. Nothing is
selected, generated or recorded.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringSliceVarP(&previewSources, "source", "s", nil, "Source URL (repeatable, comma-separated)")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	// only the local backend extracts with the model
	var client llm.Client
	if a.cfg.Scraper.Backend == scrape.BackendLocal {
		if client, err = a.llmClient(ctx); err != nil {
			return err
		}
	}
	scraper, err := a.scraper(client)
	if err != nil {
		return err
	}
	l, err := a.ledger(ctx)
	if err != nil {
		return err
	}

	sources := a.cfg.Sources
	if s := splitList(previewSources); len(s) > 0 {
		sources = s
	}
	c := collector.New(scraper, collector.Options{
		MaxRetries:  a.cfg.Collector.MaxRetries,
		Concurrency: a.cfg.Collector.Concurrency,
		Hint:        a.cfg.Criterion,
		Identity:    a.cfg.IdentityStrategy(),
	}, a.logger, a.metrics)

	return previewCandidates(ctx, c.Collect(ctx, sources), l, os.Stdout)
}

func previewCandidates(ctx context.Context, scraped []types.Candidate, l ledger.Ledger, w io.Writer) error {
	fresh := make([]types.Candidate, 0, len(scraped))
	for _, cand := range scraped {
		seen, err := l.Contains(ctx, string(cand.Identity))
		if err != nil {
			return err
		}
		if !seen {
			fresh = append(fresh, cand)
		}
	}

	p := observability.NewPrinter(w)
	p.PrintCandidates("SCRAPED ARTICLES", scraped)
	p.PrintCandidates("NEW ARTICLES", fresh)
	if len(scraped) == 0 {
		io.WriteString(w, "No articles found.\n")
	} else if len(fresh) == 0 {
		io.WriteString(w, "No new articles; everything scraped is already in the ledger.\n")
	}
	return nil
}
