package scrape

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/fetch"
	"github.com/jonathan/content-curator/internal/httpx"
	"github.com/jonathan/content-curator/internal/llm"
)

// Options selects and configures a Scraper backend.
type Options struct {
	Backend      string
	FirecrawlURL string
	FirecrawlKey string
	LLM          llm.Client
	UseBrowser   bool
	PageCache    fetch.PageCache
	Retry        httpx.Config
	HTTPClient   *http.Client
	Recorder     CallRecorder
	Logger       *logrus.Logger
}

// New builds the configured Scraper. Firecrawl is the default backend.
func New(opts Options) (Scraper, error) {
	switch opts.Backend {
	case BackendFirecrawl, "":
		return NewFirecrawlScraper(FirecrawlOptions{
			BaseURL:    opts.FirecrawlURL,
			APIKey:     opts.FirecrawlKey,
			HTTPClient: opts.HTTPClient,
			Retry:      opts.Retry,
			Recorder:   opts.Recorder,
		})
	case BackendLocal:
		fo := fetch.DefaultOptions()
		fo.Client = opts.HTTPClient
		fo.Retries = opts.Retry.MaxRetries
		var renderer fetch.Renderer
		if opts.UseBrowser {
			renderer = &fetch.BrowserRenderer{Timeout: 45 * time.Second, Logger: opts.Logger}
		}
		return NewLocalScraper(LocalOptions{
			Client:    opts.LLM,
			Fetch:     fo,
			Renderer:  renderer,
			PageCache: opts.PageCache,
			Recorder:  opts.Recorder,
			Logger:    opts.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown scraper backend %q", opts.Backend)
	}
}
