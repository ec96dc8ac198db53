package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/content-curator/internal/httpx"
)

// DefaultFirecrawlURL is the hosted Firecrawl API.
const DefaultFirecrawlURL = "https://api.firecrawl.dev"

// FirecrawlScraper implements Scraper over the Firecrawl v1 scrape endpoint.
type FirecrawlScraper struct {
	baseURL  string
	apiKey   string
	executor *httpx.Executor
	recorder CallRecorder
}

// FirecrawlOptions configures a FirecrawlScraper.
type FirecrawlOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Retry      httpx.Config
	Recorder   CallRecorder
}

// NewFirecrawlScraper returns a scraper for the given Firecrawl deployment.
func NewFirecrawlScraper(opts FirecrawlOptions) (*FirecrawlScraper, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("firecrawl API key is required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultFirecrawlURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &FirecrawlScraper{
		baseURL:  base,
		apiKey:   opts.APIKey,
		executor: httpx.NewExecutor(client, opts.Retry),
		recorder: opts.Recorder,
	}, nil
}

type firecrawlRequest struct {
	URL             string               `json:"url"`
	Formats         []string             `json:"formats"`
	OnlyMainContent bool                 `json:"onlyMainContent"`
	JSONOptions     *firecrawlJSONOption `json:"jsonOptions,omitempty"`
}

type firecrawlJSONOption struct {
	Schema json.RawMessage `json:"schema"`
	Prompt string          `json:"prompt,omitempty"`
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		JSON     json.RawMessage `json:"json"`
		Markdown string          `json:"markdown"`
	} `json:"data"`
}

// Extract implements Scraper.
func (f *FirecrawlScraper) Extract(ctx context.Context, url string, schema Schema, hint string) (Record, error) {
	if strings.TrimSpace(hint) == "" {
		hint = DefaultHint
	}
	resp, err := f.scrape(ctx, firecrawlRequest{
		URL:             url,
		Formats:         []string{"json"},
		OnlyMainContent: true,
		JSONOptions:     &firecrawlJSONOption{Schema: schema.Document, Prompt: hint},
	}, "extract")
	if err != nil {
		return Record{}, err
	}
	if len(resp.Data.JSON) == 0 || string(resp.Data.JSON) == "null" {
		return Record{}, &SourceError{URL: url, Message: "no structured data returned"}
	}
	return decodeRecord(url, schema, resp.Data.JSON)
}

// FullText implements Scraper.
func (f *FirecrawlScraper) FullText(ctx context.Context, url string) (string, error) {
	resp, err := f.scrape(ctx, firecrawlRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	}, "scrape")
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Data.Markdown)
	if text == "" {
		return "", &SourceError{URL: url, Message: "empty markdown"}
	}
	return text, nil
}

func (f *FirecrawlScraper) scrape(ctx context.Context, body firecrawlRequest, kind string) (*firecrawlResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if f.recorder != nil {
		f.recorder.RecordScrape(ctx, kind, 1)
	}
	httpResp, err := f.executor.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/scrape", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, &SourceError{URL: body.URL, Message: "request failed", Cause: err}
	}

	raw, err := httpx.ReadBody(httpResp)
	if err != nil {
		return nil, &SourceError{URL: body.URL, Message: "failed to read response", Cause: err}
	}

	var decoded firecrawlResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		msg := fmt.Sprintf("HTTP %d", httpResp.StatusCode)
		if decodeErr == nil && decoded.Error != "" {
			msg += ": " + decoded.Error
		}
		return nil, &SourceError{URL: body.URL, Message: msg}
	}
	if decodeErr != nil {
		return nil, &SourceError{URL: body.URL, Message: "invalid response body", Cause: decodeErr}
	}
	if !decoded.Success {
		return nil, &SourceError{URL: body.URL, Message: "firecrawl reported failure: " + decoded.Error}
	}
	return &decoded, nil
}
