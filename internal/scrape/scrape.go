// Package scrape turns source pages into article records and fetches full
// article text, either through the Firecrawl API or locally with an LLM.
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/schemas"
)

// DefaultHint is the extraction instruction used when the caller gives none.
const DefaultHint = "Extract the most recent article information including title, author, publication date, and direct link to the article"

// Record is one extracted article.
type Record struct {
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Date        string `json:"date,omitempty"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
}

// Schema describes the record a scrape must produce.
type Schema struct {
	Name     string
	Document json.RawMessage
	Fields   []llm.SchemaField
}

// ArticleSchema returns the schema for a single article record.
func ArticleSchema() Schema {
	doc, err := schemas.Raw(schemas.Article)
	if err != nil {
		// embedded at build time
		panic(err)
	}
	return Schema{
		Name:     schemas.Article,
		Document: doc,
		Fields:   llm.ArticleExtractionSchema("").Fields,
	}
}

// Scraper is the scrape capability the collector and enricher depend on.
type Scraper interface {
	Extract(ctx context.Context, url string, schema Schema, hint string) (Record, error)
	FullText(ctx context.Context, url string) (string, error)
}

// CallRecorder counts billable scrape calls.
type CallRecorder interface {
	RecordScrape(ctx context.Context, kind string, urls int)
}

// Backend names accepted by New.
const (
	BackendFirecrawl = "firecrawl"
	BackendLocal     = "local"
)

// decodeRecord validates raw against schema and returns a normalized record
// whose link is absolute relative to sourceURL.
func decodeRecord(sourceURL string, schema Schema, raw json.RawMessage) (Record, error) {
	if err := schemas.ValidateJSONString(string(schema.Document), string(raw)); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return Record{}, &SchemaError{URL: sourceURL, Schema: schema.Name, Fields: ve.Errors}
		}
		return Record{}, &SchemaError{URL: sourceURL, Schema: schema.Name, Cause: err}
	}

	var nullable struct {
		Title       *string `json:"title"`
		Author      *string `json:"author"`
		Date        *string `json:"date"`
		Link        *string `json:"link"`
		Description *string `json:"description"`
	}
	if err := json.Unmarshal(raw, &nullable); err != nil {
		return Record{}, &SchemaError{URL: sourceURL, Schema: schema.Name, Cause: err}
	}

	rec := Record{
		Title:       deref(nullable.Title),
		Author:      deref(nullable.Author),
		Date:        deref(nullable.Date),
		Link:        deref(nullable.Link),
		Description: deref(nullable.Description),
	}
	if rec.Title == "" {
		return Record{}, &SchemaError{URL: sourceURL, Schema: schema.Name, Fields: []schemas.FieldError{{Field: "title", Message: "blank"}}}
	}

	link, err := resolveLink(sourceURL, rec.Link)
	if err != nil {
		return Record{}, &SchemaError{URL: sourceURL, Schema: schema.Name, Fields: []schemas.FieldError{{Field: "link", Message: err.Error()}}}
	}
	rec.Link = link
	return rec, nil
}

func resolveLink(sourceURL, link string) (string, error) {
	if link == "" {
		return "", errors.New("blank")
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("unparseable link %q", link)
	}
	if base, err := url.Parse(sourceURL); err == nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", fmt.Errorf("not an http(s) link: %q", link)
	}
	return ref.String(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
