// Package types provides the data model shared by the curation pipeline stages.
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxContentLength caps the characters of candidate content handed to any generation step.
const MaxContentLength = 5000

// Candidate is one article-like item discovered on a source page.
type Candidate struct {
	SourceURL   string   `json:"source_url" validate:"required,url"`
	Title       string   `json:"title" validate:"required"`
	Link        string   `json:"link" validate:"required"`
	Author      string   `json:"author,omitempty"`
	PublishedAt string   `json:"date,omitempty"`
	Summary     string   `json:"description,omitempty"`
	Identity    Identity `json:"identity,omitempty"`
	Used        int      `json:"used"`
}

// NewCandidate trims the scraped fields and stamps the identity using strategy.
func NewCandidate(sourceURL, title, link, author, date, summary string, strategy IdentityStrategy) Candidate {
	c := Candidate{
		SourceURL:   strings.TrimSpace(sourceURL),
		Title:       strings.TrimSpace(title),
		Link:        strings.TrimSpace(link),
		Author:      strings.TrimSpace(author),
		PublishedAt: strings.TrimSpace(date),
		Summary:     strings.TrimSpace(summary),
	}
	c.Identity = strategy.Key(c)
	return c
}

// Validate enforces the minimal schema: title and link present and non-blank.
func (c *Candidate) Validate() error {
	trimmed := *c
	trimmed.Title = strings.TrimSpace(c.Title)
	trimmed.Link = strings.TrimSpace(c.Link)
	return validator.New().Struct(&trimmed)
}

// Content returns the text handed to generation: the summary, capped at MaxContentLength.
func (c *Candidate) Content() string {
	return TruncateRunes(c.Summary, MaxContentLength)
}

// TruncateRunes cuts s to at most n characters without splitting a multi-byte rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// RuneLen reports the number of characters in s.
func RuneLen(s string) int {
	return len([]rune(s))
}
