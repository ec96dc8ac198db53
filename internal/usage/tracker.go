// Package usage tracks per-run API usage and estimates its cost.
package usage

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// Price is the dollar cost per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// ModelPrices maps a model family substring to its token price. A model
// name matches the first family it contains.
var ModelPrices = []struct {
	Family string
	Price  Price
}{
	{"opus", Price{Input: 15.00, Output: 75.00}},
	{"sonnet", Price{Input: 3.00, Output: 15.00}},
	{"haiku", Price{Input: 0.25, Output: 1.25}},
}

// unknownTokenPrice is the flat per-token estimate for unpriced models.
const unknownTokenPrice = 0.00001

// ScrapePrice is the cost of one hosted scrape call.
const ScrapePrice = 0.01

// Tracker accumulates the usage of one run. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	start    time.Time
	end      time.Time
	tokens   map[string]*tokenCount
	scrapes  map[string]int
	images   int
	billable bool
	now      func() time.Time
}

type tokenCount struct {
	input, output int
}

// NewTracker starts a tracker. billableScrapes is true when scrape calls go
// to a paid hosted service.
func NewTracker(billableScrapes bool) *Tracker {
	t := &Tracker{
		tokens:   map[string]*tokenCount{},
		scrapes:  map[string]int{},
		billable: billableScrapes,
		now:      time.Now,
	}
	t.start = t.now()
	return t
}

// RecordTokens adds one call's token counts.
func (t *Tracker) RecordTokens(_ context.Context, model string, input, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.tokens[model]
	if !ok {
		c = &tokenCount{}
		t.tokens[model] = c
	}
	c.input += input
	c.output += output
}

// RecordScrape adds scrape calls of a kind ("extract" or "scrape").
func (t *Tracker) RecordScrape(_ context.Context, kind string, urls int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrapes[kind] += urls
}

// RecordImage counts one image render.
func (t *Tracker) RecordImage(context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.images++
}

// Finish stamps the end time used for the summary duration.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.end = t.now()
}

// Tokens reports the totals across all models.
type Tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Costs are dollar amounts rounded to four decimals.
type Costs struct {
	LLM    float64 `json:"llm"`
	Scrape float64 `json:"scrape"`
	Total  float64 `json:"total"`
}

// Summary is the usage report attached to a run result.
type Summary struct {
	DurationSeconds float64           `json:"duration_seconds"`
	Tokens          Tokens            `json:"llm_tokens"`
	ScrapeCalls     int               `json:"scrape_calls"`
	ImageRenders    int               `json:"image_renders"`
	Costs           Costs             `json:"costs"`
	Breakdown       map[string]string `json:"cost_breakdown"`
}

// Summary computes the report. Without a Finish call the duration runs to now.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	end := t.end
	if end.IsZero() {
		end = t.now()
	}

	var s Summary
	s.DurationSeconds = round(end.Sub(t.start).Seconds(), 2)
	var llmCost float64
	for model, c := range t.tokens {
		s.Tokens.Input += c.input
		s.Tokens.Output += c.output
		llmCost += TokenCost(model, c.input, c.output)
	}
	s.Tokens.Total = s.Tokens.Input + s.Tokens.Output
	for _, n := range t.scrapes {
		s.ScrapeCalls += n
	}
	s.ImageRenders = t.images

	s.Costs.LLM = round(llmCost, 4)
	if t.billable {
		s.Costs.Scrape = round(float64(s.ScrapeCalls)*ScrapePrice, 4)
	}
	s.Costs.Total = round(s.Costs.LLM+s.Costs.Scrape, 4)
	s.Breakdown = map[string]string{
		"llm":    fmt.Sprintf("$%.4f", s.Costs.LLM),
		"scrape": fmt.Sprintf("$%.4f", s.Costs.Scrape),
		"total":  fmt.Sprintf("$%.4f", s.Costs.Total),
	}
	return s
}

// TokenCost prices a model's token usage.
func TokenCost(model string, input, output int) float64 {
	name := strings.ToLower(model)
	for _, p := range ModelPrices {
		if strings.Contains(name, p.Family) {
			return float64(input)/1e6*p.Price.Input + float64(output)/1e6*p.Price.Output
		}
	}
	return float64(input+output) * unknownTokenPrice
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
