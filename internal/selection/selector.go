// Package selection picks the one candidate a run will promote.
package selection

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/prompts"
	"github.com/jonathan/content-curator/internal/types"
)

const summaryExcerptRunes = 300

var firstInteger = regexp.MustCompile(`\d+`)

// Selector ranks candidates through the LLM and falls back to the first
// candidate whenever the answer is unusable.
type Selector struct {
	client llm.Client
	tier   llm.ModelTier
	logger *logrus.Logger
}

// New returns a Selector using the standard model tier.
func New(client llm.Client, logger *logrus.Logger) *Selector {
	return &Selector{client: client, tier: llm.TierStandard, logger: logger}
}

// Select returns exactly one member of candidates, marked used. It is Fatal
// only for an empty input; every other failure is a Fallback to candidates[0].
func (s *Selector) Select(ctx context.Context, candidates []types.Candidate, criterion string) types.Outcome[types.Candidate] {
	if len(candidates) == 0 {
		return types.Fatal[types.Candidate](&Error{Message: "no candidates to select from"})
	}
	if len(candidates) == 1 {
		return types.Ok(markUsed(candidates[0]))
	}

	fallback := func(err error) types.Outcome[types.Candidate] {
		s.logger.WithError(err).WithFields(logrus.Fields{"stage": "select", "candidates": len(candidates)}).
			Warn("Using first candidate as fallback")
		return types.Fallback(markUsed(candidates[0]), err)
	}

	prompt, err := prompts.Render(prompts.CurationFile, "select-article", map[string]string{
		"Articles":  FormatCandidates(candidates),
		"Criterion": criterion,
		"Count":     strconv.Itoa(len(candidates)),
	})
	if err != nil {
		return fallback(&Error{Message: "failed to build ranking prompt", Cause: err})
	}

	answer, err := s.client.GenerateContent(ctx, prompt, s.tier)
	if err != nil {
		return fallback(&Error{Message: "ranking call failed", Cause: err})
	}

	choice, err := ParseChoice(answer, len(candidates))
	if err != nil {
		return fallback(err)
	}
	return types.Ok(markUsed(candidates[choice-1]))
}

// ParseChoice reads a 1-based index in [1, n] from a ranking answer. A bare
// integer is preferred; otherwise the first integer in the text is used.
func ParseChoice(answer string, n int) (int, error) {
	text := strings.TrimSpace(answer)
	choice, err := strconv.Atoi(text)
	if err != nil {
		token := firstInteger.FindString(text)
		if token == "" {
			return 0, &Error{Message: fmt.Sprintf("no number in ranking answer %q", excerpt(text))}
		}
		choice, err = strconv.Atoi(token)
		if err != nil {
			return 0, &Error{Message: "unparseable ranking answer", Cause: err}
		}
	}
	if choice < 1 || choice > n {
		return 0, &Error{Message: fmt.Sprintf("choice %d out of range [1, %d]", choice, n)}
	}
	return choice, nil
}

// FormatCandidates renders the numbered candidate list used in the ranking prompt.
func FormatCandidates(candidates []types.Candidate) string {
	blocks := make([]string, 0, len(candidates))
	for i, c := range candidates {
		lines := []string{
			fmt.Sprintf("Article %d:", i+1),
			"Title: " + c.Title,
		}
		if c.Author != "" {
			lines = append(lines, "Author: "+c.Author)
		}
		if c.PublishedAt != "" {
			lines = append(lines, "Date: "+c.PublishedAt)
		}
		if c.Summary != "" {
			lines = append(lines, "Description: "+types.TruncateRunes(c.Summary, summaryExcerptRunes))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func markUsed(c types.Candidate) types.Candidate {
	c.Used = 1
	return c
}

func excerpt(s string) string {
	return types.TruncateRunes(s, 80)
}
