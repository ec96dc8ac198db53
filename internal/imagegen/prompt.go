// Package imagegen derives an illustration prompt from the LinkedIn post and
// renders it. Every failure here degrades to "no image".
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/prompts"
	"github.com/jonathan/content-curator/internal/types"
)

// Prompter asks the LLM for an image prompt.
type Prompter struct {
	client llm.Client
	tier   llm.ModelTier
	logger *logrus.Logger
}

// NewPrompter returns a Prompter using the lite model tier.
func NewPrompter(client llm.Client, logger *logrus.Logger) *Prompter {
	return &Prompter{client: client, tier: llm.TierLite, logger: logger}
}

// PromptFor returns the generated prompt with the style suffix appended,
// or a templated prompt built from criterion as a Fallback.
func (p *Prompter) PromptFor(ctx context.Context, longFormPost, style, criterion string) types.Outcome[string] {
	fallback := FallbackPrompt(criterion, style)

	req, err := prompts.Render(prompts.CurationFile, "image-prompt", map[string]string{
		"Post":  longFormPost,
		"Style": style,
	})
	if err != nil {
		return p.fallback(fallback, err)
	}
	text, err := p.client.GenerateContent(ctx, req, p.tier)
	if err != nil {
		return p.fallback(fallback, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return p.fallback(fallback, errors.New("empty image prompt"))
	}
	return types.Ok(withStyle(text, style))
}

func (p *Prompter) fallback(prompt string, err error) types.Outcome[string] {
	p.logger.WithError(err).WithField("stage", "image_prompt").Warn("Using templated image prompt")
	return types.Fallback(prompt, err)
}

// FallbackPrompt is the templated prompt used when generation fails.
func FallbackPrompt(criterion, style string) string {
	return withStyle(fmt.Sprintf("Modern technology illustration representing %s", criterion), style)
}

func withStyle(prompt, style string) string {
	return fmt.Sprintf("%s. Please follow this stylistic guidelines: %s", strings.TrimRight(prompt, ". "), style)
}
