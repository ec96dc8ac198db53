// Package social writes the LinkedIn, Twitter and Instagram posts for the
// selected candidate.
package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/prompts"
	"github.com/jonathan/content-curator/internal/schemas"
	"github.com/jonathan/content-curator/internal/types"
)

var postKeys = []string{"linkedin_post", "twitter_post", "instagram_post"}

type generated struct {
	LinkedIn  string `json:"linkedin_post"`
	Twitter   string `json:"twitter_post"`
	Instagram string `json:"instagram_post"`
}

// Generator produces all three posts in one LLM call.
type Generator struct {
	client llm.Client
	tier   llm.ModelTier
	logger *logrus.Logger
}

// New returns a Generator using the standard model tier.
func New(client llm.Client, logger *logrus.Logger) *Generator {
	return &Generator{client: client, tier: llm.TierStandard, logger: logger}
}

// Generate never fails: an unusable response yields templated posts as a
// Fallback. The Twitter text is always within types.TwitterMaxChars.
func (g *Generator) Generate(ctx context.Context, c types.Candidate, criterion string) types.Outcome[types.SocialPosts] {
	log := g.logger.WithFields(logrus.Fields{"stage": "generate", "url": c.Link})
	fallback := FallbackPosts(c, criterion)

	author := c.Author
	if author == "" {
		author = "Unknown"
	}
	prompt, err := prompts.Render(prompts.CurationFile, "generate-posts", map[string]string{
		"Title":     c.Title,
		"Author":    author,
		"Link":      c.Link,
		"Criterion": criterion,
		"Content":   c.Content(),
	})
	if err != nil {
		log.WithError(err).Warn("Using templated posts")
		return types.Fallback(fallback, err)
	}

	raw, err := g.client.GenerateJSON(ctx, prompt, g.tier)
	if err != nil {
		log.WithError(err).Warn("Using templated posts")
		return types.Fallback(fallback, fmt.Errorf("post generation call failed: %w", err))
	}

	var resp generated
	if err := llm.ExtractInto(raw, &resp, postKeys...); err != nil {
		log.WithError(err).Warn("Using templated posts")
		return types.Fallback(fallback, err)
	}

	posts := types.SocialPosts{
		LinkedIn:  strings.TrimSpace(resp.LinkedIn),
		Twitter:   strings.TrimSpace(resp.Twitter),
		Instagram: strings.TrimSpace(resp.Instagram),
	}
	if posts.LinkedIn == "" && posts.Twitter == "" && posts.Instagram == "" {
		err := errors.New("response contained no posts")
		log.WithError(err).Warn("Using templated posts")
		return types.Fallback(fallback, err)
	}
	if posts.LinkedIn == "" {
		posts.LinkedIn = fallback.LinkedIn
	}
	if posts.Twitter == "" {
		posts.Twitter = fallback.Twitter
	}
	if posts.Instagram == "" {
		posts.Instagram = fallback.Instagram
	}

	if n := types.RuneLen(posts.Twitter); n > types.TwitterMaxChars {
		log.WithField("chars", n).Warn("Twitter post too long, truncating")
	}
	posts.Twitter = types.ClampTwitter(posts.Twitter)

	if err := schemas.Validate(schemas.SocialPosts, posts); err != nil {
		log.WithField("problems", err.Error()).Warn("Posts outside recommended bounds")
	}
	return types.Ok(posts)
}

// FallbackPosts builds deterministic posts from the candidate's title and
// link and the run's criterion.
func FallbackPosts(c types.Candidate, criterion string) types.SocialPosts {
	return types.SocialPosts{
		LinkedIn: fmt.Sprintf("Check out this insightful article about %s: %s\n\n%s\n\n#AI #Technology #Innovation",
			criterion, c.Title, c.Link),
		Twitter:   fallbackTweet(c.Title, c.Link),
		Instagram: fmt.Sprintf("New article alert! 🚀\n\n%s\n\nLink in bio.\n\n#AI #Technology #Innovation #Learning", c.Title),
	}
}

func fallbackTweet(title, link string) string {
	tail := "... " + link + " #AI #Tech"
	text := "📰 " + types.TruncateRunes(title, 100) + tail
	if types.RuneLen(text) > types.TwitterMaxChars {
		room := types.TwitterMaxChars - types.RuneLen(tail) - 10
		text = "📰 " + types.TruncateRunes(title, room) + tail
	}
	return types.ClampTwitter(text)
}
