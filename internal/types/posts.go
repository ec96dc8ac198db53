package types

import (
	"fmt"
	"strings"
)

// Short-form post limits.
const (
	TwitterMaxChars   = 280
	TwitterTruncateAt = 270
	TwitterTruncTag   = "... #AI"
)

// SocialPosts holds the three platform texts generated for the selected candidate,
// plus the prompt used for its illustration.
type SocialPosts struct {
	LinkedIn    string `json:"linkedin"`
	Twitter     string `json:"twitter"`
	Instagram   string `json:"instagram"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// lengthBound is an inclusive character range for one platform.
type lengthBound struct {
	platform string
	min, max int
}

var postBounds = []lengthBound{
	{"linkedin", 50, 3000},
	{"twitter", 10, TwitterMaxChars},
	{"instagram", 20, 2200},
}

// Validate checks each post against its character bounds. Validation is length-based
// only; the returned error lists every violated bound.
func (p *SocialPosts) Validate() error {
	values := map[string]string{
		"linkedin":  p.LinkedIn,
		"twitter":   p.Twitter,
		"instagram": p.Instagram,
	}
	var problems []string
	for _, b := range postBounds {
		n := RuneLen(values[b.platform])
		if n < b.min || n > b.max {
			problems = append(problems, fmt.Sprintf("%s post has %d characters (want %d-%d)", b.platform, n, b.min, b.max))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid social posts: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ClampTwitter enforces the short-form hard limit: over-long text is cut to
// TwitterTruncateAt characters and tagged with TwitterTruncTag.
func ClampTwitter(text string) string {
	if RuneLen(text) <= TwitterMaxChars {
		return text
	}
	return TruncateRunes(text, TwitterTruncateAt) + TwitterTruncTag
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
