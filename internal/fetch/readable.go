package fetch

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// readableMinWords is the word count below which a readability pass is
// considered to have missed the article body.
const readableMinWords = 50

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Readable returns the title and body text of an article page. It runs
// Mozilla's Readability algorithm and renders the result as markdown,
// falling back to selector-based extraction for the page's platform.
func Readable(html []byte, pageURL string) (title, text string) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(html), parsedURL)
	if err == nil && article.Node != nil {
		if md, mdErr := htmltomarkdown.ConvertNode(article.Node); mdErr == nil {
			if t := normalizeContent(string(md)); wordCount(t) >= readableMinWords {
				return article.Title(), t
			}
		}
		var buf bytes.Buffer
		_ = article.RenderText(&buf)
		if t := normalizeContent(buf.String()); wordCount(t) >= readableMinWords {
			return article.Title(), t
		}
		title = article.Title()
	}

	platform := DetectPlatform(pageURL)
	text, _ = ExtractMainText(string(html), PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	return title, text
}

// FullText fetches an article and returns its readable body. When the
// plain HTTP response looks like a JavaScript shell and a renderer is
// given, the page is rendered and extracted again.
func FullText(ctx context.Context, pageURL string, opts *Options, renderer Renderer) (string, error) {
	res, err := URL(ctx, pageURL, opts)
	if err != nil {
		return "", err
	}
	_, text := Readable([]byte(res.HTML), pageURL)
	if renderer == nil || !ShouldUseBrowser(text) {
		return text, nil
	}

	rendered, err := renderer.Render(ctx, pageURL)
	if err != nil {
		// the HTTP text is still better than nothing
		if text != "" {
			return text, nil
		}
		return "", &Error{URL: pageURL, Message: "browser rendering failed", Cause: err}
	}
	_, renderedText := Readable([]byte(rendered), pageURL)
	if len(renderedText) > len(text) {
		return renderedText, nil
	}
	return text, nil
}

func normalizeContent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
