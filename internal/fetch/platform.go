package fetch

import (
	"net/url"
	"strings"
)

// Platform is a known blogging or newsletter host whose markup we can
// target directly.
type Platform string

const (
	PlatformSubstack  Platform = "substack"
	PlatformMedium    Platform = "medium"
	PlatformGhost     Platform = "ghost"
	PlatformWordPress Platform = "wordpress"
	PlatformUnknown   Platform = "unknown"
)

// DetectPlatform identifies the publishing platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	path := strings.ToLower(parsed.Path)

	switch {
	case host == "substack.com" || strings.HasSuffix(host, ".substack.com"):
		return PlatformSubstack
	case host == "medium.com" || strings.HasSuffix(host, ".medium.com"):
		return PlatformMedium
	case strings.HasSuffix(host, ".ghost.io"):
		return PlatformGhost
	case strings.HasSuffix(host, ".wordpress.com") || strings.Contains(path, "/wp-content/"):
		return PlatformWordPress
	default:
		return PlatformUnknown
	}
}

// PlatformContentSelectors returns article body selectors for a platform,
// most specific first.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformSubstack:
		return []string{".available-content", ".body.markup", "article"}
	case PlatformMedium:
		return []string{"article section", "article"}
	case PlatformGhost:
		return []string{".gh-content", ".post-content", "article"}
	case PlatformWordPress:
		return []string{".entry-content", ".post-content", "article"}
	default:
		return DefaultTextSelectors()
	}
}

// PlatformNoiseSelectors returns selectors removed before text extraction.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		".social-share",
		".share-buttons",
		".cookie-banner",
		".cookie-consent",
		".newsletter-signup",
		".related-posts",
	}

	switch platform {
	case PlatformSubstack:
		return append(common, ".subscription-widget-wrap", ".post-footer", ".captioned-button-wrap")
	case PlatformMedium:
		return append(common, ".pw-multi-vote-count", "[data-testid='headerClapButton']")
	case PlatformGhost:
		return append(common, ".gh-signup", ".gh-post-upgrade-cta")
	case PlatformWordPress:
		return append(common, ".sharedaddy", ".jp-relatedposts", "#comments")
	default:
		return common
	}
}
