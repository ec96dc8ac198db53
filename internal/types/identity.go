package types

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Identity is the deduplication key of a Candidate. It is computed once, when the
// candidate is built, and used unchanged by filtering and ledger appends.
type Identity string

// IdentityStrategy selects how an Identity is derived.
type IdentityStrategy string

const (
	// IdentityLink keys a candidate by its normalized per-item link.
	IdentityLink IdentityStrategy = "link"
	// IdentityComposite keys a candidate by "sourceURL|normalized title".
	IdentityComposite IdentityStrategy = "composite"
)

var (
	dashVariants = regexp.MustCompile(`[‐‑‒–—―−]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// ParseIdentityStrategy maps a config value to a strategy. Empty means IdentityLink.
func ParseIdentityStrategy(s string) (IdentityStrategy, error) {
	switch IdentityStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", IdentityLink:
		return IdentityLink, nil
	case IdentityComposite:
		return IdentityComposite, nil
	default:
		return "", fmt.Errorf("unknown identity strategy %q (want link or composite)", s)
	}
}

// Key derives the identity of c.
func (s IdentityStrategy) Key(c Candidate) Identity {
	if s == IdentityComposite {
		return CompositeKey(c.SourceURL, c.Title)
	}
	if link := NormalizeLink(c.Link); link != "" {
		return Identity(link)
	}
	// A linkless candidate never passes validation, but keep the key stable anyway.
	return CompositeKey(c.SourceURL, c.Title)
}

// CompositeKey joins the source URL and the normalized title.
func CompositeKey(sourceURL, title string) Identity {
	return Identity(strings.TrimSpace(sourceURL) + "|" + NormalizeTitle(title))
}

// NormalizeTitle applies NFKD, folds dash variants to "-", collapses whitespace and lowercases.
func NormalizeTitle(title string) string {
	t := norm.NFKD.String(title)
	t = dashVariants.ReplaceAllString(t, "-")
	t = whitespace.ReplaceAllString(t, " ")
	return strings.ToLower(strings.TrimSpace(t))
}

// NormalizeLink lowercases scheme and host and drops the fragment and trailing slash.
// Unparseable links are returned trimmed.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(link, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
