// Package observability renders run results as boxed summaries for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/content-curator/internal/types"
	"github.com/jonathan/content-curator/internal/usage"
)

const (
	boxWidth       = 64
	maxItemsToShow = 5
)

// Printer writes human-readable summaries.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer that writes to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

//nolint:errcheck // terminal output; nothing to recover
func (p *Printer) printBox(title, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad fits line to the box's inner width, counting runes so emoji and
// accented titles do not break the border.
func pad(line string) string {
	inner := boxWidth - 4
	if types.RuneLen(line) > inner {
		line = types.TruncateRunes(line, inner-3) + "..."
	}
	return line + strings.Repeat(" ", inner-types.RuneLen(line))
}

// PrintRunResult prints the outcome of a run, its selected article and
// usage when present.
func (p *Printer) PrintRunResult(res *types.RunResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:       %s\n", res.RunID)
	fmt.Fprintf(&sb, "Status:    %s (%s)\n", res.Status, res.State)
	if res.Message != "" {
		fmt.Fprintf(&sb, "Message:   %s\n", res.Message)
	}
	fmt.Fprintf(&sb, "Scraped:   %d   New: %d\n", res.ScrapedCount, res.NewCount)
	fmt.Fprintf(&sb, "Took:      %.1fs\n", res.ExecutionTime)
	if res.Selected != nil {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Selected:  %s\n", res.Selected.Title)
		fmt.Fprintf(&sb, "Link:      %s\n", res.Selected.Link)
		if res.Selected.Author != "" {
			fmt.Fprintf(&sb, "Author:    %s\n", res.Selected.Author)
		}
	}
	if res.ArtifactLocation != "" {
		fmt.Fprintf(&sb, "Saved:     %s\n", res.ArtifactLocation)
	}
	if res.ImagePath != "" {
		fmt.Fprintf(&sb, "Image:     %s\n", res.ImagePath)
	}
	p.printBox("CURATION RUN", strings.TrimSuffix(sb.String(), "\n"))

	if res.SocialPosts != nil {
		p.PrintPosts(res.SocialPosts)
	}
	if sum, ok := res.Usage.(usage.Summary); ok {
		p.PrintUsage(sum)
	}
}

// PrintPosts prints the opening of each generated post.
func (p *Printer) PrintPosts(posts *types.SocialPosts) {
	if posts == nil {
		return
	}
	var sb strings.Builder
	section := func(name, text string) {
		fmt.Fprintf(&sb, "%s (%d chars)\n", name, types.RuneLen(text))
		lines := strings.Split(strings.TrimSpace(text), "\n")
		shown := min(len(lines), 3)
		for _, l := range lines[:shown] {
			fmt.Fprintf(&sb, "  %s\n", l)
		}
		if len(lines) > shown {
			fmt.Fprintf(&sb, "  ... and %d more lines\n", len(lines)-shown)
		}
	}
	section("LinkedIn", posts.LinkedIn)
	sb.WriteString("\n")
	section("Twitter", posts.Twitter)
	sb.WriteString("\n")
	section("Instagram", posts.Instagram)
	if posts.ImagePrompt != "" {
		sb.WriteString("\n")
		section("Image prompt", posts.ImagePrompt)
	}
	p.printBox("SOCIAL POSTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintUsage prints token counts and estimated costs.
func (p *Printer) PrintUsage(s usage.Summary) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Duration:      %.2fs\n", s.DurationSeconds)
	fmt.Fprintf(&sb, "LLM tokens:    %d in / %d out\n", s.Tokens.Input, s.Tokens.Output)
	fmt.Fprintf(&sb, "Scrape calls:  %d\n", s.ScrapeCalls)
	fmt.Fprintf(&sb, "Images:        %d\n", s.ImageRenders)
	fmt.Fprintf(&sb, "Cost:          %s (llm %s, scrape %s)",
		s.Breakdown["total"], s.Breakdown["llm"], s.Breakdown["scrape"])
	p.printBox("USAGE", sb.String())
}

// PrintCandidates lists candidates with their identities.
func (p *Printer) PrintCandidates(title string, cands []types.Candidate) {
	if len(cands) == 0 {
		return
	}
	var sb strings.Builder
	count := min(len(cands), maxItemsToShow)
	for i := 0; i < count; i++ {
		fmt.Fprintf(&sb, "#%d  %s\n", i+1, cands[i].Title)
		fmt.Fprintf(&sb, "    %s\n", cands[i].Identity)
	}
	if len(cands) > maxItemsToShow {
		fmt.Fprintf(&sb, "... and %d more\n", len(cands)-maxItemsToShow)
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLedger prints the newest ledger entries, at most limit of them.
func (p *Printer) PrintLedger(entries []string, limit int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Entries: %d\n", len(entries))
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	if limit > 0 {
		sb.WriteString("\n")
	}
	for _, e := range entries[len(entries)-limit:] {
		fmt.Fprintf(&sb, "%s\n", e)
	}
	p.printBox("PROCESSED ARTICLES", strings.TrimSuffix(sb.String(), "\n"))
}
