package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/content-curator/internal/config"
	"github.com/jonathan/content-curator/internal/correspondence"
	"github.com/jonathan/content-curator/internal/ledger"
	"github.com/jonathan/content-curator/internal/types"
)

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	withConfigPath(t, "")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - https://example.com/blog\ncriterion: robotics\nschedule:\n  interval: 6h\n"), 0o644))
	withConfigPath(t, path)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/blog"}, cfg.Sources)
	assert.Equal(t, "robotics", cfg.Criterion)
	assert.Equal(t, "6h0m0s", cfg.Schedule.Interval.String())
	assert.Equal(t, config.DefaultLedgerPath, cfg.Ledger.Path)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curator.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sources": ["ftp://example.com"]}`), 0o644))
	withConfigPath(t, path)

	_, err := loadConfig()
	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "sources[0]", cerr.Field)
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{"https://a.io, https://b.io", " ", "https://c.io"})
	assert.Equal(t, []string{"https://a.io", "https://b.io", "https://c.io"}, got)
	assert.Nil(t, splitList(nil))
}

func openTestLedger(t *testing.T) ledger.Ledger {
	t.Helper()
	l, err := ledger.OpenFile(filepath.Join(t.TempDir(), "ledger.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedgerCommands(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	var out bytes.Buffer

	require.NoError(t, addToLedger(ctx, l, &out, []string{"https://Example.com/post/", "Title|https://x.io/a"}))
	assert.Equal(t, "added: https://example.com/post\nadded: Title|https://x.io/a\n", out.String())

	out.Reset()
	require.NoError(t, checkLedger(ctx, l, &out, "https://example.com/post#comments"))
	assert.Equal(t, "processed: https://example.com/post\n", out.String())

	out.Reset()
	require.NoError(t, checkLedger(ctx, l, &out, "https://example.com/other"))
	assert.Equal(t, "not processed: https://example.com/other\n", out.String())

	out.Reset()
	require.NoError(t, listLedger(ctx, l, &out, 1))
	assert.Contains(t, out.String(), "PROCESSED ARTICLES")
	assert.Contains(t, out.String(), "Entries: 2")
	assert.Contains(t, out.String(), "Title|https://x.io/a")
	assert.NotContains(t, out.String(), "https://example.com/post")

	assert.Error(t, addToLedger(ctx, l, &out, []string{"  "}))
}

func TestPreviewCandidates(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	old := types.NewCandidate("https://s.io", "Old post", "https://s.io/old", "", "", "", types.IdentityLink)
	fresh := types.NewCandidate("https://s.io", "Fresh post", "https://s.io/fresh", "", "", "", types.IdentityLink)
	require.NoError(t, l.Append(ctx, string(old.Identity)))

	var out bytes.Buffer
	require.NoError(t, previewCandidates(ctx, []types.Candidate{old, fresh}, l, &out))
	text := out.String()
	scraped, newSection, ok := strings.Cut(text, "NEW ARTICLES")
	require.True(t, ok)
	assert.Contains(t, scraped, "Old post")
	assert.Contains(t, newSection, "Fresh post")
	assert.NotContains(t, newSection, "Old post")

	out.Reset()
	require.NoError(t, previewCandidates(ctx, []types.Candidate{old}, l, &out))
	assert.Contains(t, out.String(), "No new articles")

	out.Reset()
	require.NoError(t, previewCandidates(ctx, nil, l, &out))
	assert.Equal(t, "No articles found.\n", out.String())
}

func TestReportResult(t *testing.T) {
	var out bytes.Buffer
	ok := &types.RunResult{RunID: "r1", Status: types.RunStatusSuccess, State: types.StateNoNewArticles, Message: "nothing new"}
	require.NoError(t, reportResult(&out, ok, true))
	assert.Contains(t, out.String(), `"state": "no_new_articles"`)

	out.Reset()
	failed := &types.RunResult{RunID: "r2", Status: types.RunStatusError, State: types.StateFailed, Message: "boom"}
	err := reportResult(&out, failed, false)
	assert.EqualError(t, err, "run r2 ended in state failed: boom")
	assert.Contains(t, out.String(), "CURATION RUN")
}

func TestPrintReport(t *testing.T) {
	report := &correspondence.Report{
		Messages:   2,
		Classified: 1,
		Drafts: []correspondence.ReplyDraft{{
			Email:   "dean@stanford.edu",
			Subject: "Re: Workshops",
			Draft:   correspondence.Draft{Text: "Hello Dean", Priority: correspondence.PriorityHigh, FollowUpDate: "2026-10-24"},
		}},
		Failures: []string{"m2: sheet unavailable"},
	}
	var out bytes.Buffer
	require.NoError(t, printReport(&out, report, false))
	text := out.String()
	assert.Contains(t, text, "Checked 2 message(s), classified 1 contact(s), drafted 1 repl(ies).")
	assert.Contains(t, text, "To: dean@stanford.edu\nSubject: Re: Workshops\nPriority: high  Follow-up: 2026-10-24\n\nHello Dean\n")
	assert.Contains(t, text, "Failed: m2: sheet unavailable")
}

func TestGoogleOptions(t *testing.T) {
	assert.Len(t, googleOptions(config.Secrets{}, "scope"), 1)
	assert.Len(t, googleOptions(config.Secrets{GoogleCredsFile: "/tmp/creds.json"}, "scope"), 2)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "schedule", "serve", "ledger", "preview", "triage", "token"} {
		assert.True(t, names[want], want)
	}
}
