package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCandidate_TrimsAndStampsIdentity(t *testing.T) {
	c := NewCandidate(" https://blog.example.com ", "  Hello  ", " https://blog.example.com/post/ ", "Ann", "2025-01-02", " short ", IdentityLink)

	assert.Equal(t, "https://blog.example.com", c.SourceURL)
	assert.Equal(t, "Hello", c.Title)
	assert.Equal(t, "short", c.Summary)
	assert.Equal(t, Identity("https://blog.example.com/post"), c.Identity)
	assert.Equal(t, 0, c.Used)
}

func TestCandidate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       Candidate
		wantErr bool
	}{
		{"valid", Candidate{SourceURL: "https://a.com", Title: "T", Link: "https://a.com/1"}, false},
		{"missing title", Candidate{SourceURL: "https://a.com", Link: "https://a.com/1"}, true},
		{"blank title", Candidate{SourceURL: "https://a.com", Title: "   ", Link: "https://a.com/1"}, true},
		{"missing link", Candidate{SourceURL: "https://a.com", Title: "T"}, true},
		{"bad source", Candidate{SourceURL: "not a url", Title: "T", Link: "https://a.com/1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCandidate_ContentIsCapped(t *testing.T) {
	c := Candidate{Summary: strings.Repeat("é", MaxContentLength+10)}
	assert.Equal(t, MaxContentLength, RuneLen(c.Content()))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "", TruncateRunes("abc", 0))
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "abc", TruncateRunes("abc", 3))
	assert.Equal(t, "abc", TruncateRunes("abc", 10))
	assert.Equal(t, "日本", TruncateRunes("日本語", 2))
}

func TestOutcome_Kinds(t *testing.T) {
	ok := Ok(3)
	require.True(t, ok.IsOk())
	assert.Equal(t, 3, ok.Value)

	fb := Fallback("x", assert.AnError)
	require.True(t, fb.IsFallback())
	assert.Equal(t, "x", fb.Value)
	assert.ErrorIs(t, fb.Err, assert.AnError)

	fatal := Fatal[int](assert.AnError)
	require.True(t, fatal.IsFatal())
	assert.Equal(t, "fatal", fatal.Kind.String())
}

func TestRunState_Terminal(t *testing.T) {
	for _, s := range []RunState{StateDone, StateNoArticles, StateNoNewArticles, StateFailed} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []RunState{StateScraping, StateSelecting, StatePersisting} {
		assert.False(t, s.Terminal(), s)
	}
}
