package social

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/llm/llmtest"
	"github.com/jonathan/content-curator/internal/types"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func candidate(title string) types.Candidate {
	c := types.NewCandidate("https://src.example/", title, "https://src.example/post", "Ann", "2026-02-01", "Body of the article.", types.IdentityLink)
	c.Used = 1
	return c
}

const linkedIn = "Agents are moving from demos to production. Here is what changes when they do, and why evaluation matters more than ever. #AI #Agents #MLOps"

func TestGenerate_ParsesFencedResponse(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierStandard, tier)
			assert.Contains(t, prompt, "Title: Agents in production")
			assert.Contains(t, prompt, "Author: Ann")
			assert.Contains(t, prompt, "Topic focus: agents")
			assert.Contains(t, prompt, "Content: Body of the article.")
			return "Here are your posts:\n```json\n{\"linkedin_post\": \"" + linkedIn + "\", \"twitter_post\": \"Agents ship 🚀 https://src.example/post #AI\", \"instagram_post\": \"✨ Agents grow up.\\n\\nLink in bio. #AI #Agents\"}\n```", nil
		},
	}

	out := New(mock, quietLogger()).Generate(context.Background(), candidate("Agents in production"), "agents")
	require.True(t, out.IsOk())
	assert.Equal(t, linkedIn, out.Value.LinkedIn)
	assert.Equal(t, "Agents ship 🚀 https://src.example/post #AI", out.Value.Twitter)
	assert.Equal(t, "✨ Agents grow up.\n\nLink in bio. #AI #Agents", out.Value.Instagram)
}

func TestGenerate_AnthropicReplyWithBracedPreamble(t *testing.T) {
	reply := `I'll return {linkedin_post, twitter_post, instagram_post} as requested: ` +
		`{"linkedin_post": "` + linkedIn + `", "twitter_post": "Agents ship https://src.example/post #AI", "instagram_post": "Agents grow up. Link in bio. #AI #Agents"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := json.Marshal(map[string]any{
			"content": []map[string]string{{"type": "text", "text": reply}},
		})
		require.NoError(t, err)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	cfg := llm.DefaultAnthropicConfig()
	cfg.BaseURL = srv.URL
	client, err := llm.NewAnthropicClient(cfg, "test-key")
	require.NoError(t, err)

	out := New(client, quietLogger()).Generate(context.Background(), candidate("Agents in production"), "agents")
	require.True(t, out.IsOk(), "kind=%v err=%v", out.Kind, out.Err)
	assert.Equal(t, linkedIn, out.Value.LinkedIn)
	assert.Equal(t, "Agents ship https://src.example/post #AI", out.Value.Twitter)
	assert.Equal(t, "Agents grow up. Link in bio. #AI #Agents", out.Value.Instagram)
}

func TestGenerate_ClampsLongTweet(t *testing.T) {
	long := strings.Repeat("a", 400)
	mock := &llmtest.MockClient{GenerateJSONFunc: llmtest.Reply(`{"linkedin_post": "` + linkedIn + `", "twitter_post": "` + long + `", "instagram_post": "Insta caption long enough #AI"}`)}

	out := New(mock, quietLogger()).Generate(context.Background(), candidate("T"), "AI")
	require.True(t, out.IsOk())
	assert.Equal(t, strings.Repeat("a", 270)+"... #AI", out.Value.Twitter)
	assert.LessOrEqual(t, types.RuneLen(out.Value.Twitter), types.TwitterMaxChars)
}

func TestGenerate_FillsMissingFields(t *testing.T) {
	mock := &llmtest.MockClient{GenerateJSONFunc: llmtest.Reply(`{"linkedin_post": "` + linkedIn + `", "twitter_post": ""}`)}
	c := candidate("Title")

	out := New(mock, quietLogger()).Generate(context.Background(), c, "AI")
	require.True(t, out.IsOk())
	fb := FallbackPosts(c, "AI")
	assert.Equal(t, linkedIn, out.Value.LinkedIn)
	assert.Equal(t, fb.Twitter, out.Value.Twitter)
	assert.Equal(t, fb.Instagram, out.Value.Instagram)
}

func TestGenerate_FallbackPaths(t *testing.T) {
	tests := []struct {
		name  string
		reply func(context.Context, string, llm.ModelTier) (string, error)
	}{
		{"call error", llmtest.Fail(errors.New("rate limited"))},
		{"prose", llmtest.Reply("Sorry, I can't help with that.")},
		{"empty object", llmtest.Reply(`{"linkedin_post": "", "twitter_post": "", "instagram_post": ""}`)},
		{"broken json", llmtest.Reply(`{"linkedin_post": "unterminated`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate("Fallback title")
			out := New(&llmtest.MockClient{GenerateJSONFunc: tt.reply}, quietLogger()).Generate(context.Background(), c, "AI")
			require.True(t, out.IsFallback())
			assert.Equal(t, FallbackPosts(c, "AI"), out.Value)
			assert.Error(t, out.Err)
		})
	}
}

func TestFallbackPosts(t *testing.T) {
	c := candidate("Agents in production")
	p := FallbackPosts(c, "agents")

	assert.Equal(t, "Check out this insightful article about agents: Agents in production\n\nhttps://src.example/post\n\n#AI #Technology #Innovation", p.LinkedIn)
	assert.Equal(t, "📰 Agents in production... https://src.example/post #AI #Tech", p.Twitter)
	assert.Equal(t, "New article alert! 🚀\n\nAgents in production\n\nLink in bio.\n\n#AI #Technology #Innovation #Learning", p.Instagram)
	assert.NoError(t, p.Validate())
}

func TestFallbackTweet_WithinBound(t *testing.T) {
	tests := []struct {
		name  string
		title string
		link  string
	}{
		{"title over 280", strings.Repeat("T", 500), "https://src.example/post"},
		{"multibyte title", strings.Repeat("標", 300), "https://src.example/post"},
		{"huge link", "Short", "https://src.example/" + strings.Repeat("p", 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := fallbackTweet(tt.title, tt.link)
			assert.LessOrEqual(t, types.RuneLen(text), types.TwitterMaxChars)
			assert.True(t, strings.HasPrefix(text, "📰 "))
		})
	}
}

func TestGenerate_LongTitleFallbackWithinBound(t *testing.T) {
	c := candidate(strings.Repeat("Very long headline ", 30))
	out := New(&llmtest.MockClient{GenerateJSONFunc: llmtest.Reply("nope")}, quietLogger()).Generate(context.Background(), c, "AI")

	require.True(t, out.IsFallback())
	assert.LessOrEqual(t, types.RuneLen(out.Value.Twitter), types.TwitterMaxChars)
	assert.NotEmpty(t, out.Value.LinkedIn)
	assert.NotEmpty(t, out.Value.Instagram)
}
