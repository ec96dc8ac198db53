package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type articleRecord struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
}

type postsRecord struct {
	LinkedIn  string   `json:"linkedin_post"`
	Twitter   string   `json:"twitter_post"`
	Instagram string   `json:"instagram_post"`
	Tags      []string `json:"tags"`
	Meta      struct {
		Tone string `json:"tone"`
	} `json:"meta"`
}

func fenced(body string) string {
	return "```json\n" + body + "\n```"
}

func TestExtract_RoundTrip(t *testing.T) {
	article := articleRecord{Title: "Agents in production", Link: "https://x.dev/a", Author: "Kim", Description: "Line one\nLine two\twith tab"}
	posts := postsRecord{LinkedIn: "Long form {with braces}", Twitter: "short #AI", Instagram: "✨ caption", Tags: []string{"ai", "ml"}}
	posts.Meta.Tone = "warm"

	wrappers := map[string]func(string) string{
		"fence":           fenced,
		"prose + fence":   func(s string) string { return "Here is the JSON you asked for:\n\n" + fenced(s) + "\nHope it helps." },
		"nested fence":    func(s string) string { return "```\n" + fenced(s) + "\n```" },
		"bare with prose": func(s string) string { return "Result follows. " + s + " Done." },
	}

	for name, wrap := range wrappers {
		t.Run(name+"/article", func(t *testing.T) {
			encoded, err := json.Marshal(article)
			require.NoError(t, err)

			var got articleRecord
			require.NoError(t, ExtractInto(wrap(string(encoded)), &got, "title", "link"))
			assert.Equal(t, article, got)
		})
		t.Run(name+"/posts", func(t *testing.T) {
			encoded, err := json.MarshalIndent(posts, "", "  ")
			require.NoError(t, err)

			var got postsRecord
			require.NoError(t, ExtractInto(wrap(string(encoded)), &got, "linkedin_post", "twitter_post", "instagram_post"))
			assert.Equal(t, posts, got)
		})
	}
}

func TestExtract_SmallestObjectWithExpectedKey(t *testing.T) {
	raw := `I considered {"note": "ignore me"} first, then chose {"title": "Pick", "link": "https://p.io"} as the answer.`

	data, err := Extract(raw, "title")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "Pick", "link": "https://p.io"}`, string(data))
}

func TestExtract_KeyedObjectInsideWrapper(t *testing.T) {
	raw := `Output: {"result": {"title": "Inner", "link": "https://i.io"}, "confidence": 0.9}`

	data, err := Extract(raw, "title")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "Inner", "link": "https://i.io"}`, string(data))
}

func TestExtract_GenericFallbackWhenNoKeyMatches(t *testing.T) {
	data, err := Extract(`Answer: [1, 2, 3] done`, "title")
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2, 3]`, string(data))
}

func TestExtract_DoubleEscapedSequences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "escaped structure whitespace",
			raw:  `{\n  "title": "T",\n\t"link": "L"\n}`,
			want: `{"title": "T", "link": "L"}`,
		},
		{
			name: "double escaped newline in value",
			raw:  `{"title": "a\\nb", "link": "L"}`,
			want: `{"title": "a\nb", "link": "L"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Extract(tt.raw, "title")
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"no json", "banana"},
		{"broken object", `{"title": "T", "link": }`},
		{"truncated", "```json\n{\"title\": \"T\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.raw, "title")
			require.Error(t, err)
			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestExtractInto_ShapeMismatch(t *testing.T) {
	var rec articleRecord
	err := ExtractInto(`["not", "an", "object"]`, &rec, "title")
	require.Error(t, err)
	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}
