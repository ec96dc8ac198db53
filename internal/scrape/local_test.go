package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/llm/llmtest"
)

const listingHTML = `<html><body>
	<nav><a href="/about">About</a></nav>
	<main>
		<h2><a href="/2026/03/agents">Agents in production</a></h2>
		<p>By Dana, March 3</p>
		<h2><a href="/2026/02/evals">Evals that matter</a></h2>
	</main>
</body></html>`

func listingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLocalExtract_Success(t *testing.T) {
	server := listingServer(t)
	mock := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierLite, tier)
			assert.Contains(t, prompt, "Agents in production -> "+server.URL+"/2026/03/agents")
			assert.Contains(t, prompt, "most recent article")
			return "Here you go:\n```json\n{\"title\": \"Agents in production\", \"author\": \"Dana\", \"link\": \"/2026/03/agents\"}\n```", nil
		},
	}
	s, err := NewLocalScraper(LocalOptions{Client: mock})
	require.NoError(t, err)

	rec, err := s.Extract(context.Background(), server.URL, ArticleSchema(), "")
	require.NoError(t, err)
	assert.Equal(t, "Agents in production", rec.Title)
	assert.Equal(t, "Dana", rec.Author)
	assert.Equal(t, server.URL+"/2026/03/agents", rec.Link)
	assert.Equal(t, 1, mock.Calls())
}

func TestLocalExtract_Failures(t *testing.T) {
	server := listingServer(t)
	tests := []struct {
		name       string
		reply      func(context.Context, string, llm.ModelTier) (string, error)
		schemaFail bool
	}{
		{"llm error", llmtest.Fail(errors.New("overloaded")), false},
		{"prose only", llmtest.Reply("I could not find any article."), true},
		{"missing link", llmtest.Reply(`{"title": "Agents"}`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewLocalScraper(LocalOptions{Client: &llmtest.MockClient{GenerateJSONFunc: tt.reply}})
			require.NoError(t, err)

			_, err = s.Extract(context.Background(), server.URL, ArticleSchema(), "")
			require.Error(t, err)
			if tt.schemaFail {
				var se *SchemaError
				assert.ErrorAs(t, err, &se)
			} else {
				var se *SourceError
				assert.ErrorAs(t, err, &se)
			}
		})
	}
}

func TestLocalExtract_UnreachableSource(t *testing.T) {
	s, err := NewLocalScraper(LocalOptions{Client: &llmtest.MockClient{}})
	require.NoError(t, err)

	_, err = s.Extract(context.Background(), "http://127.0.0.1:1/", ArticleSchema(), "")
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "fetch failed")
}

func TestLocalFullText(t *testing.T) {
	body := strings.Repeat("Structured output needs careful parsing. ", 30)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><article><h1>Parsing</h1><p>` + body + `</p></article></body></html>`))
	}))
	defer server.Close()

	rec := &countingRecorder{}
	s, err := NewLocalScraper(LocalOptions{Client: &llmtest.MockClient{}, Recorder: rec})
	require.NoError(t, err)

	text, err := s.FullText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "careful parsing")
	assert.Equal(t, 1, rec.calls["scrape"])
}

func TestNewLocalScraper_RequiresClient(t *testing.T) {
	_, err := NewLocalScraper(LocalOptions{})
	assert.Error(t, err)
}

func TestNew_Backends(t *testing.T) {
	s, err := New(Options{FirecrawlKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &FirecrawlScraper{}, s)

	s, err = New(Options{Backend: BackendLocal, LLM: &llmtest.MockClient{}})
	require.NoError(t, err)
	assert.IsType(t, &LocalScraper{}, s)

	_, err = New(Options{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}
