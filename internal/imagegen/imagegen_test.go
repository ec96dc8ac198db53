package imagegen

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/llm/llmtest"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPromptFor_AppendsStyle(t *testing.T) {
	mock := &llmtest.MockClient{
		GenerateContentFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierLite, tier)
			assert.Contains(t, prompt, "LinkedIn post: Big news about agents")
			assert.Contains(t, prompt, "Style: flat pastel")
			return "  A robot reading a newspaper.\n", nil
		},
	}

	out := NewPrompter(mock, quietLogger()).PromptFor(context.Background(), "Big news about agents", "flat pastel", "AI")
	require.True(t, out.IsOk())
	assert.Equal(t, "A robot reading a newspaper. Please follow this stylistic guidelines: flat pastel", out.Value)
}

func TestPromptFor_Fallback(t *testing.T) {
	for name, reply := range map[string]func(context.Context, string, llm.ModelTier) (string, error){
		"error": llmtest.Fail(errors.New("down")),
		"empty": llmtest.Reply("   "),
	} {
		t.Run(name, func(t *testing.T) {
			out := NewPrompter(&llmtest.MockClient{GenerateContentFunc: reply}, quietLogger()).
				PromptFor(context.Background(), "post", "isometric", "developer tools")
			require.True(t, out.IsFallback())
			assert.Equal(t, "Modern technology illustration representing developer tools. Please follow this stylistic guidelines: isometric", out.Value)
		})
	}
}

type imageCounter struct{ n int }

func (c *imageCounter) RecordImage(context.Context) { c.n++ }

func TestStabilityRenderer_Success(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "image/*", r.Header.Get("Accept"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "a cat", r.FormValue("prompt"))
		assert.Equal(t, "png", r.FormValue("output_format"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer server.Close()

	counter := &imageCounter{}
	r, err := NewStabilityRenderer(server.URL, "sk-test", time.Second, counter)
	require.NoError(t, err)

	data, err := r.Render(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, png, data)
	assert.Equal(t, 1, counter.n)
}

func TestStabilityRenderer_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"name":"content_moderation"}`))
	}))
	defer server.Close()

	r, err := NewStabilityRenderer(server.URL, "sk-test", time.Second, nil)
	require.NoError(t, err)

	_, err = r.Render(context.Background(), "a cat")
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, http.StatusForbidden, renderErr.StatusCode)
	assert.Contains(t, err.Error(), "content_moderation")

	_, err = NewStabilityRenderer("", "", 0, nil)
	assert.Error(t, err)
}

func TestStabilityRenderer_ServerErrorKeepsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"name":"internal_error"}`))
	}))
	defer server.Close()

	r, err := NewStabilityRenderer(server.URL, "sk-test", time.Second, nil)
	require.NoError(t, err)

	_, err = r.Render(context.Background(), "a cat")
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, http.StatusInternalServerError, renderErr.StatusCode)
	assert.Contains(t, err.Error(), "internal_error")
}

func TestStabilityRenderer_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	r, err := NewStabilityRenderer(server.URL, "sk-test", 50*time.Millisecond, nil)
	require.NoError(t, err)

	_, err = r.Render(context.Background(), "slow")
	var renderErr *RenderError
	assert.ErrorAs(t, err, &renderErr)
}

type stubRenderer struct {
	data []byte
	err  error
}

func (s stubRenderer) Render(context.Context, string) ([]byte, error) { return s.data, s.err }

func TestIllustrator(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2026-03-04")
	ill := NewIllustrator(stubRenderer{data: []byte("img")}, quietLogger())
	ill.now = func() time.Time { return time.Unix(1700000000, 0) }

	out := ill.Illustrate(context.Background(), "prompt", dir)
	require.True(t, out.IsOk())
	assert.Equal(t, filepath.Join(dir, "generated_image_1700000000.png"), out.Value)
	data, err := os.ReadFile(out.Value)
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
}

func TestIllustrator_Degrades(t *testing.T) {
	out := NewIllustrator(stubRenderer{err: errors.New("boom")}, quietLogger()).
		Illustrate(context.Background(), "prompt", t.TempDir())
	assert.True(t, out.IsFallback())
	assert.Empty(t, out.Value)

	var disabled *Illustrator
	assert.False(t, disabled.Enabled())
	out = NewIllustrator(nil, quietLogger()).Illustrate(context.Background(), "prompt", t.TempDir())
	assert.True(t, out.IsFallback())
}
