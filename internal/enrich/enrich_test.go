package enrich

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/content-curator/internal/types"
)

type stubSource struct {
	text string
	err  error
	urls []string
}

func (s *stubSource) FullText(_ context.Context, url string) (string, error) {
	s.urls = append(s.urls, url)
	return s.text, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func candidate() types.Candidate {
	return types.NewCandidate("https://src.example/", "Title", "https://src.example/post", "", "", "short summary", types.IdentityLink)
}

func TestEnrich_ReplacesSummary(t *testing.T) {
	src := &stubSource{text: "  Full article body.  "}
	out := New(src, quietLogger()).Enrich(context.Background(), candidate())

	require.True(t, out.IsOk())
	assert.Equal(t, "Full article body.", out.Value.Summary)
	assert.Equal(t, []string{"https://src.example/post"}, src.urls)
}

func TestEnrich_TruncatesByCharacters(t *testing.T) {
	src := &stubSource{text: strings.Repeat("é", types.MaxContentLength+100)}
	out := New(src, quietLogger()).Enrich(context.Background(), candidate())

	require.True(t, out.IsOk())
	assert.Equal(t, types.MaxContentLength, types.RuneLen(out.Value.Summary))
}

func TestEnrich_FailureKeepsCandidate(t *testing.T) {
	tests := []struct {
		name string
		src  *stubSource
	}{
		{"error", &stubSource{err: errors.New("timeout")}},
		{"blank", &stubSource{text: " \n "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := candidate()
			out := New(tt.src, quietLogger()).Enrich(context.Background(), in)
			require.True(t, out.IsFallback())
			assert.Equal(t, in, out.Value)
			assert.Error(t, out.Err)
		})
	}
}
