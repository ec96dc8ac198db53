package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articlePage(words int) string {
	body := strings.Repeat("curation matters a lot ", words/4)
	return "<html><head><title>T</title></head><body><article><h1>Heading</h1><p>" + body + "</p></article></body></html>"
}

func TestRedisPageCache_GetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	cache := NewRedisPageCache(client, "")
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "https://a.example/post")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "https://a.example/post", "body", time.Hour))
	text, ok, err := cache.Get(ctx, "https://a.example/post")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "body", text)

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(ctx, "https://a.example/post")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedFetcher_UsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage(120)))
	}))
	defer server.Close()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	f := NewCachedFetcher(NewRedisPageCache(client, "test:"), nil)

	first, err := f.FullText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, first, "curation matters")

	second, err := f.FullText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCachedFetcher_CacheDownStillFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articlePage(120)))
	}))
	defer server.Close()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	f := NewCachedFetcher(NewRedisPageCache(client, ""), &CachedFetcherConfig{Logger: logger})

	text, err := f.FullText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "curation matters")
}

func TestCachedFetcher_NoCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewCachedFetcher(nil, nil)
	_, err := f.FullText(context.Background(), server.URL)
	require.Error(t, err)
	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
}
