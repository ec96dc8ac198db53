package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultPageCacheTTL is how long extracted article text stays cached.
const DefaultPageCacheTTL = 7 * 24 * time.Hour

// PageCache stores extracted article text keyed by URL.
type PageCache interface {
	Get(ctx context.Context, url string) (text string, ok bool, err error)
	Set(ctx context.Context, url, text string, ttl time.Duration) error
}

// RedisPageCache is a PageCache backed by plain Redis string keys.
type RedisPageCache struct {
	client *goredis.Client
	prefix string
}

// NewRedisPageCache returns a cache that namespaces keys under prefix.
func NewRedisPageCache(client *goredis.Client, prefix string) *RedisPageCache {
	if prefix == "" {
		prefix = "curator:page:"
	}
	return &RedisPageCache{client: client, prefix: prefix}
}

func (c *RedisPageCache) key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return c.prefix + hex.EncodeToString(sum[:16])
}

// Get implements PageCache.
func (c *RedisPageCache) Get(ctx context.Context, url string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(url)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("page cache get: %w", err)
	}
	return val, true, nil
}

// Set implements PageCache.
func (c *RedisPageCache) Set(ctx context.Context, url, text string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(url), text, ttl).Err(); err != nil {
		return fmt.Errorf("page cache set: %w", err)
	}
	return nil
}

// CachedFetcher wraps FullText with a page cache.
type CachedFetcher struct {
	cache    PageCache
	options  *Options
	renderer Renderer
	ttl      time.Duration
	logger   *logrus.Logger
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL time.Duration
	Options  *Options
	Renderer Renderer
	Logger   *logrus.Logger
}

// NewCachedFetcher creates a fetcher. A nil cache disables caching.
func NewCachedFetcher(cache PageCache, config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = &CachedFetcherConfig{}
	}
	if config.Options == nil {
		config.Options = DefaultOptions()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultPageCacheTTL
	}
	return &CachedFetcher{
		cache:    cache,
		options:  config.Options,
		renderer: config.Renderer,
		ttl:      config.CacheTTL,
		logger:   config.Logger,
	}
}

// FullText returns the readable text of url, from cache when present.
// Cache failures are logged and never fail the fetch.
func (f *CachedFetcher) FullText(ctx context.Context, url string) (string, error) {
	if f.cache != nil {
		text, ok, err := f.cache.Get(ctx, url)
		if err != nil {
			f.warn(url, err)
		} else if ok {
			return text, nil
		}
	}

	text, err := FullText(ctx, url, f.options, f.renderer)
	if err != nil {
		return "", err
	}

	if f.cache != nil && text != "" {
		if err := f.cache.Set(ctx, url, text, f.ttl); err != nil {
			f.warn(url, err)
		}
	}
	return text, nil
}

func (f *CachedFetcher) warn(url string, err error) {
	if f.logger != nil {
		f.logger.WithError(err).WithField("url", url).Warn("Page cache unavailable")
	}
}
