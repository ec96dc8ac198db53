package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/artifacts"
	"github.com/jonathan/content-curator/internal/config"
	"github.com/jonathan/content-curator/internal/db"
	"github.com/jonathan/content-curator/internal/fetch"
	"github.com/jonathan/content-curator/internal/imagegen"
	"github.com/jonathan/content-curator/internal/ledger"
	"github.com/jonathan/content-curator/internal/llm"
	"github.com/jonathan/content-curator/internal/logging"
	"github.com/jonathan/content-curator/internal/metrics"
	"github.com/jonathan/content-curator/internal/pipeline"
	"github.com/jonathan/content-curator/internal/publish"
	"github.com/jonathan/content-curator/internal/scrape"
	"github.com/jonathan/content-curator/internal/usage"
)

const pageCachePrefix = "curator:page:"

// loadConfig reads --config when given and fills the gaps from defaults.
func loadConfig() (config.Config, error) {
	defaults := config.Default()
	if configPath == "" {
		return defaults, nil
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg := loaded.MergeWithDefaults(defaults)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger() *logrus.Logger {
	if verbose {
		return logging.NewTextLogger(os.Stderr)
	}
	return logging.NewLogger()
}

// app owns the long-lived collaborators of one command invocation.
type app struct {
	cfg      config.Config
	secrets  config.Secrets
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	recorder *usage.Recorder
	closers  []func()
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	return &app{
		cfg:      cfg,
		secrets:  config.SecretsFromEnv(),
		logger:   newLogger(),
		metrics:  m,
		recorder: &usage.Recorder{Sink: m},
	}, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) llmClient(ctx context.Context) (llm.Client, error) {
	llmCfg := llm.ConfigFor(a.cfg.LLM.Provider)
	for tier, model := range a.cfg.LLM.Models {
		llmCfg = llmCfg.WithModel(llm.ModelTier(tier), model)
	}
	client, err := llm.NewClient(ctx, llmCfg, a.secrets.LLMKey(a.cfg.LLM.Provider), llm.WithUsageRecorder(a.recorder))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.onClose(func() { _ = client.Close() })
	return client, nil
}

func (a *app) redisURL() string {
	if a.cfg.Ledger.RedisURL != "" {
		return a.cfg.Ledger.RedisURL
	}
	return a.secrets.RedisURL
}

func (a *app) pageCache() (fetch.PageCache, error) {
	if !a.cfg.Scraper.PageCache {
		return nil, nil
	}
	opts, err := goredis.ParseURL(a.redisURL())
	if err != nil {
		return nil, fmt.Errorf("invalid redis url for page cache: %w", err)
	}
	client := goredis.NewClient(opts)
	a.onClose(func() { _ = client.Close() })
	return fetch.NewRedisPageCache(client, pageCachePrefix), nil
}

func (a *app) scraper(client llm.Client) (scrape.Scraper, error) {
	cache, err := a.pageCache()
	if err != nil {
		return nil, err
	}
	return scrape.New(scrape.Options{
		Backend:      a.cfg.Scraper.Backend,
		FirecrawlURL: a.cfg.Scraper.FirecrawlURL,
		FirecrawlKey: a.secrets.FirecrawlAPIKey,
		LLM:          client,
		UseBrowser:   a.cfg.Scraper.UseBrowser,
		PageCache:    cache,
		Recorder:     a.recorder,
		Logger:       a.logger,
	})
}

func (a *app) ledger(ctx context.Context) (ledger.Ledger, error) {
	l, err := ledger.Open(ctx, ledger.Options{
		Backend:     ledger.Backend(a.cfg.Ledger.Backend),
		Path:        a.cfg.Ledger.Path,
		RedisURL:    a.redisURL(),
		RedisKey:    a.cfg.Ledger.RedisKey,
		DatabaseURL: a.secrets.DatabaseURL,
		Table:       a.cfg.Ledger.Table,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = l.Close() })
	return l, nil
}

// history connects the run history store when DATABASE_URL is set.
func (a *app) history(ctx context.Context) (*db.DB, error) {
	if a.secrets.DatabaseURL == "" {
		return nil, nil
	}
	store, err := db.Connect(ctx, a.secrets.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.onClose(store.Close)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) renderer() imagegen.Renderer {
	if !a.cfg.Image.Enabled || a.secrets.StabilityAPIKey == "" {
		a.logger.Info("Image generation disabled")
		return nil
	}
	r, err := imagegen.NewStabilityRenderer(a.cfg.Image.Endpoint, a.secrets.StabilityAPIKey, a.cfg.Image.Timeout, a.recorder)
	if err != nil {
		a.logger.WithError(err).Warn("Image generation disabled")
		return nil
	}
	return r
}

func (a *app) mirror(ctx context.Context) (artifacts.Mirror, error) {
	if a.cfg.S3 == nil {
		return nil, nil
	}
	return artifacts.NewS3Mirror(ctx, artifacts.S3Config{
		Bucket:    a.cfg.S3.Bucket,
		Prefix:    a.cfg.S3.Prefix,
		Region:    a.cfg.S3.Region,
		Endpoint:  a.cfg.S3.Endpoint,
		AccessKey: a.secrets.AWSAccessKey,
		SecretKey: a.secrets.AWSSecretKey,
	}, a.logger)
}

func (a *app) publisher() (publish.Publisher, error) {
	if a.cfg.Kafka == nil {
		return nil, nil
	}
	p, err := publish.NewKafkaPublisher(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = p.Close() })
	return p, nil
}

// curation is everything a curation command needs.
type curation struct {
	orchestrator *pipeline.Orchestrator
	ledger       ledger.Ledger
	history      *db.DB
}

func (a *app) curation(ctx context.Context) (*curation, error) {
	if err := a.secrets.RequireFor(a.cfg); err != nil {
		return nil, err
	}
	client, err := a.llmClient(ctx)
	if err != nil {
		return nil, err
	}
	scraper, err := a.scraper(client)
	if err != nil {
		return nil, err
	}
	l, err := a.ledger(ctx)
	if err != nil {
		return nil, err
	}
	history, err := a.history(ctx)
	if err != nil {
		return nil, err
	}
	mirror, err := a.mirror(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := a.publisher()
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Scraper:         scraper,
		LLM:             client,
		Ledger:          l,
		Renderer:        a.renderer(),
		Mirror:          mirror,
		Publisher:       pub,
		Metrics:         a.metrics,
		Logger:          a.logger,
		Out:             os.Stdout,
		BillableScrapes: a.cfg.Scraper.Backend == "" || a.cfg.Scraper.Backend == scrape.BackendFirecrawl,
	}
	if history != nil {
		deps.History = history
	}
	return &curation{
		orchestrator: pipeline.New(a.cfg, deps),
		ledger:       l,
		history:      history,
	}, nil
}

// splitList accepts repeated and comma-separated flag values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
