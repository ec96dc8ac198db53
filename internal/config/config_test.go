package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "curator.yaml", `
sources:
  - https://latent.space
  - https://blog.example.com
criterion: developer tooling
identity: composite
ledger:
  backend: redis
  redis_url: redis://localhost:6379/0
collector:
  max_retries: 2
  concurrency: 4
image:
  enabled: true
  timeout: 45s
schedule:
  interval: 6h
kafka:
  brokers: [localhost:9092]
  topic: curator.runs
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://latent.space", "https://blog.example.com"}, cfg.Sources)
	assert.Equal(t, "developer tooling", cfg.Criterion)
	assert.Equal(t, "composite", cfg.Identity)
	assert.Equal(t, "redis", cfg.Ledger.Backend)
	assert.Equal(t, 2, cfg.Collector.MaxRetries)
	assert.Equal(t, 4, cfg.Collector.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Image.Timeout)
	assert.Equal(t, 6*time.Hour, cfg.Schedule.Interval)
	require.NotNil(t, cfg.Kafka)
	assert.Equal(t, "curator.runs", cfg.Kafka.Topic)
	assert.Nil(t, cfg.S3)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "curator.json", `{"sources": ["https://a.example"], "criterion": "AI", "scraper": {"backend": "local", "use_browser": true}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Scraper.Backend)
	assert.True(t, cfg.Scraper.UseBrowser)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantMsg string
	}{
		{"empty path", func(*testing.T) string { return "" }, "config path is empty"},
		{"missing file", func(*testing.T) string { return "/nonexistent/curator.yaml" }, "failed to read config file"},
		{"bad json", func(t *testing.T) string { return writeFile(t, "c.json", "{ invalid json }") }, "failed to parse config JSON"},
		{"bad yaml", func(t *testing.T) string { return writeFile(t, "c.yml", "sources: [unclosed") }, "failed to parse config YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.path(t))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"no sources", func(c *Config) { c.Sources = nil }, "sources"},
		{"non-http source", func(c *Config) { c.Sources = []string{"ftp://x"} }, "sources[0]"},
		{"blank criterion", func(c *Config) { c.Criterion = "  " }, "criterion"},
		{"bad identity", func(c *Config) { c.Identity = "title" }, "identity"},
		{"bad ledger backend", func(c *Config) { c.Ledger.Backend = "sqlite" }, "ledger.backend"},
		{"file ledger without path", func(c *Config) { c.Ledger.Path = "" }, "ledger.path"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "openai" }, "llm.provider"},
		{"bad tier", func(c *Config) { c.LLM.Models = map[string]string{"huge": "m"} }, "llm.models"},
		{"bad scraper", func(c *Config) { c.Scraper.Backend = "curl" }, "scraper.backend"},
		{"negative retries", func(c *Config) { c.Collector.MaxRetries = -1 }, "collector.max_retries"},
		{"s3 without bucket", func(c *Config) { c.S3 = &S3Config{} }, "s3.bucket"},
		{"kafka without topic", func(c *Config) { c.Kafka = &KafkaConfig{Brokers: []string{"b:9092"}} }, "kafka"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		Criterion: "robotics",
		Ledger:    LedgerConfig{Backend: "redis"},
		Collector: CollectorConfig{MaxRetries: 3},
	}

	merged := partial.MergeWithDefaults(Default())

	assert.Equal(t, "robotics", merged.Criterion)
	assert.Equal(t, "redis", merged.Ledger.Backend)
	assert.Equal(t, 3, merged.Collector.MaxRetries)

	assert.Equal(t, []string{DefaultSource}, merged.Sources)
	assert.Equal(t, DefaultImageStyle, merged.ImageStyle)
	assert.Equal(t, DefaultLedgerPath, merged.Ledger.Path)
	assert.Equal(t, 1, merged.Collector.Concurrency)
	assert.Equal(t, DefaultImageTime, merged.Image.Timeout)
	assert.Equal(t, "link", merged.Identity)
	assert.NoError(t, merged.Validate())
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Criterion: "x", Sources: []string{"https://a"}}
	merged := cfg.MergeWithDefaults(Config{})
	assert.Equal(t, "x", merged.Criterion)
	assert.Equal(t, []string{"https://a"}, merged.Sources)
	assert.Empty(t, merged.OutputDir)
}

func TestSecrets_RequireFor(t *testing.T) {
	full := Secrets{AnthropicAPIKey: "a", GeminiAPIKey: "g", FirecrawlAPIKey: "f", DatabaseURL: "postgres://", RedisURL: "redis://"}

	tests := []struct {
		name      string
		secrets   Secrets
		mutate    func(c *Config)
		wantField string
	}{
		{"all present", full, func(*Config) {}, ""},
		{"missing anthropic", Secrets{FirecrawlAPIKey: "f"}, func(*Config) {}, "ANTHROPIC_API_KEY"},
		{"missing gemini", Secrets{AnthropicAPIKey: "a", FirecrawlAPIKey: "f"}, func(c *Config) { c.LLM.Provider = "gemini" }, "GEMINI_API_KEY"},
		{"missing firecrawl", Secrets{AnthropicAPIKey: "a"}, func(*Config) {}, "FIRECRAWL_API_KEY"},
		{"local scraper needs no firecrawl", Secrets{AnthropicAPIKey: "a"}, func(c *Config) { c.Scraper.Backend = "local" }, ""},
		{"postgres ledger", Secrets{AnthropicAPIKey: "a", FirecrawlAPIKey: "f"}, func(c *Config) { c.Ledger.Backend = "postgres" }, "DATABASE_URL"},
		{"redis ledger from config", Secrets{AnthropicAPIKey: "a", FirecrawlAPIKey: "f"}, func(c *Config) {
			c.Ledger.Backend = "redis"
			c.Ledger.RedisURL = "redis://localhost"
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := tt.secrets.RequireFor(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestSecretsFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GEMINI_API_KEY", "gm")
	s := SecretsFromEnv()
	assert.Equal(t, "sk-ant", s.LLMKey("anthropic"))
	assert.Equal(t, "gm", s.LLMKey("gemini"))
}
