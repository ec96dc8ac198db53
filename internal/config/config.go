// Package config provides configuration loading and validation for the curator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/content-curator/internal/types"
)

// Defaults used when the config file leaves a field empty.
const (
	DefaultCriterion   = "education and AI"
	DefaultSource      = "https://latent.space"
	DefaultImageStyle  = "clean, modern digital illustration with soft lighting"
	DefaultOutputDir   = "outputs"
	DefaultLedgerPath  = "processed_articles.txt"
	DefaultRedisKey    = "curator:ledger"
	DefaultLedgerTable = "ledger_entries"
	DefaultImageTime   = 60 * time.Second
	DefaultPort        = 8080
	DefaultRateLimit   = 2.0
	DefaultInterval    = 24 * time.Hour
)

// Config is the resolved configuration of one curator process. It is passed
// by value into the orchestrator; nothing reads it globally.
type Config struct {
	Sources    []string `yaml:"sources" json:"sources"`
	Criterion  string   `yaml:"criterion" json:"criterion"`
	ImageStyle string   `yaml:"image_style" json:"image_style"`
	Identity   string   `yaml:"identity" json:"identity"` // link or composite
	OutputDir  string   `yaml:"output_dir" json:"output_dir"`

	Ledger    LedgerConfig    `yaml:"ledger" json:"ledger"`
	LLM       LLMConfig       `yaml:"llm" json:"llm"`
	Scraper   ScraperConfig   `yaml:"scraper" json:"scraper"`
	Collector CollectorConfig `yaml:"collector" json:"collector"`
	Image     ImageConfig     `yaml:"image" json:"image"`
	S3        *S3Config       `yaml:"s3,omitempty" json:"s3,omitempty"`
	Kafka     *KafkaConfig    `yaml:"kafka,omitempty" json:"kafka,omitempty"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Schedule  ScheduleConfig  `yaml:"schedule" json:"schedule"`
	Triage    TriageConfig    `yaml:"triage" json:"triage"`
}

// LedgerConfig selects the deduplication ledger backend.
type LedgerConfig struct {
	Backend  string `yaml:"backend" json:"backend"` // file, redis or postgres
	Path     string `yaml:"path" json:"path"`
	RedisURL string `yaml:"redis_url" json:"redis_url"`
	RedisKey string `yaml:"redis_key" json:"redis_key"`
	Table    string `yaml:"table" json:"table"`
}

// LLMConfig selects the text-generation provider and per-tier models.
type LLMConfig struct {
	Provider string            `yaml:"provider" json:"provider"` // anthropic or gemini
	Models   map[string]string `yaml:"models" json:"models"`
}

// ScraperConfig selects the scrape backend.
type ScraperConfig struct {
	Backend      string `yaml:"backend" json:"backend"` // firecrawl or local
	FirecrawlURL string `yaml:"firecrawl_url" json:"firecrawl_url"`
	UseBrowser   bool   `yaml:"use_browser" json:"use_browser"`
	PageCache    bool   `yaml:"page_cache" json:"page_cache"`
}

// CollectorConfig bounds the per-source scrape fan-out.
type CollectorConfig struct {
	MaxRetries  int `yaml:"max_retries" json:"max_retries"`
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// ImageConfig controls the illustration stage.
type ImageConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// S3Config enables mirroring artifacts to a bucket.
type S3Config struct {
	Bucket   string `yaml:"bucket" json:"bucket"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	Region   string `yaml:"region" json:"region"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// KafkaConfig enables run-completed event publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

// ServerConfig configures the HTTP trigger surface.
type ServerConfig struct {
	Port      int     `yaml:"port" json:"port"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"` // requests per second per client
}

// ScheduleConfig configures periodic runs.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// TriageConfig configures correspondence triage.
type TriageConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id" json:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name" json:"sheet_name"`
	ContextDir    string `yaml:"context_dir" json:"context_dir"`
	MetadataPath  string `yaml:"metadata_path" json:"metadata_path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Sources:    []string{DefaultSource},
		Criterion:  DefaultCriterion,
		ImageStyle: DefaultImageStyle,
		Identity:   string(types.IdentityLink),
		OutputDir:  DefaultOutputDir,
		Ledger: LedgerConfig{
			Backend:  "file",
			Path:     DefaultLedgerPath,
			RedisKey: DefaultRedisKey,
			Table:    DefaultLedgerTable,
		},
		LLM:       LLMConfig{Provider: "anthropic"},
		Scraper:   ScraperConfig{Backend: "firecrawl"},
		Collector: CollectorConfig{Concurrency: 1},
		Image:     ImageConfig{Enabled: true, Timeout: DefaultImageTime},
		Server:    ServerConfig{Port: DefaultPort, RateLimit: DefaultRateLimit},
		Schedule:  ScheduleConfig{Interval: DefaultInterval},
		Triage: TriageConfig{
			SheetName:    "Contacts",
			ContextDir:   "contexts",
			MetadataPath: "email_metadata.json",
		},
	}
}

// Load reads a configuration file. YAML is used for .yaml and .yml files,
// JSON otherwise. The result is not merged with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations. It returns a
// *ConfigurationError naming the first offending field.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return &ConfigurationError{Field: "sources", Message: "at least one source URL is required"}
	}
	for i, src := range c.Sources {
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			return &ConfigurationError{Field: fmt.Sprintf("sources[%d]", i), Message: fmt.Sprintf("%q is not an http(s) URL", src)}
		}
	}
	if strings.TrimSpace(c.Criterion) == "" {
		return &ConfigurationError{Field: "criterion", Message: "must not be empty"}
	}
	if _, err := types.ParseIdentityStrategy(c.Identity); err != nil {
		return &ConfigurationError{Field: "identity", Message: err.Error()}
	}

	switch c.Ledger.Backend {
	case "", "file":
		if c.Ledger.Path == "" {
			return &ConfigurationError{Field: "ledger.path", Message: "required for the file backend"}
		}
	case "redis", "postgres":
	default:
		return &ConfigurationError{Field: "ledger.backend", Message: fmt.Sprintf("unknown backend %q", c.Ledger.Backend)}
	}

	switch c.LLM.Provider {
	case "", "anthropic", "gemini":
	default:
		return &ConfigurationError{Field: "llm.provider", Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}
	for tier := range c.LLM.Models {
		switch tier {
		case "lite", "standard", "advanced":
		default:
			return &ConfigurationError{Field: "llm.models", Message: fmt.Sprintf("unknown tier %q", tier)}
		}
	}

	switch c.Scraper.Backend {
	case "", "firecrawl", "local":
	default:
		return &ConfigurationError{Field: "scraper.backend", Message: fmt.Sprintf("unknown backend %q", c.Scraper.Backend)}
	}

	if c.Collector.MaxRetries < 0 {
		return &ConfigurationError{Field: "collector.max_retries", Message: "must be non-negative"}
	}
	if c.Collector.Concurrency < 0 {
		return &ConfigurationError{Field: "collector.concurrency", Message: "must be non-negative"}
	}
	if c.Image.Timeout < 0 {
		return &ConfigurationError{Field: "image.timeout", Message: "must be non-negative"}
	}
	if c.S3 != nil && c.S3.Bucket == "" {
		return &ConfigurationError{Field: "s3.bucket", Message: "required when s3 is configured"}
	}
	if c.Kafka != nil && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return &ConfigurationError{Field: "kafka", Message: "brokers and topic are required when kafka is configured"}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ConfigurationError{Field: "server.port", Message: "out of range"}
	}
	if c.Schedule.Interval < 0 {
		return &ConfigurationError{Field: "schedule.interval", Message: "must be non-negative"}
	}
	return nil
}

// MergeWithDefaults returns a copy of c with zero-valued fields filled from
// defaults. Booleans cannot be told apart from unset and are left alone.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if len(result.Sources) == 0 {
		result.Sources = defaults.Sources
	}
	result.Criterion = orDefault(result.Criterion, defaults.Criterion)
	result.ImageStyle = orDefault(result.ImageStyle, defaults.ImageStyle)
	result.Identity = orDefault(result.Identity, defaults.Identity)
	result.OutputDir = orDefault(result.OutputDir, defaults.OutputDir)

	result.Ledger.Backend = orDefault(result.Ledger.Backend, defaults.Ledger.Backend)
	result.Ledger.Path = orDefault(result.Ledger.Path, defaults.Ledger.Path)
	result.Ledger.RedisURL = orDefault(result.Ledger.RedisURL, defaults.Ledger.RedisURL)
	result.Ledger.RedisKey = orDefault(result.Ledger.RedisKey, defaults.Ledger.RedisKey)
	result.Ledger.Table = orDefault(result.Ledger.Table, defaults.Ledger.Table)

	result.LLM.Provider = orDefault(result.LLM.Provider, defaults.LLM.Provider)
	if len(result.LLM.Models) == 0 {
		result.LLM.Models = defaults.LLM.Models
	}

	result.Scraper.Backend = orDefault(result.Scraper.Backend, defaults.Scraper.Backend)
	result.Scraper.FirecrawlURL = orDefault(result.Scraper.FirecrawlURL, defaults.Scraper.FirecrawlURL)

	if result.Collector.Concurrency == 0 {
		result.Collector.Concurrency = defaults.Collector.Concurrency
	}
	result.Image.Endpoint = orDefault(result.Image.Endpoint, defaults.Image.Endpoint)
	if result.Image.Timeout == 0 {
		result.Image.Timeout = defaults.Image.Timeout
	}
	if result.S3 == nil {
		result.S3 = defaults.S3
	}
	if result.Kafka == nil {
		result.Kafka = defaults.Kafka
	}
	if result.Server.Port == 0 {
		result.Server.Port = defaults.Server.Port
	}
	if result.Server.RateLimit == 0 {
		result.Server.RateLimit = defaults.Server.RateLimit
	}
	if result.Schedule.Interval == 0 {
		result.Schedule.Interval = defaults.Schedule.Interval
	}

	result.Triage.SpreadsheetID = orDefault(result.Triage.SpreadsheetID, defaults.Triage.SpreadsheetID)
	result.Triage.SheetName = orDefault(result.Triage.SheetName, defaults.Triage.SheetName)
	result.Triage.ContextDir = orDefault(result.Triage.ContextDir, defaults.Triage.ContextDir)
	result.Triage.MetadataPath = orDefault(result.Triage.MetadataPath, defaults.Triage.MetadataPath)

	return result
}

// IdentityStrategy returns the parsed identity strategy. Call Validate first.
func (c *Config) IdentityStrategy() types.IdentityStrategy {
	s, _ := types.ParseIdentityStrategy(c.Identity)
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
