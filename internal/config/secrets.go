package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Secrets are credentials read from the environment, never from config files.
type Secrets struct {
	AnthropicAPIKey string
	GeminiAPIKey    string
	FirecrawlAPIKey string
	StabilityAPIKey string
	DatabaseURL     string
	RedisURL        string
	APIToken        string
	AWSAccessKey    string
	AWSSecretKey    string
	GoogleCredsFile string
}

// LoadDotEnv loads a .env file if one exists. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// SecretsFromEnv reads Secrets from the process environment.
func SecretsFromEnv() Secrets {
	return Secrets{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		FirecrawlAPIKey: os.Getenv("FIRECRAWL_API_KEY"),
		StabilityAPIKey: os.Getenv("STABILITY_API_KEY"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		APIToken:        os.Getenv("CURATOR_API_TOKEN"),
		AWSAccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		GoogleCredsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
}

// LLMKey returns the API key of the configured provider.
func (s Secrets) LLMKey(provider string) string {
	if provider == "gemini" {
		return s.GeminiAPIKey
	}
	return s.AnthropicAPIKey
}

// RequireFor checks that every credential cfg needs is present. The image
// key is optional: without it the image stage is skipped.
func (s Secrets) RequireFor(cfg Config) error {
	switch cfg.LLM.Provider {
	case "gemini":
		if s.GeminiAPIKey == "" {
			return &ConfigurationError{Field: "GEMINI_API_KEY", Message: "required for the gemini provider"}
		}
	default:
		if s.AnthropicAPIKey == "" {
			return &ConfigurationError{Field: "ANTHROPIC_API_KEY", Message: "required for the anthropic provider"}
		}
	}

	if (cfg.Scraper.Backend == "" || cfg.Scraper.Backend == "firecrawl") && s.FirecrawlAPIKey == "" {
		return &ConfigurationError{Field: "FIRECRAWL_API_KEY", Message: "required for the firecrawl scraper"}
	}

	switch cfg.Ledger.Backend {
	case "redis":
		if cfg.Ledger.RedisURL == "" && s.RedisURL == "" {
			return &ConfigurationError{Field: "REDIS_URL", Message: "required for the redis ledger"}
		}
	case "postgres":
		if s.DatabaseURL == "" {
			return &ConfigurationError{Field: "DATABASE_URL", Message: "required for the postgres ledger"}
		}
	}

	if cfg.Scraper.PageCache && cfg.Ledger.RedisURL == "" && s.RedisURL == "" {
		return &ConfigurationError{Field: "REDIS_URL", Message: "required for the page cache"}
	}
	return nil
}
