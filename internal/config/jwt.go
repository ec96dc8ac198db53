package config

import (
	"fmt"
	"os"
	"strconv"
)

// JWTConfig holds the signing secret for API bearer tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig reads CURATOR_API_TOKEN and CURATOR_TOKEN_HOURS (default 24).
// It returns nil, nil when no secret is set, which leaves the API open.
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("CURATOR_API_TOKEN")
	if secret == "" {
		return nil, nil
	}

	expirationStr := os.Getenv("CURATOR_TOKEN_HOURS")
	if expirationStr == "" {
		expirationStr = "24"
	}
	expirationHours, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CURATOR_TOKEN_HOURS: %v", err)
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *JWTConfig) normalize() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("CURATOR_API_TOKEN must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("CURATOR_TOKEN_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
