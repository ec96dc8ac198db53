package ratelimit

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one route. Paths ending in "/"
// match by prefix.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // requests per Window
	Window time.Duration
	Burst  int // defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Allowlist       map[string]bool
	Denylist        map[string]bool
	EndpointConfigs []EndpointConfig
}

// NewConfig builds the limiter configuration for a server allowing
// perSecond requests per client on ordinary routes. The environment may
// override it:
//
//	CURATOR_RATE_LIMIT_ENABLED    true/false
//	CURATOR_RATE_LIMIT_ALLOW      comma-separated client IPs never limited
//	CURATOR_RATE_LIMIT_DENY       comma-separated client IPs always refused
//	CURATOR_RATE_LIMIT_CLEANUP    idle bucket sweep interval, e.g. 5m
func NewConfig(perSecond float64) *Config {
	if !envBool("CURATOR_RATE_LIMIT_ENABLED", true) || perSecond <= 0 {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    int(math.Ceil(perSecond * 60)),
		DefaultWindow:   time.Minute,
		CleanupInterval: envDuration("CURATOR_RATE_LIMIT_CLEANUP", 5*time.Minute),
		Allowlist:       parseIPList(os.Getenv("CURATOR_RATE_LIMIT_ALLOW")),
		Denylist:        parseIPList(os.Getenv("CURATOR_RATE_LIMIT_DENY")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs limits run triggers far below reads: every run
// spends scrape credits and model tokens.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/runs", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/runs/stream", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/ledger", Method: "GET", Limit: 600, Window: time.Minute, Burst: 60},
	}
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
