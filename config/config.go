// Package config handles service configuration.
//
// Configuration is read from the environment (optionally seeded from a .env
// file) and validated once at startup. Anything that fails validation is a
// ConfigurationError and fatal: the service never starts half-configured.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// NetworkType identifies which TRON network the service targets.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Shasta  NetworkType = "shasta"
	Nile    NetworkType = "nile"
)

// Default full-node endpoints per network. Overridable via environment.
var defaultEndpoints = map[NetworkType]string{
	Mainnet: "https://api.trongrid.io",
	Shasta:  "https://api.shasta.trongrid.io",
	Nile:    "https://nile.trongrid.io",
}

// Environment variable names for per-network endpoint overrides.
var endpointOverrides = map[NetworkType]string{
	Mainnet: "TRON_FULLNODE_MAINNET",
	Shasta:  "TRON_FULLNODE_SHASTA",
	Nile:    "TRON_FULLNODE_NILE",
}

// ConfigurationError is a fatal startup configuration problem.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Config holds the runtime configuration for the chain service.
type Config struct {
	// Chain
	Network     NetworkType
	Endpoint    string // resolved full-node endpoint
	APIKey      string
	ChainActive bool // activation gate; wallet-affecting operations require it

	// Scanner
	ScanBatchSize int
	PollInterval  time.Duration
	RPCTimeout    time.Duration

	// Cache
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	// Ledger
	PostgresDSN string

	// Key material
	DataDir     string
	KeyPassword string

	// HTTP
	ListenAddr string

	// Logging
	LogLevel string
	LogJSON  bool

	Production bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	cfg := &Config{
		Network:       NetworkType(envOr("TRON_NETWORK", string(Mainnet))),
		APIKey:        os.Getenv("TRON_API_KEY"),
		ChainActive:   envBool("TRON_CHAIN_ACTIVE", false),
		ScanBatchSize: envInt("TRON_SCAN_BATCH_SIZE", 10),
		PollInterval:  envDuration("TRON_POLL_INTERVAL", 60*time.Second),
		RPCTimeout:    envDuration("TRON_RPC_TIMEOUT", 10*time.Second),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      envDuration("TX_CACHE_TTL", 10*time.Minute),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		DataDir:       envOr("DATA_DIR", "./data"),
		KeyPassword:   os.Getenv("KEYSTORE_PASSWORD"),
		ListenAddr:    envOr("LISTEN_ADDR", ":8090"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogJSON:       envBool("LOG_JSON", false),
		Production:    envBool("PRODUCTION", false),
	}

	endpoint, err := resolveEndpoint(cfg.Network)
	if err != nil {
		return nil, err
	}
	cfg.Endpoint = endpoint

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveEndpoint maps a network identifier to its full-node endpoint,
// honoring the per-network environment override.
func resolveEndpoint(network NetworkType) (string, error) {
	def, ok := defaultEndpoints[network]
	if !ok {
		return "", &ConfigurationError{
			Field:  "TRON_NETWORK",
			Reason: fmt.Sprintf("unknown network %q (want mainnet, shasta or nile)", network),
		}
	}
	if override := os.Getenv(endpointOverrides[network]); override != "" {
		return override, nil
	}
	return def, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Validate checks the configuration for fatal problems.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return &ConfigurationError{Field: "endpoint", Reason: "empty"}
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("malformed URL %q", c.Endpoint)}
	}
	if c.ScanBatchSize <= 0 {
		return &ConfigurationError{Field: "TRON_SCAN_BATCH_SIZE", Reason: "must be positive"}
	}
	if c.PollInterval <= 0 {
		return &ConfigurationError{Field: "TRON_POLL_INTERVAL", Reason: "must be positive"}
	}
	if c.Production && c.APIKey == "" {
		return &ConfigurationError{Field: "TRON_API_KEY", Reason: "required in production"}
	}
	return nil
}
