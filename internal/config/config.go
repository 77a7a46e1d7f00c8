// Package config loads the scraper's configuration file and applies the
// environment-variable overrides this repo carries from the teacher's
// own getEnv convention in cmd/api/main.go.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	defaultEntryExpirySeconds     = 172800
	defaultMaxConcurrentTransfers = 32
	defaultConfigPath             = "config.json"
)

// BuxtehudeType selects the bus transport: a Unix-domain socket path or a
// TCP host:port pair.
type BuxtehudeType string

const (
	BuxtehudeUnix BuxtehudeType = "unix"
	BuxtehudeInet BuxtehudeType = "inet"
)

// Buxtehude holds the bus connection's type and endpoint, named after the
// spec's own config keys.
type Buxtehude struct {
	Type           BuxtehudeType `json:"type"`
	PathOrHostname string        `json:"path-or-hostname"`
	Port           int           `json:"port"`
}

// Curl holds HTTP transfer driver settings.
type Curl struct {
	UserAgent string `json:"user-agent"`
}

// Config is the fully-resolved configuration for one scraper process,
// decoded from the JSON file named on the command line and then
// overridden by environment variables.
type Config struct {
	MongoDBURI             string    `json:"mongodb-uri"`
	DflatDBName            string    `json:"dflat-db-name"`
	Curl                   Curl      `json:"curl"`
	Buxtehude              Buxtehude `json:"buxtehude"`
	EntryExpiryTimeSeconds int       `json:"entry-expiry-time-seconds"`
	MaxConcurrentTransfers int       `json:"max-concurrent-transfers"`
	RedisAddr              string    `json:"redis-addr"`
}

// Load reads the configuration file at path, applies defaults for any
// zero-valued fields the file omits, and then applies environment
// variable overrides. A missing or malformed file is a fatal config
// error per §7 — the caller should exit 1 on a non-nil error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{
		EntryExpiryTimeSeconds: defaultEntryExpirySeconds,
		MaxConcurrentTransfers: defaultMaxConcurrentTransfers,
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.EntryExpiryTimeSeconds <= 0 {
		cfg.EntryExpiryTimeSeconds = defaultEntryExpirySeconds
	}
	if cfg.MaxConcurrentTransfers <= 0 {
		cfg.MaxConcurrentTransfers = defaultMaxConcurrentTransfers
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCRAPER_MONGODB_URI"); v != "" {
		c.MongoDBURI = v
	}
	if v := os.Getenv("SCRAPER_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("SCRAPER_BUS_URL"); v != "" {
		c.Buxtehude.PathOrHostname = v
	}
}
