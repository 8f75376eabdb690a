package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/busybox42/relaycheck/internal/logging"
	"github.com/busybox42/relaycheck/internal/prefs"
)

// Config represents the application configuration
type Config struct {
	// Management API configuration
	Server struct {
		Listen       string `toml:"listen"`
		AuthEnabled  bool   `toml:"auth_enabled"`
		AuthUser     string `toml:"auth_user"`
		AuthPassword string `toml:"auth_password"` // bcrypt hash
	} `toml:"server"`

	// DNS resolution configuration. With no servers configured the system
	// stub resolver is used.
	DNS struct {
		Servers        []string `toml:"servers"`
		TimeoutSeconds int      `toml:"timeout"`
		Retries        int      `toml:"retries"`
		Breaker        bool     `toml:"breaker"`
	} `toml:"dns"`

	// Verdict cache configuration
	Cache struct {
		TTLMinutes int `toml:"ttl_minutes"`
	} `toml:"cache"`

	// Preference store configuration
	Prefs prefs.Config `toml:"prefs"`

	// Logging configuration
	Logging logging.Config `toml:"logging"`

	// Full-text index configuration
	FTS struct {
		Path string `toml:"path"`
	} `toml:"fts"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Listen = "127.0.0.1:8125"

	cfg.DNS.TimeoutSeconds = 5
	cfg.DNS.Retries = 2
	cfg.DNS.Breaker = true

	cfg.Cache.TTLMinutes = 60

	cfg.Prefs.Type = "memory"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.FTS.Path = "fts.db"

	return cfg
}

// CacheTTL returns the verdict cache TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// DNSTimeout returns the per-query DNS timeout as a duration
func (c *Config) DNSTimeout() time.Duration {
	return time.Duration(c.DNS.TimeoutSeconds) * time.Second
}

// FindConfigFile looks for a configuration file in common locations
func FindConfigFile(configPath string) (string, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
		return "", fmt.Errorf("config file not found at specified path: %s", configPath)
	}

	locations := []string{
		"./relaycheck.conf",
		"./config/relaycheck.conf",
		os.ExpandEnv("$HOME/.relaycheck.conf"),
		"/etc/relaycheck/relaycheck.conf",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	return "", nil
}

// LoadConfig loads the configuration, falling back to defaults when no
// config file exists.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	path, err := FindConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}
