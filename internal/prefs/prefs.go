package prefs

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound     = errors.New("preference not found")
	ErrNotConnected = errors.New("not connected to preference store")
)

// Store defines the boolean key-value contract consumed by the blocklist
// registry. Implementations must be safe for concurrent use.
type Store interface {
	// GetBool retrieves a stored boolean. Returns ErrNotFound if the key
	// has no stored value.
	GetBool(ctx context.Context, key string) (bool, error)

	// SetBool stores a boolean value, overwriting any previous value.
	SetBool(ctx context.Context, key string, value bool) error

	// Delete removes a stored value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all stored keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Config represents the configuration for a preference store
type Config struct {
	Type string `toml:"type"` // "memory", "sqlite", "mysql", "postgres", "redis"
	Path string `toml:"path"` // database path (sqlite)
	DSN  string `toml:"dsn"`  // connection string (mysql, postgres)
	Addr string `toml:"addr"` // host:port (redis)

	Password string `toml:"password"` // redis auth
	Database int    `toml:"database"` // redis database number
}

// Factory creates a preference store based on configuration
func Factory(config Config) (Store, error) {
	switch config.Type {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(config.Path)
	case "mysql":
		return NewMySQL(config.DSN)
	case "postgres":
		return NewPostgres(config.DSN)
	case "redis":
		return NewRedis(config)
	default:
		return nil, fmt.Errorf("unsupported preference store type: %s", config.Type)
	}
}
