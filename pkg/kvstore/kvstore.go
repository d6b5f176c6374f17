// Package kvstore provides the generic TTL-aware key/value abstraction the
// engine builds its state and job storage on (spec §4.6).
package kvstore

import (
	"context"
	"time"
)

// Store is the minimal persistence surface the engine depends on. Get
// reports ok=false both when a key is absent and when it has expired.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// List returns all non-expired keys sharing the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Config selects and configures a Store backend (teacher idiom:
// pkg/state/factory.go's Config/NewStateStore dispatch).
type Config struct {
	Type string `yaml:"type"` // "sqlite" or "redis"

	// SQLite.
	Path string `yaml:"path"`

	// Redis.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// New dispatches on cfg.Type the way the teacher's state factory does.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "redis":
		return NewRedisStore(cfg)
	default:
		return nil, &UnsupportedBackendError{Type: cfg.Type}
	}
}

// UnsupportedBackendError is returned by New for an unrecognized Config.Type.
type UnsupportedBackendError struct {
	Type string
}

func (e *UnsupportedBackendError) Error() string {
	return "kvstore: unsupported backend type " + e.Type
}
